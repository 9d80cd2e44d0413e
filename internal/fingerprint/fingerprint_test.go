package fingerprint

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerive_SameRequestSameFingerprint(t *testing.T) {
	h1 := http.Header{"Accept": {"text/html"}, "X-Custom": {"a"}}
	h2 := http.Header{"X-Custom": {"a"}, "Accept": {"text/html"}}

	got1 := Derive("/foo?x=1", h1, nil)
	got2 := Derive("/foo?x=1", h2, nil)

	assert.Equal(t, got1, got2, "header order must not affect the fingerprint")
}

func TestDerive_HeaderNameCaseInsensitive(t *testing.T) {
	h1 := http.Header{"X-Custom": {"a"}}
	h2 := http.Header{"x-custom": {"a"}}

	assert.Equal(t, Derive("/foo", h1, nil), Derive("/foo", h2, nil))
}

func TestDerive_IgnoredHeadersExcluded(t *testing.T) {
	ignored := map[string]struct{}{"x-bypass-cache": {}}
	withExtra := http.Header{"X-Bypass-Cache": {"true"}}
	without := http.Header{}

	assert.Equal(t, Derive("/foo", without, ignored), Derive("/foo", withExtra, ignored))
}

func TestDerive_DifferentURIDifferentFingerprint(t *testing.T) {
	h := http.Header{}
	assert.NotEqual(t, Derive("/foo", h, nil), Derive("/bar", h, nil))
}

func TestDerive_DifferentHeaderValueDifferentFingerprint(t *testing.T) {
	h1 := http.Header{"X-Custom": {"a"}}
	h2 := http.Header{"X-Custom": {"b"}}
	assert.NotEqual(t, Derive("/foo", h1, nil), Derive("/foo", h2, nil))
}

func TestDerive_IsHexSHA256(t *testing.T) {
	got := Derive("/foo", http.Header{}, nil)
	assert.Len(t, got, 64)
}
