package bypass

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldBypass_NoCacheControl(t *testing.T) {
	h := http.Header{"Cache-Control": {"no-cache"}}
	assert.True(t, ShouldBypass(h))
}

func TestShouldBypass_CacheControlCaseInsensitive(t *testing.T) {
	h := http.Header{"Cache-Control": {"No-Cache, must-revalidate"}}
	assert.True(t, ShouldBypass(h))
}

func TestShouldBypass_XBypassCacheHeader(t *testing.T) {
	h := http.Header{"X-Bypass-Cache": {"true"}}
	assert.True(t, ShouldBypass(h))
}

func TestShouldBypass_NoHeaders(t *testing.T) {
	assert.False(t, ShouldBypass(http.Header{}))
}

func TestShouldBypass_UnrelatedCacheControl(t *testing.T) {
	h := http.Header{"Cache-Control": {"max-age=60"}}
	assert.False(t, ShouldBypass(h))
}

func TestShouldForceRefresh(t *testing.T) {
	assert.True(t, ShouldForceRefresh(http.Header{"X-Refresh-Cache": {"true"}}))
	assert.False(t, ShouldForceRefresh(http.Header{"X-Refresh-Cache": {"false"}}))
	assert.False(t, ShouldForceRefresh(http.Header{}))
}
