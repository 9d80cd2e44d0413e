package storage

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader_MarshalsAsTwoElementArray(t *testing.T) {
	h := Header{Name: "content-type", Value: "text/plain"}

	raw, err := json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `["content-type","text/plain"]`, string(raw))
}

func TestHeader_UnmarshalsFromTwoElementArray(t *testing.T) {
	var h Header
	require.NoError(t, json.Unmarshal([]byte(`["x-cache","HIT"]`), &h))
	assert.Equal(t, Header{Name: "x-cache", Value: "HIT"}, h)
}

func TestHeader_RoundTripThroughLocalBlob(t *testing.T) {
	blob := localBlob{
		Body: "aGVsbG8=",
		Headers: []Header{
			{Name: "content-type", Value: "application/json"},
			{Name: "x-cache", Value: "HIT"},
		},
	}

	raw, err := json.Marshal(blob)
	require.NoError(t, err)
	assert.JSONEq(t, `{"body":"aGVsbG8=","headers":[["content-type","application/json"],["x-cache","HIT"]]}`, string(raw))

	var decoded localBlob
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, blob, decoded)
}

func TestHeadersFromHTTP(t *testing.T) {
	h := http.Header{"X-Custom": {"a", "b"}}
	out := HeadersFromHTTP(h)
	assert.Len(t, out, 2)
}
