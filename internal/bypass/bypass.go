// Package bypass decides whether an inbound request must skip the cache
// entirely, reading only client-supplied headers.
package bypass

import (
	"net/http"
	"strings"
)

// ShouldBypass reports whether headers instruct cachebolt to skip both
// cache read and write and hit the origin directly.
func ShouldBypass(headers http.Header) bool {
	if cc := headers.Get("cache-control"); cc != "" {
		if strings.Contains(strings.ToLower(cc), "no-cache") {
			return true
		}
	}
	if v := headers.Get("x-bypass-cache"); strings.EqualFold(v, "true") {
		return true
	}
	return false
}

// ShouldForceRefresh reports whether the client explicitly asked to refresh
// the cached entry from the origin, independent of the probabilistic
// refresh sampler.
func ShouldForceRefresh(headers http.Header) bool {
	return strings.EqualFold(headers.Get("x-refresh-cache"), "true")
}
