// Package fingerprint derives the deterministic cache key for an inbound
// request: a SHA-256 digest over the request URI and its non-ignored
// headers, normalized and sorted so semantically identical requests always
// collide on the same key.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
)

// Derive computes the cache fingerprint for uri and headers, excluding any
// header whose lowercase name is present in ignored.
func Derive(uri string, headers http.Header, ignored map[string]struct{}) string {
	pairs := make([]string, 0, len(headers))
	for name, values := range headers {
		lower := strings.ToLower(name)
		if _, skip := ignored[lower]; skip {
			continue
		}
		for _, v := range values {
			pairs = append(pairs, lower+":"+v)
		}
	}
	sort.Strings(pairs)

	var b strings.Builder
	b.WriteString(uri)
	b.WriteByte('|')
	b.WriteString(strings.Join(pairs, ";"))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
