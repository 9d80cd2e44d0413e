// Package storage implements the durable cache tier: a DurableStore
// interface and four backends (GCS, S3, Azure Blob, local filesystem)
// matching the on-disk/object formats of cachebolt's original
// implementation, preserved per-backend for cross-deployment compatibility.
package storage

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Header is a single response header preserved in stored cache entries.
// A slice (rather than http.Header) keeps field order stable across the
// gzip+JSON round trip, matching the wire format each backend persists.
type Header struct {
	Name  string
	Value string
}

// MarshalJSON encodes a Header as a two-element [name, value] array, the
// tuple shape the original implementation persists rather than an object.
func (h Header) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{h.Name, h.Value})
}

// UnmarshalJSON decodes a Header from a two-element [name, value] array.
func (h *Header) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("header: decode tuple: %w", err)
	}
	h.Name, h.Value = pair[0], pair[1]
	return nil
}

// HeadersFromHTTP converts http.Header into the ordered Header slice stored
// alongside cached bodies.
func HeadersFromHTTP(h http.Header) []Header {
	out := make([]Header, 0, len(h))
	for name, values := range h {
		for _, v := range values {
			out = append(out, Header{Name: name, Value: v})
		}
	}
	return out
}

// ApplyTo writes the stored headers onto an http.ResponseWriter, adding a
// default Content-Type when none was preserved.
func ApplyTo(w http.ResponseWriter, headers []Header) {
	hasContentType := false
	for _, h := range headers {
		if strings.EqualFold(h.Name, "content-type") {
			hasContentType = true
		}
		w.Header().Add(h.Name, h.Value)
	}
	if !hasContentType {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
}
