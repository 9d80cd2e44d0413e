// Package origin forwards admitted requests to the configured downstream
// service over a shared HTTP client.
package origin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fenden/cachebolt/internal/cacheerr"
)

// Forwarder issues GET requests to a fixed downstream base URL, forwarding
// the caller's headers except Accept-Encoding and Host.
type Forwarder struct {
	baseURL string
	host    string
	client  *http.Client
}

// New builds a Forwarder. timeout of zero disables the per-request
// deadline, leaving cancellation to the caller's context.
func New(baseURL string, timeout time.Duration) *Forwarder {
	host := ""
	if u, err := url.Parse(baseURL); err == nil {
		host = u.Host
	}
	return &Forwarder{
		baseURL: strings.TrimRight(baseURL, "/"),
		host:    host,
		client:  &http.Client{Timeout: timeout},
	}
}

// Forward sends uri (including query string) to the downstream base URL,
// copying headers from the inbound request. Content-Length, Accept-Encoding
// and Host are stripped; a Host header is reinjected from the configured
// downstream base URL so name-based origins route correctly.
func (f *Forwarder) Forward(ctx context.Context, uri string, inbound http.Header) (*http.Response, error) {
	fullURL := f.baseURL + uri

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &cacheerr.TransportError{URI: uri, Err: fmt.Errorf("build request: %w", err)}
	}

	for name, values := range inbound {
		lower := strings.ToLower(name)
		if lower == "accept-encoding" || lower == "host" {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if f.host != "" {
		req.Host = f.host
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &cacheerr.TransportError{URI: uri, Err: err}
	}
	return resp, nil
}
