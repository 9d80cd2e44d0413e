package middleware

import (
	"net/http"

	"github.com/fenden/cachebolt/internal/metrics"
)

// metricsMiddleware adapts Prometheus metrics into Middleware.
type metricsMiddleware struct {
	m *metrics.Metrics
}

// NewMetrics constructs the metrics middleware around an already-registered
// Metrics instance.
func NewMetrics(m *metrics.Metrics) Middleware {
	return &metricsMiddleware{m: m}
}

// Wrap instruments each request with Prometheus metrics and seeds the
// outcome label the engine later fills in.
func (mm *metricsMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := metrics.WithOutcome(r.Context(), "unknown")
		mm.m.HTTPMiddleware(next).ServeHTTP(w, r.WithContext(ctx))
	})
}
