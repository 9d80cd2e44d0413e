// Package engine implements the request-handling state machine: fingerprint
// derivation, failover/bypass/refresh decisions, admission control,
// origin forwarding, and tiered cache population.
package engine

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/fenden/cachebolt/internal/admission"
	"github.com/fenden/cachebolt/internal/bypass"
	"github.com/fenden/cachebolt/internal/cacheerr"
	"github.com/fenden/cachebolt/internal/config"
	"github.com/fenden/cachebolt/internal/fingerprint"
	"github.com/fenden/cachebolt/internal/hotcache"
	"github.com/fenden/cachebolt/internal/latency"
	"github.com/fenden/cachebolt/internal/logging"
	"github.com/fenden/cachebolt/internal/memmonitor"
	"github.com/fenden/cachebolt/internal/metrics"
	"github.com/fenden/cachebolt/internal/origin"
	"github.com/fenden/cachebolt/internal/persistence"
	"github.com/fenden/cachebolt/internal/refresh"
	"github.com/fenden/cachebolt/internal/storage"
	"go.uber.org/zap"
)

// Engine wires every cache subsystem into a single HTTP handler.
type Engine struct {
	cfg *config.Config

	hot     *hotcache.Cache
	durable storage.DurableStore
	persist *persistence.Queue
	circuit *latency.Circuit
	sampler *refresh.Sampler
	admit   *admission.Controller
	forward *origin.Forwarder
	memmon  *memmonitor.Monitor

	logger  *logging.Logger
	metrics *metrics.Metrics
}

// New builds an Engine from its already-constructed dependencies.
func New(
	cfg *config.Config,
	hot *hotcache.Cache,
	durable storage.DurableStore,
	persist *persistence.Queue,
	circuit *latency.Circuit,
	sampler *refresh.Sampler,
	admit *admission.Controller,
	forward *origin.Forwarder,
	memmon *memmonitor.Monitor,
	logger *logging.Logger,
	m *metrics.Metrics,
) *Engine {
	return &Engine{
		cfg: cfg, hot: hot, durable: durable, persist: persist,
		circuit: circuit, sampler: sampler, admit: admit, forward: forward,
		memmon: memmon, logger: logger, metrics: m,
	}
}

// ServeHTTP implements http.Handler.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uri := r.URL.RequestURI()

	key := fingerprint.Derive(uri, r.Header, e.cfg.IgnoredHeadersSet())

	bypassCache := bypass.ShouldBypass(r.Header)
	sampledRefresh := e.sampler.ShouldRefresh(key)
	forceRefresh := sampledRefresh || bypass.ShouldForceRefresh(r.Header) || bypassCache
	if sampledRefresh {
		e.metrics.RefreshTriggered()
	}
	if forceRefresh {
		e.metrics.Bypass("refresh")
	}

	if e.circuit.ShouldFailover(uri) && !forceRefresh {
		metrics.SetOutcome(ctx, "failover")
		e.metrics.LatencyFailover(uri)
		e.logger.Info(ctx, "serving from cache due to active failover", zap.String("uri", uri))
		e.serveFromCache(ctx, w, key)
		return
	}

	if !e.admit.TryAcquire() {
		e.metrics.AdmissionRejected()
		metrics.SetOutcome(ctx, "admission_rejected")
		if env, ok := e.lookupHot(key); ok {
			e.writeEnvelope(w, env)
			return
		}
		e.logger.Warn(ctx, "admission rejected with no cached fallback",
			zap.String("uri", uri), zap.Error(cacheerr.ErrAdmissionRejected))
		http.Error(w, cacheerr.ErrAdmissionRejected.Error(), http.StatusBadGateway)
		return
	}
	defer e.admit.Release()

	start := time.Now()
	resp, err := e.forward.Forward(ctx, uri, r.Header)
	if err != nil {
		e.logger.Warn(ctx, "downstream request failed", zap.String("uri", uri), zap.Error(err))
		metrics.SetOutcome(ctx, "origin_error")
		e.serveFromCache(ctx, w, key)
		return
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)
	threshold := e.circuit.MaxLatencyFor(uri)
	exceeded := elapsed.Milliseconds() > threshold
	if exceeded {
		e.logger.Warn(ctx, "latency exceeded threshold", zap.String("uri", uri),
			zap.Int64("elapsed_ms", elapsed.Milliseconds()), zap.Int64("threshold_ms", threshold))
		e.circuit.MarkBreach(uri)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.logger.Error(ctx, "failed reading downstream body", err, zap.String("uri", uri))
		metrics.SetOutcome(ctx, "origin_error")
		e.serveFromCache(ctx, w, key)
		return
	}
	resp.Header.Del("Content-Length")
	headers := storage.HeadersFromHTTP(resp.Header)

	fallbackActive := e.circuit.ShouldFailover(uri)
	isSuccess := resp.StatusCode >= 200 && resp.StatusCode < 300

	if !bypassCache && isSuccess && (exceeded || !fallbackActive) {
		env := envelope{body: body, headers: headers, insertedAt: time.Now()}
		e.hot.Put(key, toHotEntry(env))
		e.memmon.EvictIfNeeded(ctx)
		e.persist.Enqueue(key, body, headers)
		e.metrics.CacheMiss("hot")
		metrics.SetOutcome(ctx, "miss")
	} else {
		metrics.SetOutcome(ctx, "bypass")
	}

	for _, h := range headers {
		w.Header().Add(h.Name, h.Value)
	}
	if resp.Header.Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(body)
}

func (e *Engine) lookupHot(key string) (envelope, bool) {
	entry, ok := e.hot.Get(key)
	if !ok {
		return envelope{}, false
	}
	return fromHotEntry(entry), true
}

// serveFromCache attempts the hot tier then the durable tier, returning a
// 502 if neither has the entry.
func (e *Engine) serveFromCache(ctx context.Context, w http.ResponseWriter, key string) {
	if env, ok := e.lookupHot(key); ok {
		e.metrics.CacheHit("hot")
		metrics.SetOutcome(ctx, "hit")
		e.writeEnvelope(w, env)
		return
	}
	e.metrics.CacheMiss("hot")

	body, headers, err := e.durable.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, cacheerr.ErrCacheMiss) {
			e.logger.Error(ctx, "durable load failed", err, zap.String("key", key))
		}
		e.metrics.CacheMiss("durable")
		metrics.SetOutcome(ctx, "miss")
		http.Error(w, "downstream error and no cache", http.StatusBadGateway)
		return
	}

	e.metrics.CacheHit("durable")
	metrics.SetOutcome(ctx, "hit")
	env := envelope{body: body, headers: headers, insertedAt: time.Now()}
	e.hot.Put(key, toHotEntry(env))
	e.writeEnvelope(w, env)
}

func (e *Engine) writeEnvelope(w http.ResponseWriter, env envelope) {
	storage.ApplyTo(w, env.headers)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(env.body)
}
