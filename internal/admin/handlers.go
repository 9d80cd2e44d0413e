// Package admin exposes the operator-facing control surface: cache
// invalidation and hot-cache status inspection, served on a port separate
// from the proxy traffic.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/fenden/cachebolt/internal/config"
	"github.com/fenden/cachebolt/internal/hotcache"
	"github.com/fenden/cachebolt/internal/logging"
	"github.com/fenden/cachebolt/internal/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handlers bundles the dependencies the admin API needs.
type Handlers struct {
	cfg      *config.Config
	hot      *hotcache.Cache
	durables []storage.DurableStore
	logger   *logging.Logger
}

// New builds the admin Handlers and mounts them under a chi router. durables
// is every constructed backend (see storage.NewAll), not just the one
// selected by cfg.StorageBackend, so a purge clears all of them.
func New(cfg *config.Config, hot *hotcache.Cache, durables []storage.DurableStore, logger *logging.Logger) http.Handler {
	h := &Handlers{cfg: cfg, hot: hot, durables: durables, logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", h.healthz)
	r.Delete("/admin/api/cache", h.invalidate)
	r.Get("/admin/api/status", h.status)
	return r
}

func (h *Handlers) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type invalidateResponse struct {
	Message        string         `json:"message"`
	Cleared        int            `json:"cleared"`
	BackendDeleted map[string]int `json:"backend_deleted,omitempty"`
}

// invalidate handles DELETE /admin/api/cache?backend=true, clearing the hot
// cache and, when requested, purging every durable backend concurrently —
// not just the one currently selected by cfg.StorageBackend — so no stale
// entries survive a storage backend migration.
func (h *Handlers) invalidate(w http.ResponseWriter, r *http.Request) {
	backendFlag := r.URL.Query().Get("backend") == "true"

	cleared := h.hot.Clear()
	h.logger.Info(r.Context(), "cleared hot cache", zap.Int("count", cleared))

	resp := invalidateResponse{Message: "cleared hot cache only", Cleared: cleared}

	if backendFlag {
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		g, gctx := errgroup.WithContext(ctx)
		deleted := make(map[string]int, len(h.durables))
		var mu sync.Mutex
		for _, store := range h.durables {
			store := store
			g.Go(func() error {
				n, err := store.DeleteAll(gctx)
				if err != nil {
					h.logger.Warn(gctx, "backend purge failed", zap.String("backend", store.Name()), zap.Error(err))
				}
				mu.Lock()
				deleted[store.Name()] = n
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		resp.Message = "cleared hot cache and purged all durable backends"
		resp.BackendDeleted = deleted
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type cacheEntryStatus struct {
	InsertedAt      string `json:"inserted_at"`
	SizeBytes       int    `json:"size_bytes"`
	TTLRemainingSec int64  `json:"ttl_remaining_secs"`
}

// status handles GET /admin/api/status, reporting every hot-cache entry's
// age and remaining TTL.
func (h *Handlers) status(w http.ResponseWriter, r *http.Request) {
	snapshot := h.hot.Snapshot()
	now := time.Now()
	ttl := time.Duration(h.cfg.Cache.TTLSeconds) * time.Second

	out := make(map[string]cacheEntryStatus, len(snapshot))
	for key, entry := range snapshot {
		elapsed := now.Sub(entry.InsertedAt)
		remaining := ttl - elapsed
		if remaining < 0 {
			remaining = 0
		}
		out[key] = cacheEntryStatus{
			InsertedAt:      entry.InsertedAt.Format(time.RFC3339),
			SizeBytes:       len(entry.Body),
			TTLRemainingSec: int64(remaining.Seconds()),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
