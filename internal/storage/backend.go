package storage

import (
	"context"
	"fmt"

	"github.com/fenden/cachebolt/internal/cacheerr"
	"github.com/fenden/cachebolt/internal/config"
	"github.com/fenden/cachebolt/internal/logging"
	"go.uber.org/zap"
)

// DurableStore persists cache entries to a backing object store or
// filesystem, surviving process restarts and hot-cache eviction.
type DurableStore interface {
	// Name identifies the backend for metrics labels ("gcs", "s3", "azure",
	// "local").
	Name() string

	// Store writes body and headers under key. Implementations return a
	// non-nil error on failure and leave logging to the caller; callers
	// treat persistence as best-effort and never block the request path on
	// it.
	Store(ctx context.Context, key string, body []byte, headers []Header) error

	// Load retrieves a previously stored entry. It returns
	// cacheerr.ErrCacheMiss if the key does not exist.
	Load(ctx context.Context, key string) ([]byte, []Header, error)

	// DeleteAll removes every entry belonging to this deployment's app ID
	// and returns the number of objects removed.
	DeleteAll(ctx context.Context) (int, error)
}

// New constructs the DurableStore selected by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config) (DurableStore, error) {
	switch cfg.StorageBackend {
	case config.BackendGCS:
		return newGCSStore(ctx, cfg)
	case config.BackendS3:
		return newS3Store(ctx, cfg)
	case config.BackendAzure:
		return newAzureStore(cfg)
	case config.BackendLocal:
		return newLocalStore(cfg), nil
	default:
		return nil, &cacheerr.BackendInitError{
			Backend: string(cfg.StorageBackend),
			Err:     fmt.Errorf("unknown storage backend"),
		}
	}
}

// NewAll constructs every DurableStore backend regardless of which one
// cfg.StorageBackend selects, tolerating per-backend construction failures
// (such as missing cloud credentials) by logging and omitting that backend.
// Bucket and container names are not checked here: a backend whose name is
// unset is still constructed. Used by the admin purge-everything path, which
// clears every backend concurrently so no stale entries survive a storage
// backend migration.
func NewAll(ctx context.Context, cfg *config.Config, logger *logging.Logger) []DurableStore {
	var stores []DurableStore

	if s, err := newGCSStore(ctx, cfg); err != nil {
		logger.Warn(ctx, "gcs backend unavailable for purge", zap.Error(err))
	} else {
		stores = append(stores, s)
	}
	if s, err := newS3Store(ctx, cfg); err != nil {
		logger.Warn(ctx, "s3 backend unavailable for purge", zap.Error(err))
	} else {
		stores = append(stores, s)
	}
	if s, err := newAzureStore(cfg); err != nil {
		logger.Warn(ctx, "azure backend unavailable for purge", zap.Error(err))
	} else {
		stores = append(stores, s)
	}
	stores = append(stores, newLocalStore(cfg))

	return stores
}
