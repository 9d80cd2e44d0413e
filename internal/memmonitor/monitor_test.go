package memmonitor

import (
	"context"
	"testing"

	"github.com/fenden/cachebolt/internal/hotcache"
	"github.com/fenden/cachebolt/internal/logging"
	"github.com/fenden/cachebolt/internal/metrics"
	"github.com/stretchr/testify/assert"
)

var sharedMetrics = metrics.New()

func TestMonitor_EvictIfNeeded_BelowThresholdNoEviction(t *testing.T) {
	cache := hotcache.New()
	cache.Put("a", hotcache.Entry{})

	m := NewWithUsage(cache, 80, func() (uint64, uint64, error) {
		return 50, 100, nil
	}, logging.NewNop(), sharedMetrics)

	m.EvictIfNeeded(context.Background())
	assert.Equal(t, 1, cache.Len())
}

func TestMonitor_EvictIfNeeded_AboveThresholdEvictsUntilEmpty(t *testing.T) {
	cache := hotcache.New()
	cache.Put("a", hotcache.Entry{})
	cache.Put("b", hotcache.Entry{})
	cache.Put("c", hotcache.Entry{})

	m := NewWithUsage(cache, 80, func() (uint64, uint64, error) {
		return 90, 100, nil
	}, logging.NewNop(), sharedMetrics)

	m.EvictIfNeeded(context.Background())
	assert.Equal(t, 0, cache.Len(), "eviction loop keeps resampling the same fixed reading and never sees usage drop")
}

func TestMonitor_EvictIfNeeded_TotalZeroIsNoop(t *testing.T) {
	cache := hotcache.New()
	cache.Put("a", hotcache.Entry{})

	m := NewWithUsage(cache, 80, func() (uint64, uint64, error) {
		return 0, 0, nil
	}, logging.NewNop(), sharedMetrics)

	m.EvictIfNeeded(context.Background())
	assert.Equal(t, 1, cache.Len())
}
