// Package memmonitor runs a background loop sampling host memory usage and
// evicting hot-cache entries while usage sits above the configured
// threshold, complementing the on-write eviction check in internal/engine.
package memmonitor

import (
	"context"
	"time"

	"github.com/fenden/cachebolt/internal/hotcache"
	"github.com/fenden/cachebolt/internal/logging"
	"github.com/fenden/cachebolt/internal/metrics"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

const sampleInterval = 1 * time.Second

// UsageFunc returns the current (used, total) host memory in KiB. It is a
// seam for tests to inject synthetic readings.
type UsageFunc func() (usedKiB, totalKiB uint64, err error)

// Monitor drives periodic memory sampling and cache eviction.
type Monitor struct {
	cache     *hotcache.Cache
	threshold int // percent, 1-100
	usage     UsageFunc
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// New builds a Monitor backed by gopsutil's host memory reader.
func New(cache *hotcache.Cache, thresholdPercent int, logger *logging.Logger, m *metrics.Metrics) *Monitor {
	return NewWithUsage(cache, thresholdPercent, gopsutilUsage, logger, m)
}

// NewWithUsage builds a Monitor with a caller-supplied usage sampler,
// letting tests substitute synthetic memory readings instead of gopsutil.
func NewWithUsage(cache *hotcache.Cache, thresholdPercent int, usage UsageFunc, logger *logging.Logger, m *metrics.Metrics) *Monitor {
	return &Monitor{
		cache:     cache,
		threshold: thresholdPercent,
		usage:     usage,
		logger:    logger,
		metrics:   m,
	}
}

func gopsutilUsage() (uint64, uint64, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, err
	}
	return v.Used / 1024, v.Total / 1024, nil
}

// EvictIfNeeded pops entries from the hot cache while usage is at or above
// the configured threshold, called both by the background loop and
// synchronously after every cache write.
func (m *Monitor) EvictIfNeeded(ctx context.Context) {
	usedKiB, totalKiB, err := m.usage()
	if err != nil || totalKiB == 0 {
		return
	}

	percent := usedKiB * 100 / totalKiB
	if percent < uint64(m.threshold) {
		return
	}

	m.logger.Warn(ctx, "hot cache over memory threshold, evicting",
		zap.Uint64("usage_percent", percent), zap.Int("threshold_percent", m.threshold))

	for {
		usedKiB, totalKiB, err := m.usage()
		if err != nil || totalKiB == 0 {
			return
		}
		if usedKiB*100/totalKiB < uint64(m.threshold) {
			return
		}
		key, ok := m.cache.EvictOldest()
		if !ok {
			return
		}
		m.metrics.Eviction()
		m.logger.Debug(ctx, "evicted hot cache entry", zap.String("key", key))
	}
}

// Run starts the 1-second sampling loop, exiting when ctx is cancelled.
// Eviction is only triggered when usage increased since the last sample, a
// monotonic-increase guard matching the upstream implementation's adaptive
// behavior — a usage dip never re-triggers an eviction pass on its own.
func (m *Monitor) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error(context.Background(), "memory monitor panicked", nil, zap.Any("panic", r))
		}
	}()

	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	var lastPercent uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			usedKiB, totalKiB, err := m.usage()
			if err != nil || totalKiB == 0 {
				continue
			}
			percent := usedKiB * 100 / totalKiB
			if percent > lastPercent {
				m.EvictIfNeeded(ctx)
			}
			lastPercent = percent
		}
	}
}
