// Package config loads and validates the static, read-after-init
// configuration for cachebolt. Config is created once at startup and never
// mutated; the fsnotify watcher started by Watch only logs drift, it never
// swaps the running instance.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fenden/cachebolt/internal/cacheerr"
	"github.com/fenden/cachebolt/internal/logging"
	"github.com/fenden/cachebolt/internal/tracing"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// StorageBackend identifies which DurableStore implementation persists
// cache entries.
type StorageBackend string

const (
	BackendGCS   StorageBackend = "gcs"
	BackendS3    StorageBackend = "s3"
	BackendAzure StorageBackend = "azure"
	BackendLocal StorageBackend = "local"
)

// PathRule maps a regular expression over request URIs to a latency
// threshold in milliseconds.
type PathRule struct {
	Pattern   string `yaml:"pattern"`
	MaxMillis int64  `yaml:"max_latency_ms"`
}

// LatencyFailover configures the per-URI failover threshold used by
// internal/latency.
type LatencyFailover struct {
	DefaultMaxMillis int64      `yaml:"default_max_latency_ms"`
	PathRules        []PathRule `yaml:"path_rules"`
}

// CacheConfig configures the hot tier and its refresh/eviction behavior.
type CacheConfig struct {
	MemoryThreshold   int `yaml:"memory_threshold"`   // 1..100
	RefreshPercentage int `yaml:"refresh_percentage"` // 0..100
	TTLSeconds        int `yaml:"ttl_seconds"`
}

// Config is the complete, read-only application configuration.
type Config struct {
	AppID                 string          `yaml:"app_id"`
	DownstreamBaseURL     string          `yaml:"downstream_base_url"`
	DownstreamTimeoutSecs int             `yaml:"downstream_timeout_secs"`
	MaxConcurrentRequests int             `yaml:"max_concurrent_requests"`
	Cache                 CacheConfig     `yaml:"cache"`
	LatencyFailover       LatencyFailover `yaml:"latency_failover"`
	StorageBackend        StorageBackend  `yaml:"storage_backend"`
	GCSBucket             string          `yaml:"gcs_bucket"`
	S3Bucket              string          `yaml:"s3_bucket"`
	AzureContainer        string          `yaml:"azure_container"`
	IgnoredHeaders        []string        `yaml:"ignored_headers"`
	ProxyPort             int             `yaml:"proxy_port"`
	AdminPort             int             `yaml:"admin_port"`
	LogLevel              string          `yaml:"log_level"`
	Tracing               tracing.TracingConfig `yaml:"tracing"`

	ignoredHeadersSet map[string]struct{}
}

var (
	instance *Config
	once     sync.Once
)

// mandatoryIgnoredHeaders are always excluded from the fingerprint
// regardless of configuration, per spec.
var mandatoryIgnoredHeaders = []string{"x-bypass-cache", "x-refresh-cache", "cache-control"}

// Default returns a Config with sane defaults, mirroring the teacher's
// DefaultConfig helper.
func Default() *Config {
	return &Config{
		MaxConcurrentRequests: 200,
		Cache: CacheConfig{
			MemoryThreshold:   80,
			RefreshPercentage: 0,
			TTLSeconds:        300,
		},
		LatencyFailover: LatencyFailover{
			DefaultMaxMillis: 1000,
		},
		StorageBackend: BackendLocal,
		ProxyPort:      8080,
		AdminPort:      8081,
		LogLevel:       "info",
	}
}

// Load reads and validates a YAML configuration file, returning a fully
// populated Config. It does not mutate the package singleton; call
// LoadSingleton to publish it process-wide.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &cacheerr.ConfigError{Path: path, Err: err}
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, &cacheerr.ConfigError{Path: path, Err: err}
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}

	if err := cfg.validate(); err != nil {
		return nil, &cacheerr.ConfigError{Path: path, Err: err}
	}

	cfg.buildIgnoredHeaders()
	return cfg, nil
}

// LoadSingleton loads the config file and publishes it as the process-wide
// instance exactly once, matching the teacher's sync.Once singleton
// pattern. Subsequent calls still load and validate path (and return its
// error, if any) but then return the first published instance.
func LoadSingleton(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	once.Do(func() {
		instance = cfg
	})
	return instance, nil
}

// Instance returns the process-wide Config, or nil if LoadSingleton has not
// run yet.
func Instance() *Config {
	return instance
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.AppID) == "" {
		return fmt.Errorf("config: app_id must not be empty")
	}
	if c.Cache.MemoryThreshold < 1 || c.Cache.MemoryThreshold > 100 {
		return fmt.Errorf("config: cache.memory_threshold must be in [1,100], got %d", c.Cache.MemoryThreshold)
	}
	if c.Cache.RefreshPercentage < 0 || c.Cache.RefreshPercentage > 100 {
		return fmt.Errorf("config: cache.refresh_percentage must be in [0,100], got %d", c.Cache.RefreshPercentage)
	}
	switch c.StorageBackend {
	case BackendGCS:
		if strings.TrimSpace(c.GCSBucket) == "" {
			return fmt.Errorf("config: gcs backend selected but gcs_bucket is empty")
		}
	case BackendS3:
		if strings.TrimSpace(c.S3Bucket) == "" {
			return fmt.Errorf("config: s3 backend selected but s3_bucket is empty")
		}
	case BackendAzure:
		if strings.TrimSpace(c.AzureContainer) == "" {
			return fmt.Errorf("config: azure backend selected but azure_container is empty")
		}
	case BackendLocal:
		// no required field
	default:
		return fmt.Errorf("config: unknown storage_backend %q", c.StorageBackend)
	}
	if c.MaxConcurrentRequests <= 0 {
		c.MaxConcurrentRequests = 200
	}
	return nil
}

func (c *Config) buildIgnoredHeaders() {
	set := make(map[string]struct{}, len(c.IgnoredHeaders)+len(mandatoryIgnoredHeaders))
	for _, h := range c.IgnoredHeaders {
		set[strings.ToLower(h)] = struct{}{}
	}
	for _, h := range mandatoryIgnoredHeaders {
		set[h] = struct{}{}
	}
	c.ignoredHeadersSet = set
}

// IgnoredHeadersSet returns the lowercase set of header names excluded from
// fingerprint derivation, always including the mandatory set.
func (c *Config) IgnoredHeadersSet() map[string]struct{} {
	if c.ignoredHeadersSet == nil {
		c.buildIgnoredHeaders()
	}
	return c.ignoredHeadersSet
}

// Watch starts a background fsnotify watcher over the config file and logs
// changes. Config is immutable after init, so this never reloads the
// running instance — it exists purely so operators see drift between the
// file on disk and the process's in-memory configuration.
func Watch(path string, logger *logging.Logger) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("config: watch %q: %w", path, err)
	}

	done := make(chan struct{})
	go func() {
		defer watcher.Close()
		debounce := time.NewTimer(0)
		if !debounce.Stop() {
			<-debounce.C
		}
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
					logger.Warn(context.Background(), "config file changed on disk; restart to apply",
						zap.String("path", path), zap.String("op", ev.Op.String()))
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn(context.Background(), "config watcher error", zap.Error(werr))
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}
