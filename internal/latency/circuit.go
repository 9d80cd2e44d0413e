// Package latency implements the per-URI failover circuit: once a request
// to a URI breaches its latency threshold, that URI is served from cache
// for a cooldown window instead of hammering a slow origin.
//
// Breach entries are never actively pruned; they expire lazily once
// ShouldFailover's window check passes. For a bounded URI space this is
// fine. An unbounded or attacker-controlled URI space would grow fails
// without limit.
package latency

import (
	"regexp"
	"sync"
	"time"

	"github.com/fenden/cachebolt/internal/config"
)

// failoverWindow is how long a URI stays in failover mode after a breach.
const failoverWindow = 300 * time.Second

type pathRule struct {
	re        *regexp.Regexp
	maxMillis int64
}

// Circuit tracks latency breaches per URI and the configured per-path
// thresholds.
type Circuit struct {
	defaultMaxMillis int64
	rules            []pathRule

	mu    sync.RWMutex
	fails map[string]time.Time
}

// New builds a Circuit from the latency_failover section of the config.
// Path rules with an invalid regex are skipped silently, matching the
// original implementation's best-effort rule loading.
func New(cfg config.LatencyFailover) *Circuit {
	c := &Circuit{
		defaultMaxMillis: cfg.DefaultMaxMillis,
		fails:            make(map[string]time.Time),
	}
	for _, r := range cfg.PathRules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			continue
		}
		c.rules = append(c.rules, pathRule{re: re, maxMillis: r.MaxMillis})
	}
	return c
}

// MaxLatencyFor returns the configured latency threshold for uri, in
// milliseconds, using the first matching path rule or the default.
func (c *Circuit) MaxLatencyFor(uri string) int64 {
	for _, r := range c.rules {
		if r.re.MatchString(uri) {
			return r.maxMillis
		}
	}
	return c.defaultMaxMillis
}

// ShouldFailover reports whether uri is currently within its failover
// cooldown window.
func (c *Circuit) ShouldFailover(uri string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	last, ok := c.fails[uri]
	if !ok {
		return false
	}
	return time.Since(last) < failoverWindow
}

// MarkBreach records that uri just exceeded its latency threshold, starting
// (or refreshing) its failover window.
func (c *Circuit) MarkBreach(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fails[uri] = time.Now()
}
