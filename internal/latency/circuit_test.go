package latency

import (
	"testing"
	"time"

	"github.com/fenden/cachebolt/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestCircuit_DefaultThreshold(t *testing.T) {
	c := New(config.LatencyFailover{DefaultMaxMillis: 500})
	assert.Equal(t, int64(500), c.MaxLatencyFor("/anything"))
}

func TestCircuit_PathRuleOverridesDefault(t *testing.T) {
	c := New(config.LatencyFailover{
		DefaultMaxMillis: 500,
		PathRules: []config.PathRule{
			{Pattern: `^/slow/`, MaxMillis: 5000},
		},
	})
	assert.Equal(t, int64(5000), c.MaxLatencyFor("/slow/report"))
	assert.Equal(t, int64(500), c.MaxLatencyFor("/fast/ping"))
}

func TestCircuit_InvalidRegexSkipped(t *testing.T) {
	c := New(config.LatencyFailover{
		DefaultMaxMillis: 500,
		PathRules: []config.PathRule{
			{Pattern: `(unclosed`, MaxMillis: 9000},
		},
	})
	assert.Equal(t, int64(500), c.MaxLatencyFor("/anything"))
}

func TestCircuit_ShouldFailover_NoBreach(t *testing.T) {
	c := New(config.LatencyFailover{DefaultMaxMillis: 500})
	assert.False(t, c.ShouldFailover("/foo"))
}

func TestCircuit_ShouldFailover_AfterBreach(t *testing.T) {
	c := New(config.LatencyFailover{DefaultMaxMillis: 500})
	c.MarkBreach("/foo")
	assert.True(t, c.ShouldFailover("/foo"))
	assert.False(t, c.ShouldFailover("/bar"), "breach on one URI must not affect another")
}

func TestCircuit_ShouldFailover_WindowExpired(t *testing.T) {
	c := New(config.LatencyFailover{DefaultMaxMillis: 500})
	c.mu.Lock()
	c.fails["/foo"] = time.Now().Add(-failoverWindow - time.Second)
	c.mu.Unlock()

	assert.False(t, c.ShouldFailover("/foo"))
}
