package refresh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampler_ZeroPercentageNeverRefreshes(t *testing.T) {
	s := New(0)
	for i := 0; i < 50; i++ {
		assert.False(t, s.ShouldRefresh("k"))
	}
}

func TestSampler_FiftyPercentRefreshesEveryOtherHit(t *testing.T) {
	s := New(50)
	var got []bool
	for i := 0; i < 4; i++ {
		got = append(got, s.ShouldRefresh("k"))
	}
	assert.Equal(t, []bool{false, true, false, true}, got)
}

func TestSampler_HundredPercentRefreshesEveryHit(t *testing.T) {
	s := New(100)
	for i := 0; i < 5; i++ {
		assert.True(t, s.ShouldRefresh("k"))
	}
}

func TestSampler_CountersAreIndependentPerKey(t *testing.T) {
	s := New(50)
	assert.False(t, s.ShouldRefresh("a"))
	assert.False(t, s.ShouldRefresh("b"))
	assert.True(t, s.ShouldRefresh("a"))
	assert.True(t, s.ShouldRefresh("b"))
	assert.False(t, s.ShouldRefresh("b"))
}
