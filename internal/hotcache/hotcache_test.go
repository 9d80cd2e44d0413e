package hotcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_PutGet(t *testing.T) {
	c := New()
	e := Entry{Body: []byte("hello"), Headers: []Header{{Name: "content-type", Value: "text/plain"}}, InsertedAt: time.Now()}

	c.Put("k1", e)

	got, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, e.Body, got.Body)
	assert.Equal(t, e.Headers, got.Headers)
}

func TestCache_GetMiss(t *testing.T) {
	c := New()
	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestCache_Len(t *testing.T) {
	c := New()
	assert.Equal(t, 0, c.Len())
	c.Put("a", Entry{})
	c.Put("b", Entry{})
	assert.Equal(t, 2, c.Len())
}

func TestCache_EvictOldest(t *testing.T) {
	c := New()
	c.Put("a", Entry{})
	c.Put("b", Entry{})

	key, ok := c.EvictOldest()
	require.True(t, ok)
	assert.Equal(t, "a", key)
	assert.Equal(t, 1, c.Len())

	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestCache_EvictOldest_Empty(t *testing.T) {
	c := New()
	_, ok := c.EvictOldest()
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c := New()
	c.Put("a", Entry{})
	c.Put("b", Entry{})

	n := c.Clear()
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, c.Len())
}

func TestCache_Snapshot(t *testing.T) {
	c := New()
	c.Put("a", Entry{Body: []byte("1")})
	c.Put("b", Entry{Body: []byte("2")})

	snap := c.Snapshot()
	assert.Len(t, snap, 2)
	assert.Equal(t, []byte("1"), snap["a"].Body)
}

func TestCache_GetRefreshesRecency(t *testing.T) {
	c := New()
	c.Put("a", Entry{})
	c.Put("b", Entry{})

	_, ok := c.Get("a")
	require.True(t, ok)

	key, ok := c.EvictOldest()
	require.True(t, ok)
	assert.Equal(t, "b", key, "touching a via Get should make b the least-recently-used entry")
}
