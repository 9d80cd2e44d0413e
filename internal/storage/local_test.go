package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/fenden/cachebolt/internal/cacheerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalStore(t *testing.T) *localStore {
	t.Helper()
	return &localStore{appID: "testapp", baseDir: t.TempDir()}
}

func TestLocalStore_StoreThenLoad(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()
	headers := []Header{{Name: "content-type", Value: "application/json"}}

	require.NoError(t, s.Store(ctx, "key1", []byte(`{"ok":true}`), headers))

	body, got, err := s.Load(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"ok":true}`), body)
	assert.Equal(t, headers, got)
}

func TestLocalStore_LoadMissReturnsCacheMiss(t *testing.T) {
	s := newTestLocalStore(t)
	_, _, err := s.Load(context.Background(), "nope")
	assert.True(t, errors.Is(err, cacheerr.ErrCacheMiss))
}

func TestLocalStore_DeleteAll(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "a", []byte("1"), nil))
	require.NoError(t, s.Store(ctx, "b", []byte("2"), nil))

	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, _, err = s.Load(ctx, "a")
	assert.True(t, errors.Is(err, cacheerr.ErrCacheMiss))
}

func TestLocalStore_DeleteAllEmptyDirIsNoop(t *testing.T) {
	s := newTestLocalStore(t)
	n, err := s.DeleteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLocalStore_Name(t *testing.T) {
	s := newTestLocalStore(t)
	assert.Equal(t, "local", s.Name())
}
