package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fenden/cachebolt/internal/cacheerr"
	"github.com/fenden/cachebolt/internal/config"
	"github.com/fenden/cachebolt/internal/hotcache"
	"github.com/fenden/cachebolt/internal/logging"
	"github.com/fenden/cachebolt/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	name    string
	deleted int
	err     error
}

func (f *fakeStore) Name() string { return f.name }
func (f *fakeStore) Store(context.Context, string, []byte, []storage.Header) error {
	return nil
}
func (f *fakeStore) Load(context.Context, string) ([]byte, []storage.Header, error) {
	return nil, nil, cacheerr.ErrCacheMiss
}
func (f *fakeStore) DeleteAll(context.Context) (int, error) {
	return f.deleted, f.err
}

func TestInvalidate_WithoutBackendFlagOnlyClearsHotCache(t *testing.T) {
	hot := hotcache.New()
	hot.Put("k", hotcache.Entry{})
	stores := []storage.DurableStore{&fakeStore{name: "gcs", deleted: 3}}

	h := New(config.Default(), hot, stores, logging.NewNop())

	req := httptest.NewRequest(http.MethodDelete, "/admin/api/cache", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp invalidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Cleared)
	assert.Nil(t, resp.BackendDeleted)
	assert.Equal(t, 0, hot.Len())
}

func TestInvalidate_WithBackendFlagPurgesEveryBackend(t *testing.T) {
	hot := hotcache.New()
	hot.Put("k", hotcache.Entry{})
	stores := []storage.DurableStore{
		&fakeStore{name: "gcs", deleted: 1},
		&fakeStore{name: "s3", deleted: 2},
		&fakeStore{name: "azure", deleted: 3},
		&fakeStore{name: "local", deleted: 4},
	}

	h := New(config.Default(), hot, stores, logging.NewNop())

	req := httptest.NewRequest(http.MethodDelete, "/admin/api/cache?backend=true", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp invalidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, map[string]int{"gcs": 1, "s3": 2, "azure": 3, "local": 4}, resp.BackendDeleted)
}

func TestInvalidate_WithBackendFlagTreatsPerBackendFailureAsNonFatal(t *testing.T) {
	hot := hotcache.New()
	stores := []storage.DurableStore{
		&fakeStore{name: "gcs", err: assertError{}},
		&fakeStore{name: "local", deleted: 5},
	}

	h := New(config.Default(), hot, stores, logging.NewNop())

	req := httptest.NewRequest(http.MethodDelete, "/admin/api/cache?backend=true", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp invalidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.BackendDeleted["gcs"])
	assert.Equal(t, 5, resp.BackendDeleted["local"])
}

type assertError struct{}

func (assertError) Error() string { return "simulated backend failure" }

func TestHealthz(t *testing.T) {
	h := New(config.Default(), hotcache.New(), nil, logging.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}
