package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fenden/cachebolt/internal/cacheerr"
	"github.com/fenden/cachebolt/internal/config"
)

// localBlob is the on-disk JSON shape: base64 body plus ordered headers,
// gzip-compressed as a whole.
type localBlob struct {
	Body    string   `json:"body"`
	Headers []Header `json:"headers"`
}

type localStore struct {
	appID   string
	baseDir string
}

func newLocalStore(cfg *config.Config) *localStore {
	return &localStore{appID: cfg.AppID, baseDir: "storage/cache"}
}

func (s *localStore) Name() string { return "local" }

func (s *localStore) path(key string) string {
	return filepath.Join(s.baseDir, s.appID, key+".gz")
}

func (s *localStore) Store(_ context.Context, key string, body []byte, headers []Header) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &cacheerr.DurableIOError{Backend: s.Name(), Op: "mkdir", Err: err}
	}

	blob := localBlob{Body: base64.StdEncoding.EncodeToString(body), Headers: headers}
	raw, err := json.Marshal(blob)
	if err != nil {
		return &cacheerr.DurableIOError{Backend: s.Name(), Op: "marshal", Err: err}
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		return &cacheerr.DurableIOError{Backend: s.Name(), Op: "compress", Err: err}
	}
	if err := gz.Close(); err != nil {
		return &cacheerr.DurableIOError{Backend: s.Name(), Op: "compress", Err: err}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &cacheerr.DurableIOError{Backend: s.Name(), Op: "write", Err: err}
	}
	return nil
}

func (s *localStore) Load(_ context.Context, key string) ([]byte, []Header, error) {
	path := s.path(key)
	compressed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, cacheerr.ErrCacheMiss
		}
		return nil, nil, &cacheerr.DurableIOError{Backend: s.Name(), Op: "read", Err: err}
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: gzip open: %v", cacheerr.ErrDecode, err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: gzip read: %v", cacheerr.ErrDecode, err)
	}

	var blob localBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil, nil, fmt.Errorf("%w: json: %v", cacheerr.ErrDecode, err)
	}

	body, err := base64.StdEncoding.DecodeString(blob.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: base64: %v", cacheerr.ErrDecode, err)
	}
	return body, blob.Headers, nil
}

func (s *localStore) DeleteAll(_ context.Context) (int, error) {
	dir := filepath.Join(s.baseDir, s.appID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, &cacheerr.DurableIOError{Backend: s.Name(), Op: "readdir", Err: err}
	}
	count := 0
	for _, e := range entries {
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			count++
		}
	}
	return count, nil
}
