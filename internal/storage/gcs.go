package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/fenden/cachebolt/internal/cacheerr"
	"github.com/fenden/cachebolt/internal/config"
	"google.golang.org/api/iterator"
)

type gcsStore struct {
	client *storage.Client
	bucket string
	appID  string
}

func newGCSStore(ctx context.Context, cfg *config.Config) (*gcsStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, &cacheerr.BackendInitError{Backend: "gcs", Err: err}
	}
	return &gcsStore{client: client, bucket: cfg.GCSBucket, appID: cfg.AppID}, nil
}

func (s *gcsStore) Name() string { return "gcs" }

func (s *gcsStore) object(key string) string {
	return fmt.Sprintf("cache/%s/%s", s.appID, key)
}

func (s *gcsStore) Store(ctx context.Context, key string, body []byte, headers []Header) error {
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

	obj := s.client.Bucket(s.bucket).Object(s.object(key))
	w := obj.NewWriter(ctx)
	w.ContentType = "application/gzip"
	if _, err := w.Write(buf.Bytes()); err != nil {
		w.Close()
		return &cacheerr.DurableIOError{Backend: s.Name(), Op: "upload", Err: err}
	}
	if err := w.Close(); err != nil {
		return &cacheerr.DurableIOError{Backend: s.Name(), Op: "upload", Err: err}
	}
	return nil
}

func (s *gcsStore) Load(ctx context.Context, key string) ([]byte, []Header, error) {
	obj := s.client.Bucket(s.bucket).Object(s.object(key))
	r, err := obj.NewReader(ctx)
	if err != nil {
		if err == storage.ErrObjectNotExist {
			return nil, nil, cacheerr.ErrCacheMiss
		}
		return nil, nil, &cacheerr.DurableIOError{Backend: s.Name(), Op: "download", Err: err}
	}
	defer r.Close()

	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, &cacheerr.DurableIOError{Backend: s.Name(), Op: "download", Err: err}
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

func (s *gcsStore) DeleteAll(ctx context.Context) (int, error) {
	prefix := fmt.Sprintf("cache/%s/", s.appID)
	bucket := s.client.Bucket(s.bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	count := 0
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return count, &cacheerr.DurableIOError{Backend: s.Name(), Op: "list", Err: err}
		}
		if err := bucket.Object(attrs.Name).Delete(ctx); err == nil {
			count++
		}
	}
	return count, nil
}
