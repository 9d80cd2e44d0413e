package engine

import (
	"time"

	"github.com/fenden/cachebolt/internal/hotcache"
	"github.com/fenden/cachebolt/internal/storage"
)

// envelope is the common in-memory shape used to move a response between
// the hot cache, durable store, and HTTP response writer.
type envelope struct {
	body       []byte
	headers    []storage.Header
	insertedAt time.Time
}

func toHotEntry(e envelope) hotcache.Entry {
	hh := make([]hotcache.Header, len(e.headers))
	for i, h := range e.headers {
		hh[i] = hotcache.Header{Name: h.Name, Value: h.Value}
	}
	return hotcache.Entry{Body: e.body, Headers: hh, InsertedAt: e.insertedAt}
}

func fromHotEntry(e hotcache.Entry) envelope {
	sh := make([]storage.Header, len(e.Headers))
	for i, h := range e.Headers {
		sh[i] = storage.Header{Name: h.Name, Value: h.Value}
	}
	return envelope{body: e.Body, headers: sh, insertedAt: e.InsertedAt}
}
