// Package persistence provides a bounded, asynchronous write-behind queue
// that moves cache entries from the hot tier into a DurableStore without
// blocking the request path. Writes are at-most-once: a full queue drops
// the newest entry rather than applying backpressure.
package persistence

import (
	"context"

	"github.com/fenden/cachebolt/internal/logging"
	"github.com/fenden/cachebolt/internal/metrics"
	"github.com/fenden/cachebolt/internal/storage"
	"go.uber.org/zap"
)

const queueCapacity = 100

type writeJob struct {
	key     string
	body    []byte
	headers []storage.Header
}

// Queue is a single background writer draining a bounded channel into a
// DurableStore.
type Queue struct {
	jobs    chan writeJob
	store   storage.DurableStore
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// New constructs a Queue and starts its background writer goroutine, which
// runs until ctx is cancelled.
func New(ctx context.Context, store storage.DurableStore, logger *logging.Logger, m *metrics.Metrics) *Queue {
	q := &Queue{
		jobs:    make(chan writeJob, queueCapacity),
		store:   store,
		logger:  logger,
		metrics: m,
	}
	go q.run(ctx)
	return q
}

// Enqueue submits an entry for persistence without blocking, dropping it
// with a warning log if the queue is full.
func (q *Queue) Enqueue(key string, body []byte, headers []storage.Header) {
	job := writeJob{key: key, body: body, headers: headers}
	select {
	case q.jobs <- job:
	default:
		q.logger.Warn(context.Background(), "persistence queue full, dropping write",
			zap.String("key", key))
	}
	q.metrics.SetQueueDepth(len(q.jobs))
}

func (q *Queue) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error(context.Background(), "persistence writer panicked", nil, zap.Any("panic", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.metrics.SetQueueDepth(len(q.jobs))
			q.write(ctx, job)
		}
	}
}

func (q *Queue) write(ctx context.Context, job writeJob) {
	backend := q.store.Name()
	q.metrics.PersistAttempt(backend)
	if err := q.store.Store(ctx, job.key, job.body, job.headers); err != nil {
		q.metrics.PersistError(backend)
		q.logger.Error(ctx, "durable store write failed", err, zap.String("key", job.key), zap.String("backend", backend))
	}
}
