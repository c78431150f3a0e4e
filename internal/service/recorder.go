package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/api/schemas"
)

const (
	runBatchSize    = 20
	runBatchTimeout = 2 * time.Second
	persistTimeout  = 30 * time.Second
)

var (
	// ErrQueueFull is returned when the audit queue cannot take another record.
	ErrQueueFull = errors.New("run queue is full")
	// ErrQueueClosed is returned after Close.
	ErrQueueClosed = errors.New("run queue is closed")
)

// RunPersister writes one run record, e.g. *store.Store.
type RunPersister interface {
	RecordRun(ctx context.Context, run schemas.RunRecord) error
}

// RunQueue decouples the agent from the audit database. RecordRun only
// enqueues; a consumer goroutine persists records in batches.
type RunQueue struct {
	ch     chan schemas.RunRecord
	store  RunPersister
	logger *zap.Logger
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// StartRunQueue launches the consumer. It stops when Close is called or ctx is
// cancelled, persisting whatever is still buffered.
func StartRunQueue(ctx context.Context, store RunPersister, buffer int, logger *zap.Logger) *RunQueue {
	if buffer <= 0 {
		buffer = 256
	}
	q := &RunQueue{
		ch:     make(chan schemas.RunRecord, buffer),
		store:  store,
		logger: logger.Named("run_queue"),
	}
	q.wg.Add(1)
	go q.consume(ctx)
	return q
}

// RecordRun enqueues run without blocking. It implements agent.RunRecorder.
func (q *RunQueue) RecordRun(_ context.Context, run schemas.RunRecord) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- run:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting records and waits up to timeout for the consumer to
// drain. It reports whether the consumer finished in time.
func (q *RunQueue) Close(timeout time.Duration) bool {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()
	return timedWait(&q.wg, timeout)
}

func (q *RunQueue) consume(ctx context.Context) {
	defer q.wg.Done()
	q.logger.Debug("Run queue consumer started.")
	defer q.logger.Debug("Run queue consumer stopped.")

	batch := make([]schemas.RunRecord, 0, runBatchSize)
	ticker := time.NewTicker(runBatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Not derived from ctx: records still get written during shutdown.
		persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		for _, run := range batch {
			if err := q.store.RecordRun(persistCtx, run); err != nil {
				q.logger.Error("Failed to persist run record.", zap.String("run_id", run.ID), zap.Error(err))
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case run, ok := <-q.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, run)
			if len(batch) >= runBatchSize {
				flush()
				ticker.Reset(runBatchTimeout)
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			q.logger.Warn("Run queue context cancelled, draining buffered records.")
			q.drain(&batch)
			flush()
			return
		}
	}
}

func (q *RunQueue) drain(batch *[]schemas.RunRecord) {
	for {
		select {
		case run, ok := <-q.ch:
			if !ok {
				return
			}
			*batch = append(*batch, run)
		default:
			return
		}
	}
}

// timedWait waits for wg, giving up after timeout.
func timedWait(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
