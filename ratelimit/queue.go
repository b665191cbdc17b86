package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vinayprograms/requestkit/logging"
)

// ErrClosed is returned for operations enqueued after Close.
var ErrClosed = errors.New("request queue closed")

// maxTokenWait caps how long the drain loop sleeps before rechecking the
// bucket, so shutdown is noticed promptly even at very low refill rates.
const maxTokenWait = time.Second

// Operation is a unit of work admitted through the rate limiter.
type Operation func(ctx context.Context) (interface{}, error)

// Handle settles exactly once with its operation's outcome.
type Handle struct {
	done  chan struct{}
	value interface{}
	err   error
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

func (h *Handle) settle(value interface{}, err error) {
	h.value = value
	h.err = err
	close(h.done)
}

// Done returns a channel that is closed when the handle settles.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the operation settles or ctx ends. If ctx ends first
// the operation keeps running; only the wait is abandoned.
func (h *Handle) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-h.done:
		return h.value, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type queueEntry struct {
	ctx    context.Context
	op     Operation
	handle *Handle
}

// RequestQueue serializes admission of operations through one TokenBucket
// in strict FIFO order. A single drain loop consumes one token per head
// operation, sleeping between attempts while the bucket is empty.
// Head-of-line blocking is intentional: arrival order is admission order.
type RequestQueue struct {
	bucket    *TokenBucket
	logger    *logging.Logger
	sleepFunc func(time.Duration) // for testing

	mu       sync.Mutex
	entries  []*queueEntry
	draining bool
	closed   bool
	idle     chan struct{} // closed when the drain loop exits after Close
}

// NewRequestQueue creates a queue that admits operations through bucket.
func NewRequestQueue(bucket *TokenBucket) *RequestQueue {
	return &RequestQueue{
		bucket:    bucket,
		logger:    logging.New().WithComponent("ratelimit"),
		sleepFunc: time.Sleep,
	}
}

// SetLogger replaces the queue's logger.
func (q *RequestQueue) SetLogger(logger *logging.Logger) {
	q.logger = logger.WithComponent("ratelimit")
}

// Enqueue appends op to the queue and returns a handle that settles with
// the operation's own outcome once admitted and executed. Starting the
// drain loop is idempotent: enqueueing while a drain is active only
// appends. Rate limiting itself never settles a handle with an error.
func (q *RequestQueue) Enqueue(ctx context.Context, op Operation) *Handle {
	handle := newHandle()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		handle.settle(nil, ErrClosed)
		return handle
	}
	q.entries = append(q.entries, &queueEntry{ctx: ctx, op: op, handle: handle})
	depth := len(q.entries)
	start := !q.draining
	if start {
		q.draining = true
	}
	q.mu.Unlock()

	q.logger.Debug("enqueued", map[string]interface{}{"depth": depth})
	if start {
		go q.drain()
	}
	return handle
}

// Len reports the number of operations waiting for admission.
func (q *RequestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close stops accepting new operations and waits for already queued ones
// to drain, or for ctx to end. Operations enqueued after Close settle
// with ErrClosed.
func (q *RequestQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.closed = true
	busy := q.draining || len(q.entries) > 0
	if busy && q.idle == nil {
		q.idle = make(chan struct{})
	}
	idle := q.idle
	q.mu.Unlock()

	if !busy {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain is the single active loop pulling entries through the bucket.
// Never more than one runs at a time; the draining flag guards restarts.
func (q *RequestQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.entries) == 0 {
			q.draining = false
			if q.closed && q.idle != nil {
				close(q.idle)
				q.idle = nil
			}
			q.mu.Unlock()
			return
		}
		entry := q.entries[0]
		q.mu.Unlock()

		// Sleep outside the lock so callers keep appending while the
		// head waits for a token.
		for !q.bucket.TryConsume() {
			wait := q.bucket.TimeUntilNextToken()
			if wait > maxTokenWait {
				wait = maxTokenWait
			}
			if wait <= 0 {
				wait = time.Millisecond
			}
			q.sleepFunc(wait)
		}

		// Remove the head before execution begins.
		q.mu.Lock()
		q.entries = q.entries[1:]
		q.mu.Unlock()

		value, err := entry.op(entry.ctx)
		if err != nil {
			q.logger.Debug("operation failed", map[string]interface{}{"error": err.Error()})
		}
		entry.handle.settle(value, err)
	}
}
