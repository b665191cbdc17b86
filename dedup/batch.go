package dedup

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultBatchDelay is the debounce window for merged partial updates.
const DefaultBatchDelay = 300 * time.Millisecond

// ErrBatchCanceled settles the handles of a batch dropped via CancelBatch.
var ErrBatchCanceled = errors.New("batch canceled before flush")

// Fields is a partial update: a field→value mapping merged into the
// pending batch for a key, last write winning per field.
type Fields map[string]interface{}

// FlushFunc issues one merged update for a key.
type FlushFunc func(fields Fields) (interface{}, error)

// Handle settles exactly once with the flush outcome shared by every
// caller whose update was merged into the same batch.
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

// Done returns a channel that is closed when the batch settles.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the batch flushes (or is canceled) or ctx ends.
func (h *Handle) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-h.done:
		return h.value, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// pendingBatch accumulates merged fields for one key until its debounce
// timer fires.
type pendingBatch struct {
	fields    Fields
	flush     FlushFunc
	timer     *time.Timer
	handle    *Handle
	lastMerge time.Time
}

// Batcher merges rapid successive partial updates to the same entity into
// a single flushed request after a quiet period. At most one pending
// batch exists per key.
type Batcher struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pendingBatch
}

// NewBatcher creates a batcher. A non-positive delay selects
// DefaultBatchDelay.
func NewBatcher(delay time.Duration) *Batcher {
	if delay <= 0 {
		delay = DefaultBatchDelay
	}
	return &Batcher{
		delay:   delay,
		pending: make(map[string]*pendingBatch),
	}
}

// Batch merges partial into the pending batch for key and resets the
// debounce timer. When the timer fires the accumulated mapping is flushed
// in one call to flush. Calling Batch again before the flush fires merges
// into the same batch; calling it after starts a brand-new one. The
// returned handle settles with the flush outcome.
func (b *Batcher) Batch(key string, partial Fields, flush FlushFunc) *Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	pb, ok := b.pending[key]
	if !ok {
		pb = &pendingBatch{
			fields: make(Fields, len(partial)),
			handle: newHandle(),
		}
		pb.timer = time.AfterFunc(b.delay, func() { b.expire(key) })
		b.pending[key] = pb
	} else {
		pb.timer.Reset(b.delay)
	}
	pb.lastMerge = time.Now()

	for field, value := range partial {
		pb.fields[field] = value
	}
	pb.flush = flush
	return pb.handle
}

// CancelBatch drops the pending batch for key without flushing, settling
// its handle with ErrBatchCanceled. Used when the caller knows the entity
// state will be superseded. Returns false if nothing was pending.
func (b *Batcher) CancelBatch(key string) bool {
	b.mu.Lock()
	pb, ok := b.pending[key]
	if ok {
		pb.timer.Stop()
		delete(b.pending, key)
	}
	b.mu.Unlock()

	if !ok {
		return false
	}
	pb.handle.settle(nil, ErrBatchCanceled)
	return true
}

// Pending reports the number of keys with an unflushed batch.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// FlushAll synchronously flushes every pending batch. Intended for
// shutdown so queued edits are not lost.
func (b *Batcher) FlushAll() {
	b.mu.Lock()
	keys := make([]string, 0, len(b.pending))
	for key := range b.pending {
		keys = append(keys, key)
	}
	b.mu.Unlock()

	for _, key := range keys {
		b.fire(key)
	}
}

// fire atomically takes the accumulated mapping and clears the pending
// batch before the merged request is issued, so updates arriving during
// the flush start a fresh batch rather than appending to one in flight.
func (b *Batcher) fire(key string) {
	b.flushBatch(key, true)
}

// expire is the timer callback. A callback can be in flight while Batch
// resets the timer; Reset cannot recall it, so the quiet period is
// rechecked under the lock and a reset batch re-arms for the remainder
// instead of flushing early.
func (b *Batcher) expire(key string) {
	b.flushBatch(key, false)
}

func (b *Batcher) flushBatch(key string, force bool) {
	b.mu.Lock()
	pb, ok := b.pending[key]
	if ok && !force {
		if remaining := b.delay - time.Since(pb.lastMerge); remaining > 0 {
			pb.timer.Reset(remaining)
			b.mu.Unlock()
			return
		}
	}
	if ok {
		pb.timer.Stop()
		delete(b.pending, key)
	}
	b.mu.Unlock()

	if !ok {
		return
	}
	value, err := pb.flush(pb.fields)
	pb.handle.settle(value, err)
}
