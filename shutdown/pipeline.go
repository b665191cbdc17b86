package shutdown

import (
	"context"
	"io"

	"github.com/vinayprograms/requestkit/dedup"
	"github.com/vinayprograms/requestkit/ratelimit"
)

// RegisterQueue drains the rate-limited queue during PhaseQueue. Requests
// already enqueued complete at the limiter's pace; the context bounds how
// long the drain may take.
func RegisterQueue(c *Coordinator, q *ratelimit.RequestQueue) {
	c.RegisterFunc("request-queue", PhaseQueue, q.Close)
}

// RegisterBatcher flushes pending debounce batches during PhaseBatches so
// buffered updates are not lost on exit.
func RegisterBatcher(c *Coordinator, b *dedup.Batcher) {
	c.RegisterFunc("debounce-batcher", PhaseBatches, func(ctx context.Context) error {
		b.FlushAll()
		return nil
	})
}

// RegisterCloser closes a provider client during PhaseProviders.
func RegisterCloser(c *Coordinator, name string, closer io.Closer) {
	c.RegisterFunc(name, PhaseProviders, func(ctx context.Context) error {
		return closer.Close()
	})
}
