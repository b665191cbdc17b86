package gateway

import (
	"context"

	"github.com/vinayprograms/requestkit/ratelimit"
)

// Interceptor wraps a Client so every terminal Exec is admitted through
// a RequestQueue before execution while preserving the fluent call shape.
type Interceptor struct {
	client Client
	queue  *ratelimit.RequestQueue
}

// Intercept returns a Client whose builders rate-gate their terminal
// step through queue. The queue (and its bucket) is shared by every
// caller routed through this interceptor.
func Intercept(client Client, queue *ratelimit.RequestQueue) *Interceptor {
	return &Interceptor{client: client, queue: queue}
}

var _ Client = (*Interceptor)(nil)

// From wraps the underlying builder so the chain stays gated end to end.
func (i *Interceptor) From(collection string) Builder {
	return &gatedBuilder{inner: i.client.From(collection), queue: i.queue}
}

// Rpc wraps the underlying builder for server-side function calls.
func (i *Interceptor) Rpc(fn string, args map[string]interface{}) Builder {
	return &gatedBuilder{inner: i.client.Rpc(fn, args), queue: i.queue}
}

// Ping is not a terminal builder step; it passes through unmodified.
func (i *Interceptor) Ping(ctx context.Context) error {
	return i.client.Ping(ctx)
}

// gatedBuilder forwards every intermediate step to the wrapped builder,
// rewrapping the result so the eventual Exec still routes through the
// queue. State lives in the wrapped builder; the gate carries none.
type gatedBuilder struct {
	inner Builder
	queue *ratelimit.RequestQueue
}

var _ Builder = (*gatedBuilder)(nil)

func (b *gatedBuilder) wrap(inner Builder) Builder {
	return &gatedBuilder{inner: inner, queue: b.queue}
}

func (b *gatedBuilder) Select(columns ...string) Builder {
	return b.wrap(b.inner.Select(columns...))
}

func (b *gatedBuilder) Filter(field string, value interface{}) Builder {
	return b.wrap(b.inner.Filter(field, value))
}

func (b *gatedBuilder) Order(field string, ascending bool) Builder {
	return b.wrap(b.inner.Order(field, ascending))
}

func (b *gatedBuilder) Limit(n int) Builder {
	return b.wrap(b.inner.Limit(n))
}

func (b *gatedBuilder) Insert(values map[string]interface{}) Builder {
	return b.wrap(b.inner.Insert(values))
}

func (b *gatedBuilder) Update(values map[string]interface{}) Builder {
	return b.wrap(b.inner.Update(values))
}

func (b *gatedBuilder) Delete() Builder {
	return b.wrap(b.inner.Delete())
}

// Exec is the one step admitted through the rate limiter. The underlying
// operation's outcome, error included, propagates unchanged.
func (b *gatedBuilder) Exec(ctx context.Context) (interface{}, error) {
	handle := b.queue.Enqueue(ctx, func(ctx context.Context) (interface{}, error) {
		return b.inner.Exec(ctx)
	})
	return handle.Wait(ctx)
}
