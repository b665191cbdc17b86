// Package ratelimit keeps outbound call volume under a provider-imposed
// ceiling without losing or reordering caller intent.
//
// Two pieces compose here. The TokenBucket is the pure accounting
// primitive: a fixed burst capacity refilled at a steady rate, one token
// per admitted operation. The RequestQueue serializes operations through
// one bucket in strict arrival order, sleeping between admission attempts
// when the bucket is empty.
//
// # Usage
//
//	bucket := ratelimit.NewTokenBucket(10, 20) // 10 tokens/sec, burst of 20
//	queue := ratelimit.NewRequestQueue(bucket)
//	defer queue.Close(context.Background())
//
//	handle := queue.Enqueue(ctx, func(ctx context.Context) (interface{}, error) {
//	    return client.Do(ctx, req)
//	})
//	result, err := handle.Wait(ctx)
//
// Rate limiting never produces an error, only delay: a queued operation's
// handle settles with the operation's own outcome once admitted. A failing
// operation rejects its own handle and the queue moves on.
//
// One queue/bucket pair is shared by every caller routed through one
// wrapped backend client. Construct it explicitly and own its lifecycle;
// Close drains outstanding entries before returning.
package ratelimit
