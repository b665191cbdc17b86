package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default rate limiter tuning. These are the only externally tunable
// parameters of the admission layer.
const (
	DefaultTokensPerSecond = 10
	DefaultBurstSize       = 20
)

// TokenBucket is the rate-accounting primitive: a bucket of at most
// burstSize tokens, refilled at tokensPerSecond, with exactly one token
// consumed per admitted operation. It performs no I/O and is safe for
// concurrent use; every observation happens under a single critical
// section so tokens never escape the [0, burst] range.
type TokenBucket struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	nowFunc func() time.Time // for testing
}

// NewTokenBucket creates a bucket refilled at tokensPerSecond with the
// given burst capacity. Non-positive values fall back to the defaults.
func NewTokenBucket(tokensPerSecond float64, burstSize int) *TokenBucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = DefaultTokensPerSecond
	}
	if burstSize <= 0 {
		burstSize = DefaultBurstSize
	}
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Limit(tokensPerSecond), burstSize),
		nowFunc: time.Now,
	}
}

// TryConsume refills the bucket for elapsed time and takes one token if
// at least one is available. Returns false when the caller must wait.
func (b *TokenBucket) TryConsume() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limiter.AllowN(b.nowFunc(), 1)
}

// TimeUntilNextToken reports how long until one token becomes available.
// Returns 0 when TryConsume would succeed immediately.
func (b *TokenBucket) TimeUntilNextToken() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.nowFunc()
	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return rate.InfDuration
	}
	delay := r.DelayFrom(now)
	// Canceling at the reservation instant restores the token untouched.
	r.CancelAt(now)
	return delay
}

// Tokens reports the tokens currently in the bucket.
func (b *TokenBucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limiter.TokensAt(b.nowFunc())
}

// Rate returns the refill rate in tokens per second.
func (b *TokenBucket) Rate() float64 {
	return float64(b.limiter.Limit())
}

// Burst returns the bucket's burst capacity.
func (b *TokenBucket) Burst() int {
	return b.limiter.Burst()
}
