package dedup

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vinayprograms/requestkit/logging"
)

// DefaultTTL bounds how long an unsettled in-flight entry can block new
// attempts for its key. Eviction after the TTL trades "exactly one
// in-flight" for "bounded hang time".
const DefaultTTL = 30 * time.Second

// Operation produces the value for a logical key.
type Operation func(ctx context.Context) (interface{}, error)

// inflight records when an attempt for a key was admitted. The generation
// counter ties settlement cleanup to the attempt that registered it, so a
// hung call settling late cannot clobber a successor's entry.
type inflight struct {
	at  time.Time
	gen uint64
}

// Deduplicator is a keyed in-flight operation cache. At most one
// operation runs per key at any instant; concurrent callers with the same
// key share the original call's settlement, value and error alike.
type Deduplicator struct {
	ttl     time.Duration
	logger  *logging.Logger
	nowFunc func() time.Time // for testing

	mu       sync.Mutex
	group    singleflight.Group
	admitted map[string]inflight
	gen      uint64
}

// NewDeduplicator creates a deduplicator. A non-positive ttl selects
// DefaultTTL.
func NewDeduplicator(ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Deduplicator{
		ttl:      ttl,
		logger:   logging.New().WithComponent("dedup"),
		nowFunc:  time.Now,
		admitted: make(map[string]inflight),
	}
}

// SetLogger replaces the deduplicator's logger.
func (d *Deduplicator) SetLogger(logger *logging.Logger) {
	d.logger = logger.WithComponent("dedup")
}

// Deduplicate invokes op at most once per key across concurrent callers.
// A caller arriving while an operation for key is in flight joins it and
// observes the identical settlement; op is never invoked a second time.
// If the existing entry is older than the TTL it is evicted first and a
// fresh attempt is admitted, even if the old operation never settles.
//
// The operation runs detached from any single caller's cancellation:
// in-flight entries are not cancelable, only evictable.
func (d *Deduplicator) Deduplicate(ctx context.Context, key string, op Operation) (interface{}, error) {
	d.mu.Lock()
	if entry, ok := d.admitted[key]; ok && d.nowFunc().Sub(entry.at) > d.ttl {
		d.group.Forget(key)
		delete(d.admitted, key)
		d.logger.Warn("evicted stale in-flight entry", map[string]interface{}{
			"key": key,
			"age": d.nowFunc().Sub(entry.at).String(),
		})
	}
	entry, joined := d.admitted[key]
	if !joined {
		d.gen++
		entry = inflight{at: d.nowFunc(), gen: d.gen}
		d.admitted[key] = entry
	}
	d.mu.Unlock()

	opCtx := context.WithoutCancel(ctx)
	value, err, shared := d.group.Do(key, func() (interface{}, error) {
		// Unconditional cleanup on settlement, success or failure, but
		// only for the attempt that registered this entry.
		defer func() {
			d.mu.Lock()
			if current, ok := d.admitted[key]; ok && current.gen == entry.gen {
				delete(d.admitted, key)
			}
			d.mu.Unlock()
		}()
		return op(opCtx)
	})
	if shared {
		d.logger.Debug("collapsed duplicate call", map[string]interface{}{"key": key})
	}
	return value, err
}

// InFlight reports the number of keys with an unsettled operation.
func (d *Deduplicator) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.admitted)
}
