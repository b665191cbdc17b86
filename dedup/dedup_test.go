package dedup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDeduplicator_ConcurrentCallsCollapse(t *testing.T) {
	d := NewDeduplicator(0)

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})

	op := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]interface{}, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = d.Deduplicate(context.Background(), "user:1", op)
		}()
	}

	<-started
	// Give the second caller time to join the in-flight entry
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("operation invoked %d times, want exactly 1", got)
	}
	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d err = %v", i, errs[i])
		}
		if results[i] != "shared" {
			t.Errorf("caller %d value = %v, want shared", i, results[i])
		}
	}
}

func TestDeduplicator_SharedFailure(t *testing.T) {
	d := NewDeduplicator(0)

	boom := errors.New("upstream down")
	release := make(chan struct{})
	op := func(ctx context.Context) (interface{}, error) {
		<-release
		return nil, boom
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = d.Deduplicate(context.Background(), "user:1", op)
		}()
	}
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, boom) {
			t.Errorf("caller %d err = %v, want shared boom", i, err)
		}
	}
}

func TestDeduplicator_FreshCallAfterSettlement(t *testing.T) {
	d := NewDeduplicator(0)

	var calls int32
	op := func(ctx context.Context) (interface{}, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	first, err := d.Deduplicate(context.Background(), "user:1", op)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := d.Deduplicate(context.Background(), "user:1", op)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if first != int32(1) || second != int32(2) {
		t.Errorf("results = %v, %v; settled entries must not be reused", first, second)
	}
	if d.InFlight() != 0 {
		t.Errorf("InFlight() = %d after settlement, want 0", d.InFlight())
	}
}

func TestDeduplicator_DistinctKeysDoNotCollapse(t *testing.T) {
	d := NewDeduplicator(0)

	var calls int32
	op := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}

	d.Deduplicate(context.Background(), "user:1", op)
	d.Deduplicate(context.Background(), "user:2", op)

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("operation invoked %d times for 2 keys, want 2", got)
	}
}

func TestDeduplicator_TTLEvictsHungEntry(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	advance := func(d time.Duration) {
		mu.Lock()
		clock = clock.Add(d)
		mu.Unlock()
	}

	d := NewDeduplicator(30 * time.Second)
	d.nowFunc = now

	started := make(chan struct{})
	hang := make(chan struct{})
	go d.Deduplicate(context.Background(), "user:1", func(ctx context.Context) (interface{}, error) {
		close(started)
		<-hang // never settles during the test
		return nil, nil
	})
	<-started
	defer close(hang)

	// Inside the TTL the hung entry still owns the key
	if d.InFlight() != 1 {
		t.Fatalf("InFlight() = %d, want 1", d.InFlight())
	}

	// Past the TTL a new attempt must be admitted despite the hung call
	advance(31 * time.Second)
	done := make(chan struct{})
	var fresh interface{}
	var err error
	go func() {
		fresh, err = d.Deduplicate(context.Background(), "user:1",
			func(ctx context.Context) (interface{}, error) {
				return "fresh", nil
			})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("new attempt blocked behind stale in-flight entry")
	}
	if err != nil {
		t.Fatalf("fresh attempt: %v", err)
	}
	if fresh != "fresh" {
		t.Errorf("fresh value = %v, want fresh", fresh)
	}
}

func TestDeduplicator_DetachedFromCallerCancellation(t *testing.T) {
	d := NewDeduplicator(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already canceled before the call

	value, err := d.Deduplicate(ctx, "user:1", func(ctx context.Context) (interface{}, error) {
		// The operation context must not inherit the caller's cancellation
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if value != "ok" {
		t.Errorf("value = %v, want ok", value)
	}
}
