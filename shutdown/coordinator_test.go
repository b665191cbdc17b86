package shutdown

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/vinayprograms/requestkit/dedup"
	"github.com/vinayprograms/requestkit/ratelimit"
)

// orderRecorder records handler completion order.
type orderRecorder struct {
	mu    sync.Mutex
	order []string
}

func (r *orderRecorder) handler(name string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.order = append(r.order, name)
		return nil
	}
}

func (r *orderRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func TestCoordinator_PhaseOrder(t *testing.T) {
	c := NewCoordinator()
	rec := &orderRecorder{}

	c.RegisterFunc("providers", PhaseProviders, rec.handler("providers"))
	c.RegisterFunc("intake", PhaseIntake, rec.handler("intake"))
	c.RegisterFunc("queue", PhaseQueue, rec.handler("queue"))
	c.RegisterFunc("batches", PhaseBatches, rec.handler("batches"))

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	want := []string{"intake", "batches", "queue", "providers"}
	if got := rec.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("drain order = %v, want %v", got, want)
	}
}

func TestCoordinator_SamePhaseConcurrent(t *testing.T) {
	c := NewCoordinator()

	var started sync.WaitGroup
	started.Add(2)
	release := make(chan struct{})

	blocking := func(ctx context.Context) error {
		started.Done()
		<-release
		return nil
	}
	c.RegisterFunc("a", PhaseQueue, blocking)
	c.RegisterFunc("b", PhaseQueue, blocking)

	go func() {
		// Both handlers must be running before either may finish.
		started.Wait()
		close(release)
	}()

	done := make(chan error, 1)
	go func() { done <- c.Shutdown(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("same-phase handlers did not run concurrently")
	}
}

func TestCoordinator_SecondCallReturnsFirstError(t *testing.T) {
	c := NewCoordinator()
	c.RegisterFunc("failing", PhaseQueue, func(ctx context.Context) error {
		return fmt.Errorf("drain failed")
	})

	first := c.Shutdown(context.Background())
	if !errors.Is(first, ErrHandlerFailed) {
		t.Fatalf("first Shutdown = %v, want ErrHandlerFailed", first)
	}
	second := c.Shutdown(context.Background())
	if !errors.Is(second, ErrHandlerFailed) {
		t.Errorf("second Shutdown = %v, want first call's error", second)
	}
}

func TestCoordinator_ContinuesPastFailure(t *testing.T) {
	c := NewCoordinator()
	rec := &orderRecorder{}

	c.RegisterFunc("failing", PhaseBatches, func(ctx context.Context) error {
		return fmt.Errorf("flush failed")
	})
	c.RegisterFunc("queue", PhaseQueue, rec.handler("queue"))

	err := c.Shutdown(context.Background())
	if !errors.Is(err, ErrHandlerFailed) {
		t.Fatalf("Shutdown = %v", err)
	}
	if got := rec.snapshot(); !reflect.DeepEqual(got, []string{"queue"}) {
		t.Errorf("later phases skipped after failure: ran %v", got)
	}
	if failed := c.Result().FailedHandlers(); !reflect.DeepEqual(failed, []string{"failing"}) {
		t.Errorf("FailedHandlers = %v", failed)
	}
}

func TestCoordinator_Timeout(t *testing.T) {
	c := NewCoordinator()
	c.RegisterFunc("slow", PhaseBatches, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	c.RegisterFunc("never-reached", PhaseQueue, func(ctx context.Context) error {
		return nil
	})

	err := c.ShutdownWithTimeout(50 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Shutdown = %v, want ErrTimeout", err)
	}
}

func TestCoordinator_DoneAndErr(t *testing.T) {
	c := NewCoordinator()
	if c.Err() != nil {
		t.Errorf("Err before shutdown = %v, want nil", c.Err())
	}
	if c.Result() != nil {
		t.Error("Result before shutdown should be nil")
	}

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	select {
	case <-c.Done():
	default:
		t.Error("Done not closed after Shutdown returned")
	}
	if c.Result() == nil {
		t.Error("Result nil after shutdown")
	}
}

func TestCoordinator_Trigger(t *testing.T) {
	c := NewCoordinator()
	c.SetTimeout(time.Second)
	c.RegisterFunc("noop", PhaseQueue, func(ctx context.Context) error { return nil })

	c.HandleSignals()
	c.Trigger()

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Trigger did not start the drain")
	}
}

func TestRegisterQueue_DrainsPendingRequests(t *testing.T) {
	bucket := ratelimit.NewTokenBucket(1000, 10)
	queue := ratelimit.NewRequestQueue(bucket)

	var executed int32
	var mu sync.Mutex
	for i := 0; i < 5; i++ {
		queue.Enqueue(context.Background(), func(ctx context.Context) (interface{}, error) {
			mu.Lock()
			executed++
			mu.Unlock()
			return nil, nil
		})
	}

	c := NewCoordinator()
	RegisterQueue(c, queue)
	if err := c.ShutdownWithTimeout(5 * time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if executed != 5 {
		t.Errorf("executed %d queued requests during drain, want 5", executed)
	}
}

func TestRegisterBatcher_FlushesPendingBatches(t *testing.T) {
	b := dedup.NewBatcher(time.Hour) // never fires on its own
	flushed := make(chan dedup.Fields, 1)
	b.Batch("widget-1", dedup.Fields{"title": "updated"}, func(fields dedup.Fields) (interface{}, error) {
		flushed <- fields
		return nil, nil
	})

	c := NewCoordinator()
	RegisterBatcher(c, b)
	if err := c.ShutdownWithTimeout(time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	select {
	case fields := <-flushed:
		if fields["title"] != "updated" {
			t.Errorf("flushed fields = %v", fields)
		}
	case <-time.After(time.Second):
		t.Fatal("pending batch was not flushed during drain")
	}
}
