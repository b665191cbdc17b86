// Package shutdown drains the request pipeline in order when the process
// stops: new intake first, then pending debounce batches, then the
// rate-limited queue, and finally the provider clients.
package shutdown

import (
	"context"
	"errors"
	"time"
)

// Pipeline phases, drained in ascending order. Handlers in the same phase
// run concurrently.
const (
	PhaseIntake    = 10 // stop accepting new requests
	PhaseBatches   = 20 // flush or cancel pending debounce batches
	PhaseQueue     = 30 // drain queued requests through the rate limiter
	PhaseProviders = 40 // close provider SDK clients
)

// DefaultTimeout bounds a full pipeline drain. The queue phase dominates:
// a full burst at the default refill rate clears within a few seconds.
const DefaultTimeout = 30 * time.Second

var (
	// ErrAlreadyShutdown indicates shutdown was already initiated.
	ErrAlreadyShutdown = errors.New("shutdown already initiated")

	// ErrTimeout indicates the drain did not complete within the timeout.
	ErrTimeout = errors.New("shutdown timeout exceeded")

	// ErrHandlerFailed indicates one or more handlers failed.
	ErrHandlerFailed = errors.New("one or more shutdown handlers failed")
)

// Handler is implemented by pipeline components that need a graceful stop.
// The context is canceled when the shutdown timeout is reached.
type Handler interface {
	OnShutdown(ctx context.Context) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context) error

// OnShutdown implements Handler.
func (f HandlerFunc) OnShutdown(ctx context.Context) error {
	return f(ctx)
}

// HandlerResult records one handler's outcome.
type HandlerResult struct {
	Name     string
	Phase    int
	Duration time.Duration
	Err      error
}

// Result is the outcome of a full drain.
type Result struct {
	TotalDuration time.Duration
	Results       []HandlerResult
	Err           error
}

// FailedHandlers returns the names of handlers that returned an error.
func (r *Result) FailedHandlers() []string {
	var failed []string
	for _, hr := range r.Results {
		if hr.Err != nil {
			failed = append(failed, hr.Name)
		}
	}
	return failed
}

type registration struct {
	name    string
	handler Handler
	phase   int
}
