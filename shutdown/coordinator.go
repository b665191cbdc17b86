package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/vinayprograms/requestkit/logging"
)

// Coordinator runs registered handlers phase by phase. Construct one per
// pipeline; the caller owns its lifecycle.
type Coordinator struct {
	timeout time.Duration
	logger  *logging.Logger

	mu           sync.Mutex
	handlers     []registration
	shutdownOnce sync.Once
	shutdownErr  error
	done         chan struct{}
	result       *Result
	signalChan   chan os.Signal
	start        time.Time
}

// NewCoordinator creates a coordinator with the default timeout.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		timeout:    DefaultTimeout,
		logger:     logging.New().WithComponent("shutdown"),
		done:       make(chan struct{}),
		signalChan: make(chan os.Signal, 1),
	}
}

// SetTimeout replaces the default drain timeout.
func (c *Coordinator) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.timeout = timeout
	}
}

// SetLogger replaces the coordinator's logger.
func (c *Coordinator) SetLogger(logger *logging.Logger) {
	if logger != nil {
		c.logger = logger.WithComponent("shutdown")
	}
}

// Register adds a handler to a phase. Lower phases drain first; handlers
// within a phase run concurrently.
func (c *Coordinator) Register(name string, phase int, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, registration{name: name, handler: handler, phase: phase})
}

// RegisterFunc adds a function handler to a phase.
func (c *Coordinator) RegisterFunc(name string, phase int, fn func(ctx context.Context) error) {
	c.Register(name, phase, HandlerFunc(fn))
}

// Shutdown drains every phase in order. Subsequent calls return the first
// call's error.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	first := false
	c.shutdownOnce.Do(func() {
		first = true
		c.start = time.Now()
		c.shutdownErr = c.drain(ctx)
		close(c.done)
	})
	if first {
		return c.shutdownErr
	}
	select {
	case <-c.done:
		return c.shutdownErr
	default:
		return ErrAlreadyShutdown
	}
}

// ShutdownWithTimeout drains with a bounded context. A zero timeout uses
// the coordinator's default.
func (c *Coordinator) ShutdownWithTimeout(timeout time.Duration) error {
	if timeout == 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.Shutdown(ctx)
}

// HandleSignals triggers a drain on SIGTERM or SIGINT.
func (c *Coordinator) HandleSignals() {
	signal.Notify(c.signalChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-c.signalChan
		c.logger.Info("signal received, draining pipeline")
		_ = c.ShutdownWithTimeout(c.timeout)
	}()
}

// Trigger injects a synthetic signal.
func (c *Coordinator) Trigger() {
	select {
	case c.signalChan <- syscall.SIGTERM:
	default:
	}
}

// Done is closed when the drain finishes.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Err returns the drain error. Nil until Done is closed.
func (c *Coordinator) Err() error {
	select {
	case <-c.done:
		return c.shutdownErr
	default:
		return nil
	}
}

// Result returns the per-handler outcomes. Nil until Done is closed.
func (c *Coordinator) Result() *Result {
	select {
	case <-c.done:
		return c.result
	default:
		return nil
	}
}

func (c *Coordinator) drain(ctx context.Context) error {
	c.mu.Lock()
	handlers := make([]registration, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].phase < handlers[j].phase
	})

	result := &Result{Results: make([]HandlerResult, 0, len(handlers))}
	var overallErr error

	for _, group := range groupByPhase(handlers) {
		select {
		case <-ctx.Done():
			c.logger.Error("drain timed out", map[string]interface{}{
				"completed": len(result.Results),
				"remaining": len(handlers) - len(result.Results),
			})
			result.Err = ErrTimeout
			result.TotalDuration = time.Since(c.start)
			c.result = result
			return ErrTimeout
		default:
		}

		for _, hr := range c.drainPhase(ctx, group) {
			result.Results = append(result.Results, hr)
			if hr.Err != nil && overallErr == nil {
				overallErr = ErrHandlerFailed
			}
		}
	}

	result.Err = overallErr
	result.TotalDuration = time.Since(c.start)
	c.result = result
	return overallErr
}

func (c *Coordinator) drainPhase(ctx context.Context, handlers []registration) []HandlerResult {
	results := make([]HandlerResult, len(handlers))
	var wg sync.WaitGroup

	for i, reg := range handlers {
		wg.Add(1)
		go func(idx int, r registration) {
			defer wg.Done()
			start := time.Now()
			err := r.handler.OnShutdown(ctx)
			results[idx] = HandlerResult{
				Name:     r.name,
				Phase:    r.phase,
				Duration: time.Since(start),
				Err:      err,
			}
			if err != nil {
				c.logger.Warn("handler failed", map[string]interface{}{
					"handler": r.name,
					"phase":   r.phase,
					"error":   err.Error(),
				})
				return
			}
			c.logger.Debug("handler done", map[string]interface{}{
				"handler": r.name,
				"phase":   r.phase,
			})
		}(i, reg)
	}

	wg.Wait()
	return results
}

func groupByPhase(handlers []registration) [][]registration {
	if len(handlers) == 0 {
		return nil
	}
	var groups [][]registration
	var current []registration
	phase := handlers[0].phase
	for _, h := range handlers {
		if h.phase != phase {
			groups = append(groups, current)
			current = nil
			phase = h.phase
		}
		current = append(current, h)
	}
	return append(groups, current)
}
