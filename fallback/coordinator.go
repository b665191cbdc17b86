package fallback

import (
	"context"
	"errors"

	"github.com/google/uuid"

	reqerrors "github.com/vinayprograms/requestkit/errors"
	"github.com/vinayprograms/requestkit/llm"
	"github.com/vinayprograms/requestkit/logging"
)

// Attempt records one provider attempt within a run.
type Attempt struct {
	Provider llm.ProviderType `json:"provider"`
	Err      error            `json:"-"`
}

// AttemptTrace correlates every attempt of one run under a single run ID.
type AttemptTrace struct {
	RunID    string    `json:"run_id"`
	Attempts []Attempt `json:"attempts"`
}

// Providers returns the attempted provider names in attempt order.
func (t AttemptTrace) Providers() []string {
	names := make([]string, len(t.Attempts))
	for i, a := range t.Attempts {
		names[i] = string(a.Provider)
	}
	return names
}

// Result is the outcome of a successful run.
type Result struct {
	ResponseText string            `json:"response_text"`
	Chart        *llm.ChartPayload `json:"chart,omitempty"`
	Model        string            `json:"model"`
	InputTokens  int               `json:"input_tokens"`
	OutputTokens int               `json:"output_tokens"`

	ProviderUsed     llm.ProviderType `json:"provider_used"`
	OriginalProvider llm.ProviderType `json:"original_provider"`
	FallbackOccurred bool             `json:"fallback_occurred"`

	Trace AttemptTrace `json:"trace"`
}

// AttemptedProviders returns the providers tried during the run, in order.
func (r *Result) AttemptedProviders() []string {
	return r.Trace.Providers()
}

// Coordinator runs queries with provider fallback. The chain is rebuilt
// per run from the connected-provider source, so configuration changes
// take effect on the next query.
type Coordinator struct {
	asker    llm.Provider
	source   llm.ConnectedSource
	logger   *logging.Logger
	runIDGen func() string
}

// NewCoordinator builds a coordinator over a provider registry and a
// connected-provider source.
func NewCoordinator(asker llm.Provider, source llm.ConnectedSource) *Coordinator {
	return &Coordinator{
		asker:    asker,
		source:   source,
		logger:   logging.New().WithComponent("fallback"),
		runIDGen: uuid.NewString,
	}
}

// SetLogger replaces the coordinator's logger.
func (c *Coordinator) SetLogger(logger *logging.Logger) {
	if logger != nil {
		c.logger = logger.WithComponent("fallback")
	}
}

// RunWithFallback issues one query against the provider chain. Each
// provider is tried at most once. Transient failures, including soft
// failures where a provider answered with nothing usable, advance the
// chain; failures caused by the caller abort immediately with that error.
// When every provider fails the returned error aggregates the attempt
// order and the last underlying failure.
func (c *Coordinator) RunWithFallback(ctx context.Context, req llm.QueryRequest) (*Result, error) {
	runID := c.runIDGen()
	log := c.logger.WithRunID(runID)

	connected, err := c.source.Connected(ctx)
	if err != nil {
		return nil, reqerrors.Wrap(err, "listing connected providers")
	}

	chain, err := BuildChain(req.Provider, connected)
	if err != nil {
		log.Warn("no providers connected")
		return nil, err
	}
	log.Debug("provider chain built", map[string]interface{}{
		"chain":   chain,
		"primary": req.Provider,
	})

	trace := AttemptTrace{RunID: runID}
	var lastErr error

	for i, provider := range chain {
		if err := ctx.Err(); err != nil {
			return nil, reqerrors.Wrap(err, "fallback run canceled",
				reqerrors.WithAttempted(trace.Providers()))
		}

		attempt := req
		attempt.Provider = provider

		resp, err := c.asker.Ask(ctx, attempt)
		trace.Attempts = append(trace.Attempts, Attempt{Provider: provider, Err: err})
		log.Attempt(string(provider), i, err)

		if err == nil {
			return &Result{
				ResponseText:     resp.ResponseText,
				Chart:            resp.Chart,
				Model:            resp.Model,
				InputTokens:      resp.InputTokens,
				OutputTokens:     resp.OutputTokens,
				ProviderUsed:     provider,
				OriginalProvider: chain[0],
				FallbackOccurred: provider != chain[0],
				Trace:            trace,
			}, nil
		}

		if !fallsBack(err) {
			log.Warn("aborting run", map[string]interface{}{
				"provider": provider,
				"error":    err.Error(),
			})
			return nil, reqerrors.Wrap(err, "fallback aborted",
				reqerrors.WithAttempted(trace.Providers()))
		}
		lastErr = err
	}

	log.Error("all providers failed", map[string]interface{}{
		"attempted": trace.Providers(),
	})
	return nil, reqerrors.AllProvidersFailed(trace.Providers(), lastErr)
}

// fallsBack reports whether a failed attempt should advance the chain.
// Errors without a structured code are treated as transient.
func fallsBack(err error) bool {
	var reqErr *reqerrors.Error
	if errors.As(err, &reqErr) {
		return reqErr.Code().FallsBack()
	}
	return true
}
