package config

import (
	"fmt"

	"github.com/vinayprograms/requestkit/llm"
)

// BuildRegistry constructs a provider for each [[provider]] block and
// returns the registry together with the matching connected-provider
// source. Provider construction fails fast on missing credentials.
func (c *Config) BuildRegistry() (*llm.Registry, llm.StaticSource, error) {
	registry := llm.NewRegistry()
	var connected llm.StaticSource

	for _, p := range c.Providers {
		t := llm.ProviderType(p.Type)
		cfg := llm.Config{
			APIKey:    p.ResolvedAPIKey(),
			Model:     p.Model,
			MaxTokens: p.MaxTokens,
			BaseURL:   p.BaseURL,
		}

		var (
			provider llm.Provider
			err      error
		)
		switch t {
		case llm.ProviderAnthropic:
			provider, err = llm.NewAnthropicProvider(cfg)
		case llm.ProviderOpenAI:
			provider, err = llm.NewOpenAIProvider(cfg)
		case llm.ProviderGoogle:
			provider, err = llm.NewGoogleProvider(cfg)
		default:
			err = fmt.Errorf("unknown provider type %q", p.Type)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("building %s provider: %w", p.Type, err)
		}

		registry.Register(t, provider)
		connected = append(connected, llm.ConnectedProvider{
			Type: t,
			Name: t.DisplayName(),
		})
	}
	return registry, connected, nil
}
