// Package llm provides the AI-provider capability registry: per provider
// type, a display name and a function to issue one non-streaming request
// against the official SDK for that provider.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ProviderType identifies an interchangeable AI-completion provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderGoogle    ProviderType = "google"
)

// DisplayName returns the user-facing name for a provider type.
func (t ProviderType) DisplayName() string {
	switch t {
	case ProviderAnthropic:
		return "Claude"
	case ProviderOpenAI:
		return "ChatGPT"
	case ProviderGoogle:
		return "Gemini"
	default:
		return string(t)
	}
}

// Valid reports whether the type names a known provider.
func (t ProviderType) Valid() bool {
	switch t {
	case ProviderAnthropic, ProviderOpenAI, ProviderGoogle:
		return true
	}
	return false
}

// ContextItem is one piece of retrieved context attached to a query.
type ContextItem struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// HistoryEntry is one prior conversation turn.
type HistoryEntry struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

// Personalization carries the caller's response-shaping signals.
type Personalization struct {
	Tone      string `json:"tone,omitempty"`
	Audience  string `json:"audience,omitempty"`
	Verbosity string `json:"verbosity,omitempty"`
}

// QueryRequest is one non-streaming AI query.
type QueryRequest struct {
	Message         string           `json:"message"`
	Context         []ContextItem    `json:"context,omitempty"`
	History         []HistoryEntry   `json:"history,omitempty"`
	Provider        ProviderType     `json:"provider"`
	Personalization *Personalization `json:"personalization,omitempty"`
	MaxTokens       int              `json:"max_tokens,omitempty"`
}

// ChartPayload is the optional structured metrics payload a provider may
// embed in its answer as a fenced ```chart block.
type ChartPayload struct {
	Kind   string                   `json:"kind"`
	Title  string                   `json:"title,omitempty"`
	Series []map[string]interface{} `json:"series"`
}

// QueryResponse is a provider's answer to one query.
type QueryResponse struct {
	ResponseText string        `json:"response_text"`
	Chart        *ChartPayload `json:"chart,omitempty"`
	Model        string        `json:"model"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
}

// Provider issues one non-streaming request. Errors carry structured
// codes from the errors package so the fallback coordinator can decide
// between advancing the chain and aborting.
type Provider interface {
	Ask(ctx context.Context, req QueryRequest) (*QueryResponse, error)
}

// Config holds the settings shared by all provider implementations.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string // optional custom endpoint
}

func (c Config) validate(provider ProviderType) error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required for %s", provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required for %s", provider)
	}
	if c.MaxTokens == 0 {
		return fmt.Errorf("max_tokens is required for %s", provider)
	}
	return nil
}

// buildSystemPrompt renders context items and personalization signals
// into the system prompt shared by all providers.
func buildSystemPrompt(req QueryRequest) string {
	var b strings.Builder
	b.WriteString("You are an analytics assistant. Answer from the provided context when possible.")

	if p := req.Personalization; p != nil {
		if p.Tone != "" {
			fmt.Fprintf(&b, " Use a %s tone.", p.Tone)
		}
		if p.Audience != "" {
			fmt.Fprintf(&b, " The reader is %s.", p.Audience)
		}
		if p.Verbosity != "" {
			fmt.Fprintf(&b, " Keep answers %s.", p.Verbosity)
		}
	}

	if len(req.Context) > 0 {
		b.WriteString("\n\nContext:\n")
		for _, item := range req.Context {
			fmt.Fprintf(&b, "## %s\n%s\n", item.Title, item.Content)
		}
	}
	return b.String()
}

// extractChart splits an optional fenced ```chart JSON block out of the
// response text. Returns the text with the block removed and the parsed
// payload, or nil if no valid block is present.
func extractChart(text string) (string, *ChartPayload) {
	const fence = "```chart"
	start := strings.Index(text, fence)
	if start < 0 {
		return text, nil
	}
	rest := text[start+len(fence):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return text, nil
	}

	var chart ChartPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(rest[:end])), &chart); err != nil {
		return text, nil
	}
	cleaned := strings.TrimSpace(text[:start] + rest[end+3:])
	return cleaned, &chart
}
