package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	reqerrors "github.com/vinayprograms/requestkit/errors"
)

// AnthropicProvider issues queries through the official Anthropic SDK.
type AnthropicProvider struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicProvider creates an Anthropic provider. SDK-level retries
// are disabled: the fallback chain is the retry mechanism.
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	if err := cfg.validate(ProviderAnthropic); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := anthropic.NewClient(opts...)

	return &AnthropicProvider{
		client:    &client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Ask implements the Provider interface.
func (p *AnthropicProvider) Ask(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, turn := range req.History {
		switch turn.Role {
		case "user":
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(turn.Content),
			))
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(turn.Content),
			))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(
		anthropic.NewTextBlock(req.Message),
	))

	maxTokens := int64(p.maxTokens)
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		Messages:  messages,
		System: []anthropic.TextBlockParam{
			{Text: buildSystemPrompt(req)},
		},
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, Classify(ProviderAnthropic, err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if strings.TrimSpace(text) == "" {
		// Transport-level success with unusable content
		return nil, reqerrors.SoftFailure(string(ProviderAnthropic))
	}

	cleaned, chart := extractChart(text)
	return &QueryResponse{
		ResponseText: cleaned,
		Chart:        chart,
		Model:        string(resp.Model),
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}
