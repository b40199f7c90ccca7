package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/appforge/appforge-backend/internal/apperr"
)

const (
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultMaxTokens      = 8192
)

// AnthropicConfig configures AnthropicProvider
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
	// Options are appended to the client options, e.g. option.WithBaseURL in tests.
	Options []option.RequestOption
}

// AnthropicProvider streams completions from the Anthropic Messages API
type AnthropicProvider struct {
	cfg AnthropicConfig
}

// NewAnthropicProvider creates a new AnthropicProvider
func NewAnthropicProvider(cfg AnthropicConfig) *AnthropicProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &AnthropicProvider{cfg: cfg}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Ready() error {
	if p.cfg.APIKey == "" {
		return apperr.Configuration("ANTHROPIC_API_KEY not configured")
	}
	return nil
}

func (p *AnthropicProvider) Stream(ctx context.Context, req StreamRequest, onToken TokenFunc) error {
	if err := p.Ready(); err != nil {
		return err
	}

	opts := append([]option.RequestOption{option.WithAPIKey(p.cfg.APIKey)}, p.cfg.Options...)
	client := anthropic.NewClient(opts...)

	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.cfg.Model),
		MaxTokens: p.cfg.MaxTokens,
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	stream := client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				if err := onToken(delta.Text); err != nil {
					return err
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropic stream: %w", err)
	}
	return nil
}
