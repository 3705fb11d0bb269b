// Package llm wraps the text-completion providers behind a single Oracle.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrOracleUnavailable is wrapped by every failed completion: network,
// quota, timeout, unknown provider or an empty reply.
var ErrOracleUnavailable = errors.New("oracle unavailable")

// Oracle answers one (system, user) prompt pair with the full reply text.
// Implementations never retry and never return partial text.
type Oracle interface {
	Complete(ctx context.Context, system, user, model string) (string, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, system, user, model string) (string, error)

// Complete calls f.
func (f OracleFunc) Complete(ctx context.Context, system, user, model string) (string, error) {
	return f(ctx, system, user, model)
}

// unavailable wraps err so callers can test for ErrOracleUnavailable.
func unavailable(provider string, err error) error {
	if errors.Is(err, ErrOracleUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrOracleUnavailable, provider, err)
}

// AnthropicClient completes prompts with the Messages API.
type AnthropicClient struct {
	api       *anthropic.Client
	maxTokens int64
}

// NewAnthropic creates a client with the given API key. An empty key falls
// back to the SDK's ANTHROPIC_API_KEY lookup.
func NewAnthropic(apiKey string, maxTokens int64) *AnthropicClient {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{
		api:       &client,
		maxTokens: maxTokens,
	}
}

// Complete sends one user message under the system prompt.
func (c *AnthropicClient) Complete(ctx context.Context, system, user, model string) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", unavailable("anthropic", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", unavailable("anthropic", errors.New("no text content in API response"))
	}
	return sb.String(), nil
}
