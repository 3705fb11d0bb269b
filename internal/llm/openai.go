package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient completes prompts with the Chat Completions API, which also
// serves OpenAI-compatible endpoints through BaseURL.
type OpenAIClient struct {
	client    *openai.Client
	maxTokens int64
}

// NewOpenAI creates a client for the given key and optional base URL.
func NewOpenAI(apiKey, baseURL string, maxTokens int64) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIClient{
		client:    &client,
		maxTokens: maxTokens,
	}
}

// Complete sends a system and a user message.
func (c *OpenAIClient) Complete(ctx context.Context, system, user, model string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxTokens: openai.Int(c.maxTokens),
	})
	if err != nil {
		return "", unavailable("openai", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", unavailable("openai", errors.New("no text content in API response"))
	}
	return resp.Choices[0].Message.Content, nil
}
