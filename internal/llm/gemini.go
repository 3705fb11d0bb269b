package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient completes prompts with the Gemini API.
type GeminiClient struct {
	client    *genai.Client
	maxTokens int32
}

// NewGemini creates a Gemini client for the given API key.
func NewGemini(ctx context.Context, apiKey string, maxTokens int64) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, maxTokens: int32(maxTokens)}, nil
}

// Complete sends the user prompt with the system prompt as instruction.
func (c *GeminiClient) Complete(ctx context.Context, system, user, model string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, model,
		genai.Text(user),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			MaxOutputTokens:   c.maxTokens,
		},
	)
	if err != nil {
		return "", unavailable("gemini", err)
	}
	text := resp.Text()
	if text == "" {
		return "", unavailable("gemini", errors.New("no text content in API response"))
	}
	return text, nil
}
