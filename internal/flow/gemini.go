package flow

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiBackend executes task descriptions against the Gemini API.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a Gemini backend.
func NewGeminiBackend(apiKey, model string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}
	if model == "" {
		model = "gemini-2.0-pro"
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create google client: %w", err)
	}
	return &GeminiBackend{client: client, model: model}, nil
}

// Name returns the backend identifier.
func (b *GeminiBackend) Name() string {
	return "gemini"
}

// Execute sends the description to Gemini and returns the text response.
func (b *GeminiBackend) Execute(ctx context.Context, description string) (string, error) {
	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(description), nil)
	if err != nil {
		return "", fmt.Errorf("google API error: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("google returned no candidates")
	}

	var content string
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
		}
	}
	return content, nil
}
