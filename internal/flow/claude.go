package flow

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeBackend executes task descriptions against the Anthropic API.
type ClaudeBackend struct {
	client anthropic.Client
	model  string
}

// NewClaudeBackend creates a Claude backend. An empty key is rejected
// here so misconfiguration fails at construction rather than on the
// first task.
func NewClaudeBackend(apiKey, model string) (*ClaudeBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &ClaudeBackend{client: anthropic.NewClient(option.WithAPIKey(apiKey)), model: model}, nil
}

// Name returns the backend identifier.
func (b *ClaudeBackend) Name() string {
	return "claude"
}

// Execute sends the description to Claude and returns the text response.
func (b *ClaudeBackend) Execute(ctx context.Context, description string) (string, error) {
	resp, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(description)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	return content, nil
}
