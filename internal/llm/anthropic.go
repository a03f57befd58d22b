package llm

import (
	"context"
	"errors"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 4096

// AnthropicClient completes prompts through the Anthropic Messages API.
type AnthropicClient struct {
	apiKey    string
	modelName string
}

// NewAnthropicClient builds a client for the given model, e.g.
// "claude-sonnet-4-5".
func NewAnthropicClient(apiKey, modelName string) *AnthropicClient {
	return &AnthropicClient{apiKey: apiKey, modelName: modelName}
}

// Complete implements Client.
func (c *AnthropicClient) Complete(ctx context.Context, system, user string, temperature float64) (Completion, error) {
	if c.apiKey == "" {
		return Completion{}, errors.New("llm: anthropic API key is required")
	}

	client := anthropicsdk.NewClient(option.WithAPIKey(c.apiKey))

	params := anthropicsdk.MessageNewParams{
		Model:       anthropicsdk.Model(c.modelName),
		MaxTokens:   anthropicMaxTokens,
		Temperature: anthropicsdk.Float(temperature),
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: system}}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return Completion{}, fmt.Errorf("llm: anthropic: %w", err)
	}

	out := Completion{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
	for _, block := range resp.Content {
		if b, ok := block.AsAny().(anthropicsdk.TextBlock); ok {
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += b.Text
		}
	}
	return out, nil
}
