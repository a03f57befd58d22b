package llm

import (
	"context"
	"errors"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient completes prompts through the OpenAI chat-completions API.
type OpenAIClient struct {
	apiKey    string
	modelName string
}

// NewOpenAIClient builds a client for the given model, e.g. "gpt-4o-mini".
func NewOpenAIClient(apiKey, modelName string) *OpenAIClient {
	return &OpenAIClient{apiKey: apiKey, modelName: modelName}
}

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string, temperature float64) (Completion, error) {
	if c.apiKey == "" {
		return Completion{}, errors.New("llm: openai API key is required")
	}

	client := openaisdk.NewClient(option.WithAPIKey(c.apiKey))

	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, 2)
	if system != "" {
		messages = append(messages, openaisdk.SystemMessage(system))
	}
	messages = append(messages, openaisdk.UserMessage(user))

	resp, err := client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(c.modelName),
		Temperature: openaisdk.Float(temperature),
		Messages:    messages,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("llm: openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, errors.New("llm: openai returned no choices")
	}

	return Completion{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}
