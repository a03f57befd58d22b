package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GoogleClient completes prompts through the Gemini API.
type GoogleClient struct {
	apiKey    string
	modelName string
}

// NewGoogleClient builds a client for the given model, e.g.
// "gemini-2.0-flash".
func NewGoogleClient(apiKey, modelName string) *GoogleClient {
	return &GoogleClient{apiKey: apiKey, modelName: modelName}
}

// Complete implements Client.
func (c *GoogleClient) Complete(ctx context.Context, system, user string, temperature float64) (Completion, error) {
	if c.apiKey == "" {
		return Completion{}, errors.New("llm: google API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return Completion{}, fmt.Errorf("llm: google: create client: %w", err)
	}
	defer func() { _ = client.Close() }()

	genModel := client.GenerativeModel(c.modelName)
	genModel.SetTemperature(float32(temperature))
	if system != "" {
		genModel.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := genModel.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return Completion{}, fmt.Errorf("llm: google: %w", err)
	}

	var out Completion
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				if out.Text != "" {
					out.Text += "\n"
				}
				out.Text += string(text)
			}
		}
	}
	if out.Text == "" {
		return Completion{}, errors.New("llm: google returned no text candidates")
	}
	return out, nil
}
