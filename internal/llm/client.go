// Package llm holds the decide stage's language-model surface: the
// completion client the engine consults, prompt assembly, and parsing of
// the resulting decisions.
package llm

import "context"

// DefaultTemperature is the sampling temperature for decision calls. Low,
// because the agent wants reproducible action choices, not creativity.
const DefaultTemperature = 0.1

// Completion is the outcome of one LLM call: the text plus the billed
// token counts as reported by the provider (zero when not reported).
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Client is the LLM capability the exploration engine depends on. Three
// provider implementations exist (Anthropic, OpenAI, Gemini), selected by
// a provider enum at session construction; each is a thin wrapper over the
// official SDK that surfaces token usage alongside the completion text.
type Client interface {
	Complete(ctx context.Context, system, user string, temperature float64) (Completion, error)
}
