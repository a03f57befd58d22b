package llm

import (
	"context"
	"sync"
)

// MockCall records a single Complete invocation for test assertions.
type MockCall struct {
	System      string
	User        string
	Temperature float64
}

// MockClient is a scripted Client for tests: each call returns the next
// configured Completion, repeating the last one once the script runs out,
// or Err if set. Every invocation is appended to Calls, except one made
// with an already-cancelled context, which returns ctx.Err() unrecorded.
type MockClient struct {
	Responses []Completion
	Err       error
	Calls     []MockCall

	mu        sync.Mutex
	callIndex int
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, system, user string, temperature float64) (Completion, error) {
	if ctx.Err() != nil {
		return Completion{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{System: system, User: user, Temperature: temperature})

	if m.Err != nil {
		return Completion{}, m.Err
	}
	if len(m.Responses) == 0 {
		return Completion{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.callIndex++
	return m.Responses[idx], nil
}
