package graphstore

import (
	"context"
	"sync"
	"time"

	"github.com/webexplorer/agent/internal/explore"
)

// MockGraphStore is an in-memory GraphStore for tests: same upsert
// semantics as the SQL backends, plus error injection and a write log.
type MockGraphStore struct {
	mu sync.Mutex

	// WriteErr, if set, is returned by every WriteBatch call.
	WriteErr error

	// ExistsErr, if set, is returned by every TransitionExists call.
	ExistsErr error

	states      map[string]StateNode      // key: url|sessionID
	transitions map[string]TransitionEdge // key: from|to|action|selector|sessionID

	// Batches records every WriteBatch invocation, including failed ones.
	Batches [][]explore.PendingQuery
}

// NewMockGraphStore returns an empty in-memory store.
func NewMockGraphStore() *MockGraphStore {
	return &MockGraphStore{
		states:      make(map[string]StateNode),
		transitions: make(map[string]TransitionEdge),
	}
}

func stateKey(url, sessionID string) string { return url + "|" + sessionID }

func transitionKey(from, to, action, selector, sessionID string) string {
	return from + "|" + to + "|" + action + "|" + selector + "|" + sessionID
}

// TransitionExists implements GraphStore.
func (m *MockGraphStore) TransitionExists(_ context.Context, from, to, action, sessionID, selector string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	if selector != "" {
		_, ok := m.transitions[transitionKey(from, to, action, selector, sessionID)]
		return ok, nil
	}
	for _, e := range m.transitions {
		if e.From == from && e.To == to && e.Action == action && e.SessionID == sessionID {
			return true, nil
		}
	}
	return false, nil
}

// WriteBatch implements GraphStore.
func (m *MockGraphStore) WriteBatch(_ context.Context, writes []explore.PendingQuery) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Batches = append(m.Batches, writes)
	if m.WriteErr != nil {
		return m.WriteErr
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, w := range writes {
		switch w.Kind {
		case explore.QueryMergeState:
			key := stateKey(w.URL, w.SessionID)
			if existing, ok := m.states[key]; ok {
				existing.Fingerprint = w.Fingerprint
				existing.LastVisited = now
				m.states[key] = existing
			} else {
				m.states[key] = StateNode{
					URL: w.URL, SessionID: w.SessionID, Fingerprint: w.Fingerprint,
					CreatedAt: now, LastVisited: now,
				}
			}
		case explore.QueryMergeTransition:
			key := transitionKey(w.From, w.To, w.Action, w.Selector, w.SessionID)
			if existing, ok := m.transitions[key]; ok {
				existing.LastSeen = now
				m.transitions[key] = existing
			} else {
				m.transitions[key] = TransitionEdge{
					From: w.From, To: w.To, Action: w.Action, Selector: w.Selector,
					SessionID: w.SessionID, CreatedAt: now, LastSeen: now,
				}
			}
		}
	}
	return nil
}

// States returns every state node, for assertions.
func (m *MockGraphStore) States() []StateNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StateNode, 0, len(m.states))
	for _, n := range m.states {
		out = append(out, n)
	}
	return out
}

// Transitions returns every transition edge, for assertions.
func (m *MockGraphStore) Transitions() []TransitionEdge {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TransitionEdge, 0, len(m.transitions))
	for _, e := range m.transitions {
		out = append(out, e)
	}
	return out
}

// Close implements GraphStore.
func (m *MockGraphStore) Close() error { return nil }
