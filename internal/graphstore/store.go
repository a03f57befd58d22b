// Package graphstore persists the exploration graph: state nodes keyed by
// (url, sessionId) and transition edges keyed by (from, to, action,
// sessionId, selector). All writes are idempotent upserts, so replaying a
// recorded transition against a clean store yields the same final graph as
// a single execution.
package graphstore

import (
	"context"

	"github.com/webexplorer/agent/internal/explore"
)

// GraphStore is the property-graph capability the engine persists into.
// Implementations must make WriteBatch atomic: either every write in the
// batch lands or none do.
type GraphStore interface {
	// TransitionExists reports whether the given transition edge is
	// already recorded for the session. selector may be empty, in which
	// case it is not part of the match.
	TransitionExists(ctx context.Context, from, to, action, sessionID, selector string) (bool, error)

	// WriteBatch applies a batch of merge writes in a single transaction.
	WriteBatch(ctx context.Context, writes []explore.PendingQuery) error

	// Close releases the underlying connection.
	Close() error
}

// StateNode is a persisted page node, returned by backends that support
// read-back (used by tests).
type StateNode struct {
	URL         string
	SessionID   string
	Fingerprint string
	CreatedAt   string
	LastVisited string
}

// TransitionEdge is a persisted transition edge.
type TransitionEdge struct {
	From      string
	To        string
	Action    string
	Selector  string
	SessionID string
	CreatedAt string
	LastSeen  string
}
