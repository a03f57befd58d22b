package stage

import (
	"context"
	"time"

	"github.com/dshills/langgraph-go/graph"
	"github.com/webexplorer/agent/internal/explore"
)

// Persist flushes the pending graph writes in one atomic batch. Store
// failures are logged into the audit history and the queries cleared; they
// never change the exploration status, because the graph is a byproduct of
// exploration, not the source of truth for control flow.
type Persist struct {
	d *Deps
}

// NewPersist builds the persist node.
func NewPersist(d *Deps) *Persist { return &Persist{d: d} }

// Run implements graph.Node.
func (s *Persist) Run(ctx context.Context, state explore.RunState) graph.NodeResult[explore.RunState] {
	started := time.Now()

	route := graph.Next{}
	if state.ExplorationStatus.IsTerminal() {
		route = graph.Stop()
	}

	if len(state.PendingQueries) == 0 {
		s.d.observeStage("persist", "skipped", started)
		return graph.NodeResult[explore.RunState]{Route: route}
	}

	delta := explore.ClearPendingQueries()
	if err := s.d.Store.WriteBatch(ctx, state.PendingQueries); err != nil {
		delta.ActionHistory = []explore.ActionHistoryEntry{
			historyEntry("persist", "graph write failed, continuing: %v", err),
		}
		s.d.observeStage("persist", "write_failed", started)
	} else {
		delta.ActionHistory = []explore.ActionHistoryEntry{
			historyEntry("persist", "flushed %d graph write(s)", len(state.PendingQueries)),
		}
		s.d.observeStage("persist", "ok", started)
	}

	return graph.NodeResult[explore.RunState]{Delta: delta, Route: route}
}
