package stage

import (
	"context"
	"errors"

	"github.com/dshills/langgraph-go/graph"
	"github.com/dshills/langgraph-go/graph/emit"
	"github.com/dshills/langgraph-go/graph/store"
	"github.com/webexplorer/agent/internal/explore"
)

// DefaultRecursionLimit bounds total stage invocations per session.
const DefaultRecursionLimit = 200

// Session is one exploration run: a wired engine plus the step journal it
// persists into. Build it with NewSession, drive it with Run, and close
// the browser and graph store yourself — the session borrows them.
type Session struct {
	engine  *graph.Engine[explore.RunState]
	journal store.Store[explore.RunState]
	deps    *Deps
	runID   string
}

// NewSession wires the four stage nodes into an engine with the fixed
// observe -> decide -> execute -> persist order and the conditional edge
// from persist back to observe.
func NewSession(d *Deps, journal store.Store[explore.RunState], emitter emit.Emitter, runID string, recursionLimit int) (*Session, error) {
	if recursionLimit <= 0 {
		recursionLimit = DefaultRecursionLimit
	}

	engine := graph.New(
		explore.Reduce,
		journal,
		emitter,
		graph.Options{MaxSteps: recursionLimit, CostTracker: d.Context.CostTracker},
	)

	nodes := map[string]graph.Node[explore.RunState]{
		"observe": NewObserve(d),
		"decide":  NewDecide(d),
		"execute": NewExecute(d),
		"persist": NewPersist(d),
	}
	for id, node := range nodes {
		if err := engine.Add(id, node); err != nil {
			return nil, err
		}
	}
	if err := engine.StartAt("observe"); err != nil {
		return nil, err
	}
	if err := engine.Connect("persist", "observe", func(s explore.RunState) bool {
		return !s.ExplorationStatus.IsTerminal()
	}); err != nil {
		return nil, err
	}

	return &Session{engine: engine, journal: journal, deps: d, runID: runID}, nil
}

// Run explores from startURL until the flow ends, fails, or the recursion
// limit is hit. Hitting the limit with FLOW_END already set counts as
// success; otherwise the final state is marked FAILURE.
func (s *Session) Run(ctx context.Context, startURL string) (explore.RunState, error) {
	initial := explore.RunState{
		CurrentURL:        startURL,
		ExplorationStatus: explore.StatusContinue,
	}

	final, err := s.engine.Run(ctx, s.runID, initial)
	if err == nil {
		return final, nil
	}

	var engErr *graph.EngineError
	if errors.As(err, &engErr) && engErr.Code == "MAX_STEPS_EXCEEDED" {
		if final.ExplorationStatus == "" {
			// The engine journals every step; read the last one back so
			// the caller still gets the audit trail.
			if latest, _, loadErr := s.journal.LoadLatest(ctx, s.runID); loadErr == nil {
				final = latest
			}
		}
		if final.ExplorationStatus == explore.StatusFlowEnd {
			return final, nil
		}
		final.ExplorationStatus = explore.StatusFailure
		final.ActionHistory = append(final.ActionHistory,
			historyEntry("run", "recursion limit reached before exploration finished"))
		return final, nil
	}

	return final, err
}

// Summary builds the end-of-run report for this session.
func (s *Session) Summary(final explore.RunState) explore.Summary {
	return explore.BuildSummary(final, s.deps.Context.Visits(), s.deps.Context.Backtracks(), s.deps.Context.CostTracker)
}
