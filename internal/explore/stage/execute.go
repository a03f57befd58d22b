package stage

import (
	"context"
	"time"

	"github.com/dshills/langgraph-go/graph"
	"github.com/webexplorer/agent/internal/browser"
	"github.com/webexplorer/agent/internal/explore"
)

// Execute runs the decided batch against the browser, marks its actions
// explored at the from-URL, maintains the backtrack stack, and plans the
// graph writes for the observed transition.
type Execute struct {
	d *Deps
}

// NewExecute builds the execute node.
func NewExecute(d *Deps) *Execute { return &Execute{d: d} }

// Run implements graph.Node.
func (s *Execute) Run(ctx context.Context, state explore.RunState) graph.NodeResult[explore.RunState] {
	started := time.Now()
	next := graph.Goto("persist")

	if state.ExplorationStatus.IsTerminal() || len(state.PendingActions) == 0 {
		s.d.observeStage("execute", "skipped", started)
		return graph.NodeResult[explore.RunState]{Route: next}
	}

	sc := s.d.Context
	actions := state.PendingActions
	first := actions[0]
	fromURL := state.CurrentURL

	norm, err := explore.Normalize(fromURL)
	if err != nil {
		s.d.observeStage("execute", "failure", started)
		return graph.NodeResult[explore.RunState]{
			Delta: explore.RunState{
				ExplorationStatus: explore.StatusFailure,
				PendingActionsSet: true,
				ActionHistory:     []explore.ActionHistoryEntry{historyEntry("execute", "bad from url: %v", err)},
			},
			Route: next,
		}
	}

	// Session-scope dedupe: a batch whose key was already executed is
	// skipped entirely, its actions marked explored so they are never
	// re-proposed. Five consecutive skips end the flow.
	key := explore.NewTransitionKey(fromURL, first.Selector, first.VisibleText)
	if sc.Transitions.Seen(key) {
		streak := sc.RecordTransitionOutcome(false)
		s.markExplored(norm, actions)
		s.maintainStack(norm)

		status := explore.StatusContinue
		msg := "duplicate transition skipped"
		if streak >= MaxDuplicateTransitions {
			status = explore.StatusFlowEnd
			msg = "duplicate transition limit reached, ending exploration"
		}
		s.d.observeStage("execute", "duplicate", started)
		return graph.NodeResult[explore.RunState]{
			Delta: explore.RunState{
				ExplorationStatus: status,
				PendingActionsSet: true,
				ActionHistory:     []explore.ActionHistoryEntry{historyEntry("execute", "%s (%d consecutive)", msg, streak)},
			},
			Route: next,
		}
	}
	sc.RecordTransitionOutcome(true)

	// Drive the batch. A failed or rejected action is marked explored (so
	// it is not retried) and aborts the batch with BACKTRACK, keeping the
	// run alive from another state.
	executed := make([]explore.ActionID, 0, len(actions))
	for i, a := range actions {
		if i > 0 {
			s.d.Sleep(ctx, browser.IntraBatchPause)
		}

		id := explore.NewActionID(a.Selector, a.VisibleText)
		if a.Kind == explore.ActionNavigate {
			sc.Frontier.MarkExplored(norm, append(executed, id)...)
			s.maintainStack(norm)
			s.d.observeStage("execute", "rejected", started)
			return graph.NodeResult[explore.RunState]{
				Delta: explore.RunState{
					ExplorationStatus: explore.StatusBacktrack,
					PendingActionsSet: true,
					ActionHistory: []explore.ActionHistoryEntry{
						historyEntry("execute", "Navigation by URL is disabled; rejected navigate to %s", a.URL),
					},
				},
				Route: next,
			}
		}

		if err := s.perform(ctx, a); err != nil {
			sc.Frontier.MarkExplored(norm, append(executed, id)...)
			s.maintainStack(norm)
			s.d.observeStage("execute", "action_failed", started)
			return graph.NodeResult[explore.RunState]{
				Delta: explore.RunState{
					ExplorationStatus: explore.StatusBacktrack,
					PendingActionsSet: true,
					ActionHistory: []explore.ActionHistoryEntry{
						historyEntry("execute", "action %s on %s failed: %v", a.Kind, a.Selector, err),
					},
				},
				Route: next,
			}
		}

		if s.d.Metrics != nil {
			s.d.Metrics.ObserveAction(s.d.SessionID, a.Kind)
		}
		executed = append(executed, id)
	}

	s.d.Sleep(ctx, PostBatchPause)

	var warnings []explore.ActionHistoryEntry
	if err := s.d.Browser.WaitForNetworkIdle(ctx, browser.NetworkIdleQuiet, browser.NetworkIdleMax); err != nil {
		warnings = append(warnings, historyEntry("execute", "network idle timeout after batch: %v", err))
	}

	finalURL, err := s.d.Browser.CurrentURL(ctx)
	if err != nil {
		s.d.observeStage("execute", "failure", started)
		return graph.NodeResult[explore.RunState]{
			Delta: explore.RunState{
				ExplorationStatus: explore.StatusFailure,
				PendingActionsSet: true,
				ActionHistory:     append(warnings, historyEntry("execute", "read landing url failed: %v", err)),
			},
			Route: next,
		}
	}

	// Best-effort landing fingerprint; the authoritative observation of
	// the landing page happens next iteration.
	var landingFP explore.PageFingerprint
	if raw, err := s.d.Browser.SnapshotDOM(ctx); err == nil {
		landingFP = explore.Fingerprint(explore.FormatDOM(explore.Simplify(raw, sc.Ignore)))
	}

	// Explored-marking always targets the from-URL's frontier entry, not
	// the landing URL's.
	sc.Frontier.MarkExplored(norm, executed...)
	s.maintainStack(norm)

	desc := explore.DescribeBatch(actions)
	if exists, err := s.d.Store.TransitionExists(ctx, fromURL, finalURL, desc, s.d.SessionID, first.Selector); err == nil && exists {
		warnings = append(warnings, historyEntry("execute", "transition already recorded in graph"))
	}

	writes := explore.PlanWrites(fromURL, finalURL, state.CurrentFingerprint, landingFP, desc, first.Selector, s.d.SessionID)
	sc.Transitions.Record(
		key,
		explore.NewTransitionKeyWithLanding(fromURL, first.Selector, first.VisibleText, finalURL),
	)

	s.d.observeStage("execute", "ok", started)
	return graph.NodeResult[explore.RunState]{
		Delta: explore.RunState{
			CurrentURL:        finalURL,
			ExplorationStatus: explore.StatusContinue,
			PendingQueries:    writes,
			PendingActionsSet: true,
			ActionHistory:     append(warnings, historyEntry("execute", "%s -> %s", explore.RedactBatchDescription(desc), finalURL)),
		},
		Route: next,
	}
}

func (s *Execute) perform(ctx context.Context, a explore.PendingAction) error {
	switch a.Kind {
	case explore.ActionClick:
		return s.d.Browser.Click(ctx, a.Selector)
	case explore.ActionType:
		return s.d.Browser.Type(ctx, a.Selector, a.Text)
	case explore.ActionSelect:
		return s.d.Browser.SelectOption(ctx, a.Selector, a.Text)
	default:
		return explore.NewStageError("execute", explore.ErrBadLLMResponse, "", nil)
	}
}

func (s *Execute) markExplored(norm explore.NormalizedURL, actions []explore.PendingAction) {
	ids := make([]explore.ActionID, 0, len(actions))
	for _, a := range actions {
		ids = append(ids, explore.NewActionID(a.Selector, a.VisibleText))
	}
	s.d.Context.Frontier.MarkExplored(norm, ids...)
}

// maintainStack keeps the backtrack stack consistent with the frontier:
// the from-URL sits on the stack iff it still has unexplored actions.
func (s *Execute) maintainStack(norm explore.NormalizedURL) {
	entry, ok := s.d.Context.Frontier.Get(norm)
	if ok && entry.HasUnexplored() {
		s.d.Context.Backtrack.Push(norm)
	} else {
		s.d.Context.Backtrack.Remove(norm)
	}
}
