package stage

import (
	"context"
	"time"

	"github.com/dshills/langgraph-go/graph"
	"github.com/webexplorer/agent/internal/explore"
	"github.com/webexplorer/agent/internal/llm"
)

// Decide selects the next action batch. The checks run in fixed order:
// terminal passthrough, exhaustion (backtrack or FLOW_END), deterministic
// login auto-fill, and finally the LLM.
type Decide struct {
	d *Deps
}

// NewDecide builds the decide node.
func NewDecide(d *Deps) *Decide { return &Decide{d: d} }

// Run implements graph.Node.
func (s *Decide) Run(ctx context.Context, state explore.RunState) graph.NodeResult[explore.RunState] {
	started := time.Now()
	next := graph.Goto("execute")

	if state.ExplorationStatus.IsTerminal() {
		s.d.observeStage("decide", "skipped", started)
		return graph.NodeResult[explore.RunState]{Route: next}
	}

	sc := s.d.Context

	norm, err := explore.Normalize(state.CurrentURL)
	if err != nil {
		s.d.observeStage("decide", "failure", started)
		return graph.NodeResult[explore.RunState]{
			Delta: explore.RunState{
				ExplorationStatus: explore.StatusFailure,
				ActionHistory:     []explore.ActionHistoryEntry{historyEntry("decide", "bad current url: %v", err)},
			},
			Route: next,
		}
	}

	// Exhaustion: nothing left here, find somewhere worth returning to.
	if len(state.UnexploredActions) == 0 {
		target, ok := explore.SelectBacktrackTarget(sc.Backtrack, sc.Frontier, sc.ModalActions())
		if !ok {
			s.d.observeStage("decide", "flow_end", started)
			return graph.NodeResult[explore.RunState]{
				Delta: explore.RunState{
					ExplorationStatus: explore.StatusFlowEnd,
					PendingActionsSet: true,
					ActionHistory:     []explore.ActionHistoryEntry{historyEntry("decide", "frontier exhausted, ending exploration")},
				},
				Route: next,
			}
		}

		sc.RecordBacktrack()
		if s.d.Metrics != nil {
			s.d.Metrics.ObserveBacktrack(s.d.SessionID)
		}
		s.d.observeStage("decide", "backtrack", started)
		return graph.NodeResult[explore.RunState]{
			Delta: explore.RunState{
				ExplorationStatus:  explore.StatusBacktrack,
				BacktrackTargetURL: string(target),
				PendingActionsSet:  true,
				ActionHistory:      []explore.ActionHistoryEntry{historyEntry("decide", "backtracking to %s", target)},
			},
			Route: next,
		}
	}

	// Deterministic login auto-fill, once per URL, while credentials last.
	if state.LoginDetected && sc.Credentials != nil && !sc.Login.Attempted(norm) && !sc.Login.Succeeded(norm) {
		if sel, ok := explore.ParseLoginSelectors(sc.Elements(norm)); ok {
			sc.Login.MarkAttempted(norm)
			batch := []explore.PendingAction{
				{Kind: explore.ActionType, Selector: sel.Username, Text: sc.Credentials.Username},
				{Kind: explore.ActionType, Selector: sel.Password, Text: sc.Credentials.Password},
				{Kind: explore.ActionClick, Selector: sel.Submit},
			}
			s.fillVisibleText(norm, batch)
			s.d.observeStage("decide", "login", started)
			return graph.NodeResult[explore.RunState]{
				Delta: explore.RunState{
					ExplorationStatus: explore.StatusContinue,
					PendingActionsSet: true,
					PendingActions:    batch,
					ActionHistory:     []explore.ActionHistoryEntry{historyEntry("decide", "login form detected, auto-filling credentials")},
				},
				Route: next,
			}
		}
		// Missing selectors: fall through to the LLM.
	}

	return s.consultLLM(ctx, state, norm, started, next)
}

func (s *Decide) consultLLM(ctx context.Context, state explore.RunState, norm explore.NormalizedURL, started time.Time, next graph.Next) graph.NodeResult[explore.RunState] {
	sc := s.d.Context

	unexploredSet := make(map[explore.ActionID]struct{}, len(state.UnexploredActions))
	for _, id := range state.UnexploredActions {
		unexploredSet[id] = struct{}{}
	}
	var filtered []explore.SimplifiedElement
	for _, e := range sc.Elements(norm) {
		if _, ok := unexploredSet[explore.NewActionID(e.CSSSelector, e.VisibleText)]; ok {
			filtered = append(filtered, e)
		}
	}

	system, user := llm.BuildPrompt(filtered, state.ActionHistory, sc.Credentials != nil, state.ModalPresent)

	out, err := s.d.Model.Complete(ctx, system, user, llm.DefaultTemperature)
	if err != nil {
		s.d.observeStage("decide", "failure", started)
		stageErr := explore.NewStageError("decide", explore.ErrLLMFailed, norm, err)
		return graph.NodeResult[explore.RunState]{
			Delta: explore.RunState{
				ExplorationStatus: explore.StatusFailure,
				ActionHistory:     []explore.ActionHistoryEntry{historyEntry("decide", "llm call failed: %v", stageErr)},
			},
			Route: next,
		}
	}

	if sc.CostTracker != nil && (out.InputTokens > 0 || out.OutputTokens > 0) {
		_ = sc.CostTracker.RecordLLMCall(s.d.ModelName, out.InputTokens, out.OutputTokens, "decide")
	}
	if s.d.Metrics != nil {
		s.d.Metrics.ObserveTokens(s.d.SessionID, out.InputTokens, out.OutputTokens)
	}

	decision, err := llm.ParseDecision(out.Text)
	if err != nil {
		// An unparseable response means the agent gave up; end the flow
		// rather than fail the run.
		s.d.observeStage("decide", "flow_end", started)
		return graph.NodeResult[explore.RunState]{
			Delta: explore.RunState{
				ExplorationStatus: explore.StatusFlowEnd,
				PendingActionsSet: true,
				ActionHistory:     []explore.ActionHistoryEntry{historyEntry("decide", "unparseable llm response: %v", err)},
			},
			Route: next,
		}
	}

	if decision.FlowEnd {
		s.d.observeStage("decide", "flow_end", started)
		return graph.NodeResult[explore.RunState]{
			Delta: explore.RunState{
				ExplorationStatus: explore.StatusFlowEnd,
				PendingActionsSet: true,
				ActionHistory:     []explore.ActionHistoryEntry{historyEntry("decide", "llm signaled FLOW_END")},
			},
			Route: next,
		}
	}

	s.fillVisibleText(norm, decision.Actions)
	s.d.observeStage("decide", "ok", started)
	return graph.NodeResult[explore.RunState]{
		Delta: explore.RunState{
			ExplorationStatus: explore.StatusContinue,
			PendingActionsSet: true,
			PendingActions:    decision.Actions,
			ActionHistory:     []explore.ActionHistoryEntry{historyEntry("decide", "llm proposed %d action(s)", len(decision.Actions))},
		},
		Route: next,
	}
}

// fillVisibleText resolves each action's selector against the latest
// observation so downstream ActionIDs and TransitionKeys line up with the
// frontier's bookkeeping.
func (s *Decide) fillVisibleText(norm explore.NormalizedURL, actions []explore.PendingAction) {
	elements := s.d.Context.Elements(norm)
	bySelector := make(map[string]string, len(elements))
	for _, e := range elements {
		if _, ok := bySelector[e.CSSSelector]; !ok {
			bySelector[e.CSSSelector] = e.VisibleText
		}
	}
	for i := range actions {
		if actions[i].VisibleText == "" {
			actions[i].VisibleText = bySelector[actions[i].Selector]
		}
	}
}
