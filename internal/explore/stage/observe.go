package stage

import (
	"context"
	"sort"
	"time"

	"github.com/dshills/langgraph-go/graph"
	"github.com/webexplorer/agent/internal/browser"
	"github.com/webexplorer/agent/internal/explore"
)

// Observe snapshots and simplifies the current page, fingerprints it,
// detects login and modal contexts, and registers the page in the
// exploration frontier. It is the only stage that ever navigates
// programmatically, and only at the start of exploration or when consuming
// a backtrack target.
type Observe struct {
	d *Deps
}

// NewObserve builds the observe node.
func NewObserve(d *Deps) *Observe { return &Observe{d: d} }

// Run implements graph.Node.
func (o *Observe) Run(ctx context.Context, state explore.RunState) graph.NodeResult[explore.RunState] {
	started := time.Now()
	next := graph.Goto("decide")

	if state.ExplorationStatus.IsTerminal() {
		o.d.observeStage("observe", "skipped", started)
		return graph.NodeResult[explore.RunState]{Route: next}
	}

	sc := o.d.Context

	target := state.CurrentURL
	if state.ExplorationStatus == explore.StatusBacktrack && state.BacktrackTargetURL != "" {
		target = state.BacktrackTargetURL
	}

	browserURL, err := o.d.Browser.CurrentURL(ctx)
	if err != nil {
		o.d.observeStage("observe", "failure", started)
		return o.failure(state, err)
	}

	var warnings []explore.ActionHistoryEntry
	if target != "" && target != browserURL {
		if err := o.d.Browser.Navigate(ctx, target); err != nil {
			o.d.observeStage("observe", "failure", started)
			return o.failure(state, err)
		}
	} else if err := o.d.Browser.WaitForNetworkIdle(ctx, browser.NetworkIdleQuiet, browser.NetworkIdleMax); err != nil {
		// Recoverable: proceed with a best-effort snapshot.
		warnings = append(warnings, historyEntry("observe", "network idle timeout, proceeding: %v", err))
	}

	raw, err := o.d.Browser.SnapshotDOM(ctx)
	if err != nil {
		o.d.observeStage("observe", "failure", started)
		return o.failure(state, err)
	}

	finalURL, err := o.d.Browser.CurrentURL(ctx)
	if err != nil {
		o.d.observeStage("observe", "failure", started)
		return o.failure(state, err)
	}

	norm, err := explore.Normalize(finalURL)
	if err != nil {
		o.d.observeStage("observe", "failure", started)
		return o.failure(state, err)
	}

	elements := explore.Simplify(raw, sc.Ignore)
	domText := explore.FormatDOM(elements)
	fp := explore.Fingerprint(domText)

	ids := make([]explore.ActionID, 0, len(elements))
	for _, e := range elements {
		ids = append(ids, explore.NewActionID(e.CSSSelector, e.VisibleText))
	}

	var parent explore.NormalizedURL
	if state.CurrentURL != "" && state.CurrentURL != finalURL {
		if p, perr := explore.Normalize(state.CurrentURL); perr == nil {
			parent = p
		}
	}

	_, known := sc.Frontier.Get(norm)
	entry := sc.Frontier.Register(norm, fp, ids, parent)
	if !known && o.d.Metrics != nil {
		o.d.Metrics.ObservePage(o.d.SessionID)
	}
	sc.RecordVisit(norm)
	sc.NoteElements(norm, elements)

	unexplored := entry.Unexplored()
	sort.Slice(unexplored, func(i, j int) bool { return unexplored[i] < unexplored[j] })

	unexploredSet := make(map[explore.ActionID]struct{}, len(unexplored))
	for _, id := range unexplored {
		unexploredSet[id] = struct{}{}
	}
	modalPresent := false
	for _, e := range elements {
		if !e.InModal {
			continue
		}
		if _, ok := unexploredSet[explore.NewActionID(e.CSSSelector, e.VisibleText)]; ok {
			modalPresent = true
			break
		}
	}
	sc.NoteModalActions(norm, modalPresent)

	loginDetected := explore.DetectLogin(elements)

	// A prior login attempt followed by a non-login page means the login
	// worked; clear the credentials so they are never replayed.
	if !loginDetected && sc.Credentials != nil {
		for _, u := range sc.Frontier.All() {
			if sc.Login.Attempted(u) && !sc.Login.Succeeded(u) {
				sc.Login.MarkSucceeded(u)
				sc.Credentials = nil
				break
			}
		}
	}

	_, seen := state.VisitedFingerprints[fp]
	sc.RecordFingerprintOutcome(!seen)

	delta := explore.RunState{
		CurrentURL:          finalURL,
		CurrentFingerprint:  fp,
		DOMState:            domText,
		VisitedFingerprints: map[explore.PageFingerprint]struct{}{fp: {}},
		UnexploredActions:   unexplored,
		LoginDetected:       loginDetected,
		ModalPresent:        modalPresent,
		ExplorationStatus:   explore.StatusContinue,
		ActionHistory: append(warnings,
			historyEntry("observe", "observed %s (%d elements, %d unexplored)", finalURL, len(elements), len(unexplored))),
	}
	if delta.UnexploredActions == nil {
		delta.UnexploredActions = []explore.ActionID{}
	}

	o.d.observeStage("observe", "ok", started)
	return graph.NodeResult[explore.RunState]{Delta: delta, Route: next}
}

// failure reports an unrecoverable observation problem as a FAILURE status
// rather than a node error: the run loop should terminate normally with
// the audit log intact, not abort mid-flight.
func (o *Observe) failure(state explore.RunState, err error) graph.NodeResult[explore.RunState] {
	stageErr := explore.NewStageError("observe", explore.ErrObserveFailed, explore.NormalizedURL(state.CurrentURL), err)
	return graph.NodeResult[explore.RunState]{
		Delta: explore.RunState{
			ExplorationStatus: explore.StatusFailure,
			ActionHistory: []explore.ActionHistoryEntry{
				historyEntry("observe", "observation failed: %v", stageErr),
			},
		},
		Route: graph.Goto("decide"),
	}
}
