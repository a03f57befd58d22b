package explore

import (
	"sync"

	"github.com/dshills/langgraph-go/graph"
)

// Credentials are the optional login credentials supplied for a session,
// consumed by the decide stage's login auto-fill and cleared once a login
// is known to have succeeded.
type Credentials struct {
	Username string
	Password string
}

// StageContext bundles everything the four stage nodes (observe, decide,
// execute, persist) need beyond the RunState value itself: session-scoped
// bookkeeping that does not belong in the reduced state because it is never
// meant to be replayed or merged, only consulted and mutated in place.
//
// One StageContext is constructed per exploration session and is not
// shared across sessions; its fields are safe for sequential use by a
// single engine.Run invocation, matching the engine's single-threaded
// per-session execution model.
type StageContext struct {
	Frontier    *Frontier
	Backtrack   *BacktrackStack
	Transitions *TransitionCache
	Login       *LoginState
	Ignore      *IgnoreList

	Credentials *Credentials

	CostTracker *graph.CostTracker

	mu              sync.Mutex
	duplicateStreak int
	duplicateTrans  int
	modalActions    map[NormalizedURL]bool
	latestElements  map[NormalizedURL][]SimplifiedElement
	visits          *VisitCounter
	backtrackCount  int
}

// NewStageContext builds a StageContext with fresh bookkeeping, ready for a
// new session.
func NewStageContext(creds *Credentials, extraIgnore []string, costTracker *graph.CostTracker) *StageContext {
	return &StageContext{
		Frontier:    NewFrontier(),
		Backtrack:   NewBacktrackStack(),
		Transitions: NewTransitionCache(),
		Login:       NewLoginState(),
		Ignore:      NewIgnoreList(extraIgnore),
		Credentials: creds,
		CostTracker: costTracker,

		modalActions:   make(map[NormalizedURL]bool),
		latestElements: make(map[NormalizedURL][]SimplifiedElement),
		visits:         NewVisitCounter(),
	}
}

// NoteElements caches url's latest simplified observation so the decide
// stage can rebuild a filtered DOM (unexplored actions only) and look up
// visible text by selector without re-snapshotting.
func (c *StageContext) NoteElements(u NormalizedURL, elements []SimplifiedElement) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latestElements[u] = elements
}

// Elements returns the latest simplified observation for url.
func (c *StageContext) Elements(u NormalizedURL) []SimplifiedElement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latestElements[u]
}

// RecordVisit bumps url's visit counter and returns the new total.
func (c *StageContext) RecordVisit(u NormalizedURL) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visits.Record(u)
}

// Visits exposes the session's visit counter for summary reporting.
func (c *StageContext) Visits() *VisitCounter {
	return c.visits
}

// RecordBacktrack counts a BACKTRACK decision for summary reporting.
func (c *StageContext) RecordBacktrack() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backtrackCount++
}

// Backtracks returns the number of BACKTRACK decisions taken so far.
func (c *StageContext) Backtracks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backtrackCount
}

// RecordTransitionOutcome advances or resets the consecutive-duplicate
// transition streak. The execute stage calls it with novel=false whenever a
// proposed batch's TransitionKey was already in the session cache; five in
// a row force FLOW_END.
func (c *StageContext) RecordTransitionOutcome(novel bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if novel {
		c.duplicateTrans = 0
	} else {
		c.duplicateTrans++
	}
	return c.duplicateTrans
}

// DuplicateTransitionStreak returns the current consecutive-duplicate
// transition count.
func (c *StageContext) DuplicateTransitionStreak() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duplicateTrans
}

// NoteModalActions records whether url's latest observation had unexplored
// actions inside a modal, for SelectBacktrackTarget's modal-bearing
// preference.
func (c *StageContext) NoteModalActions(u NormalizedURL, hasModalActions bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modalActions[u] = hasModalActions
}

// ModalActions returns a snapshot of the modal-bearing URL set.
func (c *StageContext) ModalActions() map[NormalizedURL]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[NormalizedURL]bool, len(c.modalActions))
	for k, v := range c.modalActions {
		out[k] = v
	}
	return out
}

// DuplicateFingerprintStreak returns the current count of consecutive
// observations that landed on an already-visited fingerprint.
func (c *StageContext) DuplicateFingerprintStreak() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duplicateStreak
}

// RecordFingerprintOutcome advances or resets the duplicate-fingerprint
// streak depending on whether fp was already in visited.
func (c *StageContext) RecordFingerprintOutcome(novel bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if novel {
		c.duplicateStreak = 0
	} else {
		c.duplicateStreak++
	}
	return c.duplicateStreak
}
