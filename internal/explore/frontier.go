package explore

import "sync"

// Frontier maps NormalizedURL to ExplorationState for the lifetime of a
// session. It belongs to exactly one session and is mutated only by that
// session's stages, which run serially. The mutex here guards
// against accidental reuse across sessions, not concurrent stage access.
type Frontier struct {
	mu     sync.Mutex
	states map[NormalizedURL]*ExplorationState
}

// NewFrontier returns an empty Frontier.
func NewFrontier() *Frontier {
	return &Frontier{states: make(map[NormalizedURL]*ExplorationState)}
}

// Register seeds or updates the ExplorationState for url with the actions
// observed in this snapshot. On first registration, AvailableActions is
// seeded from actions. On revisit, newly discovered actions are merged in
// without touching ExploredActions.
func (f *Frontier) Register(u NormalizedURL, fp PageFingerprint, actions []ActionID, parent NormalizedURL) *ExplorationState {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.states[u]
	if !ok {
		s = &ExplorationState{
			URL:              u,
			AvailableActions: make(map[ActionID]struct{}, len(actions)),
			ExploredActions:  make(map[ActionID]struct{}),
			ParentURL:        parent,
		}
		f.states[u] = s
	}
	s.LatestFingerprint = fp
	for _, a := range actions {
		s.AvailableActions[a] = struct{}{}
	}
	return s
}

// Get returns the ExplorationState for url, if any.
func (f *Frontier) Get(u NormalizedURL) (*ExplorationState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[u]
	return s, ok
}

// MarkExplored marks ids as explored at url's frontier entry. The execute
// stage always marks actions at the from-URL, never the landing URL.
func (f *Frontier) MarkExplored(u NormalizedURL, ids ...ActionID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[u]
	if !ok {
		return
	}
	for _, id := range ids {
		// Keep ExploredActions a subset of AvailableActions even when an
		// executed action was never observed on this page (a rejected
		// navigate, or an LLM-invented selector).
		s.AvailableActions[id] = struct{}{}
		s.ExploredActions[id] = struct{}{}
	}
}

// All returns every registered URL. Order is unspecified; callers that need
// determinism should sort.
func (f *Frontier) All() []NormalizedURL {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]NormalizedURL, 0, len(f.states))
	for u := range f.states {
		out = append(out, u)
	}
	return out
}
