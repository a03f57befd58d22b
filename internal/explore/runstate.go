package explore

// PendingQueryKind tags the PendingQuery union planned by the execute
// stage and flushed by the persist stage.
type PendingQueryKind int

const (
	QueryMergeState PendingQueryKind = iota
	QueryMergeTransition
)

// PendingQuery is a single idempotent graph write.
type PendingQuery struct {
	Kind PendingQueryKind

	// MergeState fields.
	URL         string
	Fingerprint string

	// MergeTransition fields.
	From     string
	To       string
	Action   string
	Selector string

	SessionID string
}

// RunState is the immutable record threaded through the state-graph run
// loop. Every field is reducer-merged field-wise (see Reduce): string
// scalars take the newer non-empty value, the history and pending queries
// append, visited fingerprints union-dedupe, and PendingActions is an
// explicit replace so a stage can clear the batch.
type RunState struct {
	CurrentURL         string
	CurrentFingerprint PageFingerprint
	DOMState           string

	ActionHistory []ActionHistoryEntry

	PendingQueries []PendingQuery

	ExplorationStatus ExplorationStatus

	PendingActions []PendingAction
	// PendingActionsSet distinguishes "no delta" from "explicitly cleared to
	// empty" for the reducer, since a nil slice can't carry that intent.
	PendingActionsSet bool

	VisitedFingerprints map[PageFingerprint]struct{}

	UnexploredActions []ActionID

	// BacktrackTargetURL is set by Decide when it emits BACKTRACK, read by
	// Observe on the next iteration to know where to navigate.
	BacktrackTargetURL string

	// LoginDetected/ModalPresent are observation-time flags threaded to
	// Decide.
	LoginDetected bool
	ModalPresent  bool

	StepCount int
}

// Reduce merges delta onto prev field-wise: string scalars take the newer
// non-empty value, ActionHistory and PendingQueries append, visited
// fingerprints union, PendingActions is an explicit replace, and
// UnexploredActions is replaced whenever the delta's slice is non-nil.
// LoginDetected and ModalPresent always take the delta's value, so a delta
// that leaves them unset resets them to false. StepCount counts merges.
// Apart from those two flags and StepCount, fields a stage leaves unset
// keep their previous value.
func Reduce(prev, delta RunState) RunState {
	next := prev

	if delta.CurrentURL != "" {
		next.CurrentURL = delta.CurrentURL
	}
	if delta.CurrentFingerprint != "" {
		next.CurrentFingerprint = delta.CurrentFingerprint
	}
	if delta.DOMState != "" {
		next.DOMState = delta.DOMState
	}

	if len(delta.ActionHistory) > 0 {
		next.ActionHistory = append(append([]ActionHistoryEntry{}, prev.ActionHistory...), delta.ActionHistory...)
	}

	if len(delta.PendingQueries) > 0 {
		next.PendingQueries = append(append([]PendingQuery{}, prev.PendingQueries...), delta.PendingQueries...)
	}
	// Persist clears PendingQueries by setting it to an explicit empty,
	// non-nil slice distinguishable from "no delta" (nil).
	if delta.PendingQueries != nil && len(delta.PendingQueries) == 0 {
		next.PendingQueries = nil
	}

	if delta.ExplorationStatus != "" {
		next.ExplorationStatus = delta.ExplorationStatus
	}

	if delta.PendingActionsSet {
		next.PendingActions = delta.PendingActions
	}

	if len(delta.VisitedFingerprints) > 0 {
		merged := make(map[PageFingerprint]struct{}, len(prev.VisitedFingerprints)+len(delta.VisitedFingerprints))
		for fp := range prev.VisitedFingerprints {
			merged[fp] = struct{}{}
		}
		for fp := range delta.VisitedFingerprints {
			merged[fp] = struct{}{}
		}
		next.VisitedFingerprints = merged
	}

	if delta.UnexploredActions != nil {
		next.UnexploredActions = delta.UnexploredActions
	}

	if delta.BacktrackTargetURL != "" {
		next.BacktrackTargetURL = delta.BacktrackTargetURL
	}

	next.LoginDetected = delta.LoginDetected
	next.ModalPresent = delta.ModalPresent

	next.StepCount = prev.StepCount + 1

	return next
}

// ClearPendingQueries returns a delta that empties PendingQueries.
func ClearPendingQueries() RunState {
	return RunState{PendingQueries: []PendingQuery{}}
}

// ClearPendingActions returns a delta that empties PendingActions.
func ClearPendingActions() RunState {
	return RunState{PendingActionsSet: true, PendingActions: nil}
}

// SetPendingActions returns a delta that replaces PendingActions.
func SetPendingActions(actions []PendingAction) RunState {
	return RunState{PendingActionsSet: true, PendingActions: actions}
}
