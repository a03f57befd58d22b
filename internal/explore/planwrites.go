package explore

// PlanWrites builds the idempotent upsert triple for one executed batch:
// merge the from state, merge the to state, merge the transition edge. The
// persist stage flushes the triple in a single transaction; duplicate
// merges are silent on the store side, so replaying a transition yields
// the same graph as a single execution.
func PlanWrites(fromURL, toURL string, fromFP, toFP PageFingerprint, action, selector, sessionID string) []PendingQuery {
	return []PendingQuery{
		{
			Kind:        QueryMergeState,
			URL:         fromURL,
			Fingerprint: string(fromFP),
			SessionID:   sessionID,
		},
		{
			Kind:        QueryMergeState,
			URL:         toURL,
			Fingerprint: string(toFP),
			SessionID:   sessionID,
		},
		{
			Kind:      QueryMergeTransition,
			From:      fromURL,
			To:        toURL,
			Action:    action,
			Selector:  selector,
			SessionID: sessionID,
		},
	}
}
