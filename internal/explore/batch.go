package explore

import "strings"

// DescribeBatch synthesizes the human-readable batchDescription written to
// the graph store and (redacted) to logs, e.g.
// `Batch: typeText on #username with text "admin" -> clickElement on #submit`.
func DescribeBatch(actions []PendingAction) string {
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		parts = append(parts, describeAction(a))
	}
	return "Batch: " + strings.Join(parts, " -> ")
}

func describeAction(a PendingAction) string {
	switch a.Kind {
	case ActionClick:
		return "clickElement on " + a.Selector
	case ActionType:
		return "typeText on " + a.Selector + " with text \"" + a.Text + "\""
	case ActionSelect:
		return "selectOption on " + a.Selector + " with value \"" + a.Text + "\""
	case ActionNavigate:
		return "navigate to " + a.URL + " (rejected)"
	default:
		return "unknown action on " + a.Selector
	}
}
