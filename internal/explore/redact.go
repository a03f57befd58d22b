package explore

import (
	"encoding/json"
	"regexp"
	"strings"
)

// passwordLiteral matches a password value embedded in a batch description
// of the form DescribeBatch produces, e.g.
// `typeText on #password with text "hunter2"`. It is intentionally narrow:
// only the quoted literal following a password-targeting typeText action
// is scrubbed.
var passwordLiteral = regexp.MustCompile(`(?i)(typeText on \S*password\S* with text ")([^"]*)(")`)

// RedactBatchDescription scrubs a credential literal out of a human-readable
// batch description before it reaches a log emitter. The unredacted
// description is still written to the graph store, where the format is a
// fixed contract; only the log-facing copy is scrubbed.
func RedactBatchDescription(desc string) string {
	return passwordLiteral.ReplaceAllString(desc, "${1}[REDACTED]${3}")
}

// MarshalJSON scrubs the typed text of password-targeting actions. RunState
// deltas are JSON-serialized into engine event logs and the step journal;
// only the direct WriteBatch path carries the literal.
func (a PendingAction) MarshalJSON() ([]byte, error) {
	type plain PendingAction
	out := a
	if a.Kind == ActionType && strings.Contains(strings.ToLower(a.Selector), "password") {
		out.Text = "[REDACTED]"
	}
	return json.Marshal(plain(out))
}

// MarshalJSON scrubs credential literals out of a transition write's action
// description on the same logging paths.
func (q PendingQuery) MarshalJSON() ([]byte, error) {
	type plain PendingQuery
	out := q
	out.Action = RedactBatchDescription(q.Action)
	return json.Marshal(plain(out))
}
