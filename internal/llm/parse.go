package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/webexplorer/agent/internal/explore"
)

// rawAction mirrors the wire shape of a single decision action. Models
// sometimes label the verb "tool" instead of "kind"; both are accepted.
type rawAction struct {
	Kind     string `json:"kind"`
	Tool     string `json:"tool"`
	Selector string `json:"selector"`
	Text     string `json:"text"`
	URL      string `json:"url"`
}

type rawDecision struct {
	Status  string      `json:"status"`
	Actions []rawAction `json:"actions"`
	rawAction
}

// Decision is the parsed outcome of a Decide-stage LLM call: either a
// terminal FLOW_END signal or a batch of 1..N actions.
type Decision struct {
	FlowEnd bool
	Actions []explore.PendingAction
}

// ParseDecision parses an LLM text response into a Decision. Three shapes
// are accepted: {"status":"FLOW_END"}, a single action object, or
// {"actions":[...]}. Navigate actions parse successfully and are passed
// through; the execute stage is the one that refuses to perform them, so
// the refusal surfaces as a failed action rather than a parse error.
func ParseDecision(text string) (Decision, error) {
	text = strings.TrimSpace(text)
	text = stripCodeFence(text)

	var raw rawDecision
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Decision{}, fmt.Errorf("llm: parse decision: %w", err)
	}

	if strings.EqualFold(raw.Status, "FLOW_END") {
		return Decision{FlowEnd: true}, nil
	}

	var actions []rawAction
	switch {
	case len(raw.Actions) > 0:
		actions = raw.Actions
	case raw.rawAction.Kind != "" || raw.rawAction.Tool != "":
		actions = []rawAction{raw.rawAction}
	default:
		return Decision{}, fmt.Errorf("llm: decision has no status, actions, or kind: %q", text)
	}

	out := make([]explore.PendingAction, 0, len(actions))
	for _, a := range actions {
		name := a.Kind
		if name == "" {
			name = a.Tool
		}
		kind, err := parseKind(name)
		if err != nil {
			return Decision{}, err
		}
		out = append(out, explore.PendingAction{Kind: kind, Selector: a.Selector, Text: a.Text, URL: a.URL})
	}

	return Decision{Actions: out}, nil
}

func parseKind(s string) (explore.PendingActionKind, error) {
	switch strings.ToLower(s) {
	case "click", "clickelement":
		return explore.ActionClick, nil
	case "type", "typetext":
		return explore.ActionType, nil
	case "select", "selectoption":
		return explore.ActionSelect, nil
	case "navigate":
		return explore.ActionNavigate, nil
	default:
		return 0, fmt.Errorf("llm: unknown action kind %q", s)
	}
}

// stripCodeFence removes a leading/trailing ```json fence if the model
// wrapped its JSON response in one, despite instructions not to.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
