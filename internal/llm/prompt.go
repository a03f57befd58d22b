package llm

import (
	"fmt"
	"strings"

	"github.com/webexplorer/agent/internal/explore"
)

const systemInstructions = `You are exploring a web application to map its reachable states.
You will be shown the currently unexplored actionable elements on the page,
recent action history, and optional login/modal hints. Respond with exactly
one of:
  {"status":"FLOW_END"}
  a single action object: {"kind":"click"|"type"|"select","selector":"...","text":"..."}
  {"actions":[ ...one or more action objects... ]}
Only interact through the selectors shown. Do not propose navigation by URL.
If the current view offers nothing worth exploring further, return FLOW_END.`

// BuildPrompt assembles the decide-stage prompt: fixed system instructions
// plus a user message holding the filtered DOM (unexplored actions only,
// modal section first and tagged PRIORITY), the last 5 history entries,
// and optional credential/modal hints.
func BuildPrompt(unexplored []explore.SimplifiedElement, history []explore.ActionHistoryEntry, hasCredentials, modalPresent bool) (system, user string) {
	var b strings.Builder
	if modalPresent {
		b.WriteString("PRIORITY: a modal is open; prefer acting within it.\n")
	}
	if hasCredentials {
		b.WriteString("Login credentials are configured for this session if a login form appears.\n")
	}
	b.WriteString(explore.FormatDOM(unexplored))

	if len(history) > 0 {
		start := 0
		if len(history) > 5 {
			start = len(history) - 5
		}
		b.WriteString("\nRecent history:\n")
		for _, h := range history[start:] {
			fmt.Fprintf(&b, "- [%s] %s\n", h.Stage, h.Message)
		}
	}

	return systemInstructions, b.String()
}
