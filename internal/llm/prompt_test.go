package llm

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webexplorer/agent/internal/explore"
)

func TestBuildPromptShape(t *testing.T) {
	elements := []explore.SimplifiedElement{
		{Tag: "button", VisibleText: "Go", CSSSelector: "#go"},
	}
	system, user := BuildPrompt(elements, nil, false, false)

	assert.Contains(t, system, "FLOW_END")
	assert.Contains(t, user, "#go")
	assert.NotContains(t, user, "PRIORITY")
}

func TestBuildPromptHints(t *testing.T) {
	_, user := BuildPrompt(nil, nil, true, true)
	assert.Contains(t, user, "PRIORITY")
	assert.Contains(t, user, "credentials")
}

func TestBuildPromptHistoryWindow(t *testing.T) {
	var history []explore.ActionHistoryEntry
	for i := 0; i < 8; i++ {
		history = append(history, explore.ActionHistoryEntry{Stage: "execute", Message: fmt.Sprintf("entry-%d", i)})
	}

	_, user := BuildPrompt(nil, history, false, false)

	// Only the last five entries make the prompt.
	assert.NotContains(t, user, "entry-2")
	for i := 3; i < 8; i++ {
		assert.Contains(t, user, fmt.Sprintf("entry-%d", i))
	}
}

func TestBuildPromptModalFirst(t *testing.T) {
	elements := []explore.SimplifiedElement{
		{Tag: "a", VisibleText: "Background", CSSSelector: "a.bg"},
		{Tag: "button", VisibleText: "Confirm", CSSSelector: "#confirm", InModal: true},
	}
	_, user := BuildPrompt(elements, nil, false, true)

	modalIdx := strings.Index(user, "MODAL SECTION")
	bgIdx := strings.Index(user, "a.bg")
	require.GreaterOrEqual(t, modalIdx, 0)
	require.GreaterOrEqual(t, bgIdx, 0)
	assert.Less(t, modalIdx, bgIdx, "modal section renders before regular elements")
}
