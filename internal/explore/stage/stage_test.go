package stage_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/langgraph-go/graph"
	"github.com/dshills/langgraph-go/graph/emit"
	"github.com/dshills/langgraph-go/graph/store"
	"github.com/webexplorer/agent/internal/browser"
	"github.com/webexplorer/agent/internal/explore"
	"github.com/webexplorer/agent/internal/explore/stage"
	"github.com/webexplorer/agent/internal/graphstore"
	"github.com/webexplorer/agent/internal/llm"
)

func rawButton(id, text string) explore.RawElement {
	return explore.RawElement{Tag: "BUTTON", TextContent: text, ID: id, HasLayoutBox: true}
}

func rawInput(id, typ, placeholder string) explore.RawElement {
	return explore.RawElement{Tag: "INPUT", Type: typ, Placeholder: placeholder, ID: id, HasLayoutBox: true}
}

func rawSubmit(id, text string) explore.RawElement {
	return explore.RawElement{Tag: "BUTTON", TextContent: text, Type: "submit", ID: id, HasLayoutBox: true}
}

type fixture struct {
	deps  *stage.Deps
	drv   *browser.MockDriver
	model *llm.MockClient
	graph *graphstore.MockGraphStore
	sc    *explore.StageContext
}

func newFixture(startURL string, creds *explore.Credentials, responses ...llm.Completion) *fixture {
	drv := browser.NewMockDriver(startURL)
	chat := &llm.MockClient{Responses: responses}
	gs := graphstore.NewMockGraphStore()
	sc := explore.NewStageContext(creds, nil, graph.NewCostTracker("run-test", "USD"))

	deps := stage.NewDeps(stage.Deps{
		Browser:   drv,
		Model:     chat,
		ModelName: "gpt-4o-mini",
		Store:     gs,
		Context:   sc,
		SessionID: "session-test",
		Sleep:     func(context.Context, time.Duration) {},
	})
	return &fixture{deps: deps, drv: drv, model: chat, graph: gs, sc: sc}
}

func newSession(t *testing.T, f *fixture, recursionLimit int) *stage.Session {
	t.Helper()
	s, err := stage.NewSession(f.deps, store.NewMemStore[explore.RunState](), emit.NewNullEmitter(), "run-test", recursionLimit)
	require.NoError(t, err)
	return s
}

func historyContains(state explore.RunState, substr string) bool {
	for _, h := range state.ActionHistory {
		if strings.Contains(h.Message, substr) {
			return true
		}
	}
	return false
}

// Login page plus a single click: one 3-action batch, two merged state
// nodes, one transition edge, and login inferred successful on the next
// observation.
func TestSessionLoginFlow(t *testing.T) {
	f := newFixture("http://x/login", &explore.Credentials{Username: "admin", Password: "admin123"})
	f.drv.Pages["http://x/login"] = []explore.RawElement{
		rawInput("user", "text", "Username"),
		rawInput("pass", "password", "Password"),
		rawSubmit("go", "Log in"),
	}
	f.drv.Pages["http://x/home"] = nil
	f.drv.Transitions["http://x/login|#go"] = "http://x/home"

	final, err := newSession(t, f, 200).Run(context.Background(), "http://x/login")
	require.NoError(t, err)
	assert.Equal(t, explore.StatusFlowEnd, final.ExplorationStatus)

	// The batch ran in order against the browser without consulting the LLM.
	actions := f.drv.ActionCalls()
	require.Len(t, actions, 3)
	assert.Equal(t, "type", actions[0].Op)
	assert.Equal(t, "#user", actions[0].Selector)
	assert.Equal(t, "admin", actions[0].Value)
	assert.Equal(t, "type", actions[1].Op)
	assert.Equal(t, "admin123", actions[1].Value)
	assert.Equal(t, "click", actions[2].Op)
	assert.Equal(t, "#go", actions[2].Selector)
	assert.Empty(t, f.model.Calls)

	// Two state nodes, one transition whose action is the batch description.
	assert.Len(t, f.graph.States(), 2)
	edges := f.graph.Transitions()
	require.Len(t, edges, 1)
	assert.Equal(t, "http://x/login", edges[0].From)
	assert.Equal(t, "http://x/home", edges[0].To)
	assert.True(t, strings.HasPrefix(edges[0].Action, `Batch: typeText on #user with text "admin"`), "got %q", edges[0].Action)
	assert.Contains(t, edges[0].Action, "clickElement on #go")
	assert.Equal(t, "#user", edges[0].Selector)

	// The next observation saw a non-login page, so the attempt is marked
	// successful and the credentials are cleared.
	assert.True(t, f.sc.Login.Succeeded("http://x/login"))
	assert.Nil(t, f.sc.Credentials)
}

// Exhaustion triggers backtrack: two buttons on A both lead to a dead-end
// A', so the run backtracks once and then ends with 2 nodes and 2 edges.
func TestSessionExhaustionBacktrack(t *testing.T) {
	f := newFixture("http://x/a", nil,
		llm.Completion{Text: `{"kind":"click","selector":"#a1"}`},
		llm.Completion{Text: `{"kind":"click","selector":"#a2"}`},
	)
	f.drv.Pages["http://x/a"] = []explore.RawElement{rawButton("a1", "One"), rawButton("a2", "Two")}
	f.drv.Pages["http://x/a-prime"] = nil
	f.drv.Transitions["http://x/a|#a1"] = "http://x/a-prime"
	f.drv.Transitions["http://x/a|#a2"] = "http://x/a-prime"

	final, err := newSession(t, f, 200).Run(context.Background(), "http://x/a")
	require.NoError(t, err)
	assert.Equal(t, explore.StatusFlowEnd, final.ExplorationStatus)

	assert.Len(t, f.model.Calls, 2)
	assert.Len(t, f.graph.States(), 2)
	assert.Len(t, f.graph.Transitions(), 2)
	assert.Equal(t, 1, f.sc.Backtracks())

	entry, ok := f.sc.Frontier.Get("http://x/a")
	require.True(t, ok)
	assert.False(t, entry.HasUnexplored())
}

// A proposal whose transition key is already cached executes nothing: no
// browser side-effects, no graph writes, status CONTINUE.
func TestExecuteDuplicateTransitionSkip(t *testing.T) {
	f := newFixture("http://x/a", nil)
	id := explore.NewActionID("#a1", "One")
	f.sc.Frontier.Register("http://x/a", "fp", []explore.ActionID{id}, "")
	f.sc.Transitions.Record(explore.NewTransitionKey("http://x/a", "#a1", "One"))

	state := explore.RunState{
		CurrentURL:        "http://x/a",
		ExplorationStatus: explore.StatusContinue,
		PendingActions:    []explore.PendingAction{{Kind: explore.ActionClick, Selector: "#a1", VisibleText: "One"}},
	}

	result := stage.NewExecute(f.deps).Run(context.Background(), state)
	require.NoError(t, result.Err)
	assert.Equal(t, explore.StatusContinue, result.Delta.ExplorationStatus)
	assert.Empty(t, result.Delta.PendingQueries)
	assert.True(t, result.Delta.PendingActionsSet)
	assert.Empty(t, result.Delta.PendingActions)
	assert.Empty(t, f.drv.ActionCalls())

	entry, _ := f.sc.Frontier.Get("http://x/a")
	_, explored := entry.ExploredActions[id]
	assert.True(t, explored, "skipped actions are marked explored so they are not re-proposed")
}

// Five consecutive duplicate skips force FLOW_END; no sixth browser action
// is attempted.
func TestExecuteDuplicateLoopGuard(t *testing.T) {
	f := newFixture("http://x/a", nil)
	f.sc.Frontier.Register("http://x/a", "fp", []explore.ActionID{explore.NewActionID("#a1", "One")}, "")
	f.sc.Transitions.Record(explore.NewTransitionKey("http://x/a", "#a1", "One"))

	state := explore.RunState{
		CurrentURL:        "http://x/a",
		ExplorationStatus: explore.StatusContinue,
		PendingActions:    []explore.PendingAction{{Kind: explore.ActionClick, Selector: "#a1", VisibleText: "One"}},
	}

	exec := stage.NewExecute(f.deps)
	for i := 1; i <= 4; i++ {
		result := exec.Run(context.Background(), state)
		assert.Equal(t, explore.StatusContinue, result.Delta.ExplorationStatus, "skip %d stays CONTINUE", i)
	}
	result := exec.Run(context.Background(), state)
	assert.Equal(t, explore.StatusFlowEnd, result.Delta.ExplorationStatus, "fifth consecutive skip ends the flow")
	assert.Empty(t, f.drv.ActionCalls())
}

// A novel execution resets the duplicate streak.
func TestExecuteDuplicateStreakResets(t *testing.T) {
	f := newFixture("http://x/a", nil)
	f.drv.Pages["http://x/a"] = []explore.RawElement{rawButton("a1", "One"), rawButton("a2", "Two")}
	f.sc.Frontier.Register("http://x/a", "fp",
		[]explore.ActionID{explore.NewActionID("#a1", "One"), explore.NewActionID("#a2", "Two")}, "")
	f.sc.Transitions.Record(explore.NewTransitionKey("http://x/a", "#a1", "One"))

	dup := explore.RunState{
		CurrentURL:        "http://x/a",
		ExplorationStatus: explore.StatusContinue,
		PendingActions:    []explore.PendingAction{{Kind: explore.ActionClick, Selector: "#a1", VisibleText: "One"}},
	}
	novel := explore.RunState{
		CurrentURL:         "http://x/a",
		CurrentFingerprint: "fp",
		ExplorationStatus:  explore.StatusContinue,
		PendingActions:     []explore.PendingAction{{Kind: explore.ActionClick, Selector: "#a2", VisibleText: "Two"}},
	}

	exec := stage.NewExecute(f.deps)
	for i := 0; i < 3; i++ {
		exec.Run(context.Background(), dup)
	}
	assert.Equal(t, 3, f.sc.DuplicateTransitionStreak())

	exec.Run(context.Background(), novel)
	assert.Equal(t, 0, f.sc.DuplicateTransitionStreak())
}

// The LLM proposing navigation is rejected as a failed action: the batch
// aborts with BACKTRACK and the browser is never driven.
func TestExecuteRejectsNavigate(t *testing.T) {
	f := newFixture("http://x/a", nil)
	f.sc.Frontier.Register("http://x/a", "fp", []explore.ActionID{explore.NewActionID("#a1", "One")}, "")

	state := explore.RunState{
		CurrentURL:        "http://x/a",
		ExplorationStatus: explore.StatusContinue,
		PendingActions:    []explore.PendingAction{{Kind: explore.ActionNavigate, URL: "http://evil.example"}},
	}

	result := stage.NewExecute(f.deps).Run(context.Background(), state)
	require.NoError(t, result.Err)
	assert.Equal(t, explore.StatusBacktrack, result.Delta.ExplorationStatus)
	assert.True(t, historyContains(result.Delta, "Navigation by URL is disabled"))
	assert.Empty(t, f.drv.ActionCalls())
	assert.Empty(t, result.Delta.PendingQueries)
}

// A browser failure on one action marks it explored and aborts the batch
// with BACKTRACK, not FAILURE.
func TestExecuteActionFailureBacktracks(t *testing.T) {
	f := newFixture("http://x/a", nil)
	id := explore.NewActionID("#broken", "Broken")
	f.sc.Frontier.Register("http://x/a", "fp",
		[]explore.ActionID{id, explore.NewActionID("#ok", "OK")}, "")
	f.drv.FailSelectors["#broken"] = errors.New("element not interactable")

	state := explore.RunState{
		CurrentURL:        "http://x/a",
		ExplorationStatus: explore.StatusContinue,
		PendingActions:    []explore.PendingAction{{Kind: explore.ActionClick, Selector: "#broken", VisibleText: "Broken"}},
	}

	result := stage.NewExecute(f.deps).Run(context.Background(), state)
	assert.Equal(t, explore.StatusBacktrack, result.Delta.ExplorationStatus)

	entry, _ := f.sc.Frontier.Get("http://x/a")
	_, explored := entry.ExploredActions[id]
	assert.True(t, explored, "failed action must not be retried")
	assert.True(t, entry.HasUnexplored(), "#ok is still pending")
	assert.Equal(t, []explore.NormalizedURL{"http://x/a"}, f.sc.Backtrack.Peek())
}

// A graph-store write failure is logged and swallowed; exploration
// completes normally.
func TestSessionGraphWriteFailureDoesNotAbort(t *testing.T) {
	f := newFixture("http://x/a", nil,
		llm.Completion{Text: `{"kind":"click","selector":"#a1"}`},
	)
	f.graph.WriteErr = errors.New("store unavailable")
	f.drv.Pages["http://x/a"] = []explore.RawElement{rawButton("a1", "One")}
	f.drv.Pages["http://x/b"] = nil
	f.drv.Transitions["http://x/a|#a1"] = "http://x/b"

	final, err := newSession(t, f, 200).Run(context.Background(), "http://x/a")
	require.NoError(t, err)
	assert.Equal(t, explore.StatusFlowEnd, final.ExplorationStatus)
	assert.True(t, historyContains(final, "graph write failed"))
	assert.Empty(t, final.PendingQueries, "queries are cleared even on failure")
	assert.Empty(t, f.graph.States())
}

// An empty first snapshot ends the run immediately without an LLM call or
// graph writes.
func TestSessionEmptyPage(t *testing.T) {
	f := newFixture("http://x/blank", nil)
	f.drv.Pages["http://x/blank"] = nil

	final, err := newSession(t, f, 200).Run(context.Background(), "http://x/blank")
	require.NoError(t, err)
	assert.Equal(t, explore.StatusFlowEnd, final.ExplorationStatus)
	assert.Empty(t, f.model.Calls)
	assert.Empty(t, f.graph.Transitions())
}

// Login detected but the submit selector is missing: Decide falls through
// to the LLM instead of auto-filling.
func TestSessionLoginMissingSubmitFallsThrough(t *testing.T) {
	f := newFixture("http://x/login", &explore.Credentials{Username: "admin", Password: "admin123"},
		llm.Completion{Text: `{"status":"FLOW_END"}`},
	)
	f.drv.Pages["http://x/login"] = []explore.RawElement{
		rawInput("user", "text", "Username"),
		rawInput("pass", "password", "Password"),
	}

	final, err := newSession(t, f, 200).Run(context.Background(), "http://x/login")
	require.NoError(t, err)
	assert.Equal(t, explore.StatusFlowEnd, final.ExplorationStatus)
	assert.Len(t, f.model.Calls, 1)
	assert.False(t, f.sc.Login.Attempted("http://x/login"))
}

// Snapshot failure surfaces as FAILURE with the audit log intact.
func TestSessionObserveFailure(t *testing.T) {
	f := newFixture("http://x/a", nil)
	f.drv.SnapshotErr = errors.New("target crashed")

	final, err := newSession(t, f, 200).Run(context.Background(), "http://x/a")
	require.NoError(t, err)
	assert.Equal(t, explore.StatusFailure, final.ExplorationStatus)
	assert.True(t, historyContains(final, "observation failed"))
}

// LLM transport failure is FAILURE; an unparseable response is FLOW_END.
func TestSessionLLMErrors(t *testing.T) {
	t.Run("call failure", func(t *testing.T) {
		f := newFixture("http://x/a", nil)
		f.model.Err = errors.New("rate limited")
		f.drv.Pages["http://x/a"] = []explore.RawElement{rawButton("a1", "One")}

		final, err := newSession(t, f, 200).Run(context.Background(), "http://x/a")
		require.NoError(t, err)
		assert.Equal(t, explore.StatusFailure, final.ExplorationStatus)
	})

	t.Run("unparseable response", func(t *testing.T) {
		f := newFixture("http://x/a", nil, llm.Completion{Text: "just click around, you'll figure it out"})
		f.drv.Pages["http://x/a"] = []explore.RawElement{rawButton("a1", "One")}

		final, err := newSession(t, f, 200).Run(context.Background(), "http://x/a")
		require.NoError(t, err)
		assert.Equal(t, explore.StatusFlowEnd, final.ExplorationStatus)
	})
}

// The recursion limit bounds stage invocations; hitting it mid-flight
// marks the run FAILURE.
func TestSessionRecursionLimit(t *testing.T) {
	f := newFixture("http://x/a", nil,
		llm.Completion{Text: `{"kind":"click","selector":"#a1"}`},
	)
	f.drv.Pages["http://x/a"] = []explore.RawElement{rawButton("a1", "One"), rawButton("a2", "Two")}

	final, err := newSession(t, f, 3).Run(context.Background(), "http://x/a")
	require.NoError(t, err)
	assert.Equal(t, explore.StatusFailure, final.ExplorationStatus)
	assert.True(t, historyContains(final, "recursion limit"))
}

// Token usage reported by the model lands in the session's cost tracker.
func TestSessionTokenAccounting(t *testing.T) {
	f := newFixture("http://x/a", nil,
		llm.Completion{Text: `{"status":"FLOW_END"}`, InputTokens: 321, OutputTokens: 45},
	)
	f.drv.Pages["http://x/a"] = []explore.RawElement{rawButton("a1", "One")}

	_, err := newSession(t, f, 200).Run(context.Background(), "http://x/a")
	require.NoError(t, err)

	in, out := f.sc.CostTracker.GetTokenUsage()
	assert.Equal(t, int64(321), in)
	assert.Equal(t, int64(45), out)
}
