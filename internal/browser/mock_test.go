package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webexplorer/agent/internal/explore"
)

func TestMockDriverTransitions(t *testing.T) {
	m := NewMockDriver("http://x/a")
	m.Pages["http://x/a"] = []explore.RawElement{{Tag: "BUTTON", ID: "go", HasLayoutBox: true}}
	m.Transitions["http://x/a|#go"] = "http://x/b"

	ctx := context.Background()

	url, err := m.CurrentURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://x/a", url)

	require.NoError(t, m.Click(ctx, "#go"))
	url, _ = m.CurrentURL(ctx)
	assert.Equal(t, "http://x/b", url)

	// Actions with no transition entry stay put.
	require.NoError(t, m.Click(ctx, "#nowhere"))
	url, _ = m.CurrentURL(ctx)
	assert.Equal(t, "http://x/b", url)
}

func TestMockDriverFailureInjection(t *testing.T) {
	m := NewMockDriver("http://x/a")
	m.FailSelectors["#broken"] = errors.New("not interactable")

	err := m.Click(context.Background(), "#broken")
	assert.Error(t, err)

	m.SnapshotErr = errors.New("crashed")
	_, err = m.SnapshotDOM(context.Background())
	assert.Error(t, err)
}

func TestMockDriverCallLog(t *testing.T) {
	m := NewMockDriver("http://x/a")
	ctx := context.Background()

	_ = m.Navigate(ctx, "http://x/b")
	_ = m.Type(ctx, "#user", "admin")
	_ = m.WaitForNetworkIdle(ctx, 500*time.Millisecond, 30*time.Second)

	require.Len(t, m.Calls, 3)
	assert.Equal(t, "navigate", m.Calls[0].Op)
	assert.Equal(t, "type", m.Calls[1].Op)
	assert.Equal(t, "admin", m.Calls[1].Value)

	actions := m.ActionCalls()
	require.Len(t, actions, 1)
	assert.Equal(t, "#user", actions[0].Selector)
}

func TestMockDriverUnknownPage(t *testing.T) {
	m := NewMockDriver("http://x/missing")
	_, err := m.SnapshotDOM(context.Background())
	assert.Error(t, err)
}
