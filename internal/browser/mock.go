package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/webexplorer/agent/internal/explore"
)

// MockCall records a single Driver invocation for test assertions.
type MockCall struct {
	Op       string // navigate, click, type, select, currentURL, idle, snapshot
	Selector string
	Value    string
	URL      string
}

// MockDriver is a scripted Driver for tests. It models a site as a map of
// URL -> raw elements plus a transition table keyed by "url|selector", so
// tests can express small page graphs without a browser.
type MockDriver struct {
	// Pages maps a URL to the raw elements SnapshotDOM returns there.
	Pages map[string][]explore.RawElement

	// Transitions maps "url|selector" to the URL an action lands on.
	// Actions with no entry leave the location unchanged.
	Transitions map[string]string

	// FailSelectors injects per-selector action failures.
	FailSelectors map[string]error

	// NavigateErr, SnapshotErr, and IdleErr inject failures into the
	// corresponding operations.
	NavigateErr error
	SnapshotErr error
	IdleErr     error

	// Calls is the history of every invocation, in order.
	Calls []MockCall

	// Location is the current URL; Navigate and transitions update it.
	Location string

	Closed bool
}

// NewMockDriver returns a MockDriver positioned at startURL.
func NewMockDriver(startURL string) *MockDriver {
	return &MockDriver{
		Pages:         make(map[string][]explore.RawElement),
		Transitions:   make(map[string]string),
		FailSelectors: make(map[string]error),
		Location:      startURL,
	}
}

func (m *MockDriver) record(c MockCall) { m.Calls = append(m.Calls, c) }

// Navigate implements Driver.
func (m *MockDriver) Navigate(_ context.Context, url string) error {
	m.record(MockCall{Op: "navigate", URL: url})
	if m.NavigateErr != nil {
		return m.NavigateErr
	}
	m.Location = url
	return nil
}

func (m *MockDriver) act(op, selector, value string) error {
	m.record(MockCall{Op: op, Selector: selector, Value: value, URL: m.Location})
	if err, ok := m.FailSelectors[selector]; ok {
		return err
	}
	if next, ok := m.Transitions[m.Location+"|"+selector]; ok {
		m.Location = next
	}
	return nil
}

// Click implements Driver.
func (m *MockDriver) Click(_ context.Context, selector string) error {
	return m.act("click", selector, "")
}

// Type implements Driver.
func (m *MockDriver) Type(_ context.Context, selector, text string) error {
	return m.act("type", selector, text)
}

// SelectOption implements Driver.
func (m *MockDriver) SelectOption(_ context.Context, selector, value string) error {
	return m.act("select", selector, value)
}

// CurrentURL implements Driver.
func (m *MockDriver) CurrentURL(_ context.Context) (string, error) {
	m.record(MockCall{Op: "currentURL", URL: m.Location})
	return m.Location, nil
}

// WaitForNetworkIdle implements Driver. It never sleeps.
func (m *MockDriver) WaitForNetworkIdle(_ context.Context, _, _ time.Duration) error {
	m.record(MockCall{Op: "idle"})
	return m.IdleErr
}

// SnapshotDOM implements Driver.
func (m *MockDriver) SnapshotDOM(_ context.Context) ([]explore.RawElement, error) {
	m.record(MockCall{Op: "snapshot", URL: m.Location})
	if m.SnapshotErr != nil {
		return nil, m.SnapshotErr
	}
	elements, ok := m.Pages[m.Location]
	if !ok {
		return nil, fmt.Errorf("mock: no page registered for %s", m.Location)
	}
	return elements, nil
}

// Close implements Driver.
func (m *MockDriver) Close() error {
	m.Closed = true
	return nil
}

// ActionCalls returns only the browser-mutating calls (click/type/select),
// which is usually what a test wants to assert on.
func (m *MockDriver) ActionCalls() []MockCall {
	out := make([]MockCall, 0, len(m.Calls))
	for _, c := range m.Calls {
		switch c.Op {
		case "click", "type", "select":
			out = append(out, c)
		}
	}
	return out
}
