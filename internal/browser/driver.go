// Package browser defines the driver contract the exploration engine uses
// to interact with a page, plus the default chromedp-backed implementation
// and a scripted mock for tests.
package browser

import (
	"context"
	"time"

	"github.com/webexplorer/agent/internal/explore"
)

// Driver is the black-box browser capability the engine drives. One Driver
// instance is owned by exactly one session for its lifetime and closed on
// termination.
//
// Implementations must tolerate being called sequentially from a single
// goroutine; they are never called concurrently within a session.
type Driver interface {
	// Navigate drives the browser to url and waits for the page load to
	// settle.
	Navigate(ctx context.Context, url string) error

	// Click dispatches a click on the first element matching selector.
	Click(ctx context.Context, selector string) error

	// Type focuses the element matching selector and types text into it.
	Type(ctx context.Context, selector, text string) error

	// SelectOption sets the value of the <select> matching selector.
	SelectOption(ctx context.Context, selector, value string) error

	// CurrentURL returns the browser's current location.
	CurrentURL(ctx context.Context) (string, error)

	// WaitForNetworkIdle blocks until no network requests have been in
	// flight for quiet, or until max elapses. An elapsed max returns an
	// error the caller may treat as recoverable.
	WaitForNetworkIdle(ctx context.Context, quiet, max time.Duration) error

	// SnapshotDOM runs the in-browser DOM query and returns the current
	// actionable elements, unsimplified.
	SnapshotDOM(ctx context.Context) ([]explore.RawElement, error)

	// Close releases the underlying browser resources.
	Close() error
}

// Default intra-page timing used by the stages.
const (
	// NetworkIdleQuiet is the quiet period that must elapse with no
	// in-flight requests before a page is considered settled.
	NetworkIdleQuiet = 500 * time.Millisecond

	// NetworkIdleMax caps how long any network-idle wait may block.
	NetworkIdleMax = 30 * time.Second

	// IntraBatchPause separates consecutive actions within one batch.
	IntraBatchPause = 500 * time.Millisecond
)
