package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/webexplorer/agent/internal/explore"
)

// snapshotScript is the in-browser DOM query behind SnapshotDOM. It walks
// the actionable elements, records visibility and modal containment, and
// returns the raw attribute bundle the simplifier consumes. Modal
// containment is detected by walking ancestors for dialog/modal markers.
const snapshotScript = `(() => {
	const actionable = document.querySelectorAll(
		'a, button, input, select, textarea, [role=button], [onclick]');
	const inModal = (el) => {
		for (let n = el; n; n = n.parentElement) {
			if (n.getAttribute && (
				n.getAttribute('role') === 'dialog' ||
				n.hasAttribute('aria-modal') ||
				(n.className && typeof n.className === 'string' &&
					/\bmodal\b/.test(n.className)))) {
				return true;
			}
		}
		return false;
	};
	const out = [];
	actionable.forEach((el) => {
		const rect = el.getBoundingClientRect();
		out.push({
			tag: el.tagName,
			textContent: (el.textContent || '').trim(),
			ariaLabel: el.getAttribute('aria-label') || '',
			placeholder: el.getAttribute('placeholder') || '',
			title: el.getAttribute('title') || '',
			type: el.getAttribute('type') || '',
			role: el.getAttribute('role') || '',
			disabled: el.disabled === true || el.hasAttribute('disabled'),
			ariaHidden: el.getAttribute('aria-hidden') === 'true',
			hasLayoutBox: rect.width > 0 && rect.height > 0,
			inModal: inModal(el),
			id: el.id || '',
			name: el.getAttribute('name') || '',
			classes: Array.from(el.classList || []),
		});
	});
	return out;
})()`

// rawElementJSON is the wire shape snapshotScript produces.
type rawElementJSON struct {
	Tag          string   `json:"tag"`
	TextContent  string   `json:"textContent"`
	AriaLabel    string   `json:"ariaLabel"`
	Placeholder  string   `json:"placeholder"`
	Title        string   `json:"title"`
	Type         string   `json:"type"`
	Role         string   `json:"role"`
	Disabled     bool     `json:"disabled"`
	AriaHidden   bool     `json:"ariaHidden"`
	HasLayoutBox bool     `json:"hasLayoutBox"`
	InModal      bool     `json:"inModal"`
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Classes      []string `json:"classes"`
}

// ChromeDriver is the chromedp-backed Driver. Each instance launches its
// own browser process and tab, so parallel sessions never share page state.
type ChromeDriver struct {
	ctx     context.Context
	cancels []context.CancelFunc

	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	lastDone time.Time
}

// NewChromeDriver launches a browser tab ready for exploration. When
// headless is false a visible window is used, which helps when debugging
// selector issues by eye.
func NewChromeDriver(headless bool) (*ChromeDriver, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	d := &ChromeDriver{
		ctx:      tabCtx,
		cancels:  []context.CancelFunc{cancelTab, cancelAlloc},
		inflight: make(map[network.RequestID]struct{}),
		lastDone: time.Now(),
	}

	chromedp.ListenTarget(tabCtx, d.trackNetwork)

	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		d.Close()
		return nil, fmt.Errorf("browser: start chrome: %w", err)
	}
	return d, nil
}

// trackNetwork maintains the in-flight request set WaitForNetworkIdle polls.
func (d *ChromeDriver) trackNetwork(ev interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		d.inflight[e.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(d.inflight, e.RequestID)
		d.lastDone = time.Now()
	case *network.EventLoadingFailed:
		delete(d.inflight, e.RequestID)
		d.lastDone = time.Now()
	}
}

func (d *ChromeDriver) idleSince() (int, time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight), d.lastDone
}

// Navigate implements Driver.
func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := mergeContext(d.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	return d.WaitForNetworkIdle(ctx, NetworkIdleQuiet, NetworkIdleMax)
}

// Click implements Driver.
func (d *ChromeDriver) Click(ctx context.Context, selector string) error {
	runCtx, cancel := mergeContext(d.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("browser: click %s: %w", selector, err)
	}
	return nil
}

// Type implements Driver.
func (d *ChromeDriver) Type(ctx context.Context, selector, text string) error {
	runCtx, cancel := mergeContext(d.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("browser: type into %s: %w", selector, err)
	}
	return nil
}

// SelectOption implements Driver.
func (d *ChromeDriver) SelectOption(ctx context.Context, selector, value string) error {
	runCtx, cancel := mergeContext(d.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.SetValue(selector, value, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("browser: select %s on %s: %w", value, selector, err)
	}
	return nil
}

// CurrentURL implements Driver.
func (d *ChromeDriver) CurrentURL(ctx context.Context) (string, error) {
	runCtx, cancel := mergeContext(d.ctx, ctx)
	defer cancel()
	var url string
	if err := chromedp.Run(runCtx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("browser: read location: %w", err)
	}
	return url, nil
}

// WaitForNetworkIdle implements Driver by polling the in-flight request
// set until it has been empty for quiet, or max elapses.
func (d *ChromeDriver) WaitForNetworkIdle(ctx context.Context, quiet, max time.Duration) error {
	deadline := time.Now().Add(max)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		pending, lastDone := d.idleSince()
		if pending == 0 && time.Since(lastDone) >= quiet {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("browser: network not idle after %s (%d requests in flight)", max, pending)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SnapshotDOM implements Driver.
func (d *ChromeDriver) SnapshotDOM(ctx context.Context) ([]explore.RawElement, error) {
	runCtx, cancel := mergeContext(d.ctx, ctx)
	defer cancel()

	var raw []rawElementJSON
	if err := chromedp.Run(runCtx, chromedp.Evaluate(snapshotScript, &raw)); err != nil {
		return nil, fmt.Errorf("browser: snapshot dom: %w", err)
	}

	out := make([]explore.RawElement, 0, len(raw))
	for _, r := range raw {
		out = append(out, explore.RawElement{
			Tag:          r.Tag,
			TextContent:  r.TextContent,
			AriaLabel:    r.AriaLabel,
			Placeholder:  r.Placeholder,
			Title:        r.Title,
			Type:         r.Type,
			Role:         r.Role,
			Disabled:     r.Disabled,
			AriaHidden:   r.AriaHidden,
			HasLayoutBox: r.HasLayoutBox,
			InModal:      r.InModal,
			ID:           r.ID,
			Name:         r.Name,
			Classes:      r.Classes,
		})
	}
	return out, nil
}

// Close implements Driver.
func (d *ChromeDriver) Close() error {
	for _, cancel := range d.cancels {
		cancel()
	}
	return nil
}

// mergeContext runs chromedp actions on the driver's tab context while
// honoring the caller's cancellation and deadline.
func mergeContext(tab, caller context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(tab)
	stop := context.AfterFunc(caller, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}
