// Package stage implements the four exploration phases — observe, decide,
// execute, persist — as graph nodes over explore.RunState, plus the engine
// wiring and the session runner that drives them.
package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/webexplorer/agent/internal/browser"
	"github.com/webexplorer/agent/internal/explore"
	"github.com/webexplorer/agent/internal/graphstore"
	"github.com/webexplorer/agent/internal/llm"
)

// PostBatchPause separates the end of one batch from the landing-page
// observation, giving slow frontends time to start their requests before
// the network-idle wait begins.
const PostBatchPause = 1200 * time.Millisecond

// MaxDuplicateTransitions is the consecutive-duplicate ceiling: the fifth
// skipped duplicate forces FLOW_END instead of CONTINUE.
const MaxDuplicateTransitions = 5

// Deps bundles the external collaborators and session bookkeeping every
// stage needs. One Deps value is built per session and shared by its four
// stage nodes, which run strictly sequentially.
type Deps struct {
	Browser   browser.Driver
	Model     llm.Client
	ModelName string
	Store     graphstore.GraphStore
	Context   *explore.StageContext
	Metrics   *explore.Metrics
	SessionID string

	// Sleep is the inter-action pause; tests replace it with a no-op.
	Sleep func(ctx context.Context, d time.Duration)
}

// NewDeps fills in the default pause implementation.
func NewDeps(d Deps) *Deps {
	if d.Sleep == nil {
		d.Sleep = ctxSleep
	}
	return &d
}

func ctxSleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (d *Deps) observeStage(stage string, status string, started time.Time) {
	if d.Metrics != nil {
		d.Metrics.ObserveStage(stage, status, time.Since(started))
	}
}

func historyEntry(stage, format string, args ...interface{}) explore.ActionHistoryEntry {
	return explore.ActionHistoryEntry{Stage: stage, Message: fmt.Sprintf(format, args...)}
}
