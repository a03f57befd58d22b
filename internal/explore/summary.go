package explore

import (
	"fmt"
	"strings"

	"github.com/dshills/langgraph-go/graph"
)

// VisitCounter tracks how many times Observe has landed on each normalized
// URL, independent of exploredActions. It never influences control flow;
// its only consumer is Summary. No warning is logged for repeated visits.
type VisitCounter struct {
	counts map[NormalizedURL]int
}

// NewVisitCounter returns an empty VisitCounter.
func NewVisitCounter() *VisitCounter {
	return &VisitCounter{counts: make(map[NormalizedURL]int)}
}

// Record increments url's visit count and returns the new total.
func (v *VisitCounter) Record(u NormalizedURL) int {
	v.counts[u]++
	return v.counts[u]
}

// Count returns url's current visit count.
func (v *VisitCounter) Count(u NormalizedURL) int {
	return v.counts[u]
}

// Summary is the end-of-run report: pages visited, execute-stage activity,
// backtracks taken, tokens spent, and final status. Populated from
// RunState plus a graph.CostTracker at cmd/explorer shutdown.
//
// ActionsRun is the number of execute-stage entries in the action history:
// one per executed batch, plus one per skipped duplicate, rejected or
// failed batch, and per logged warning. It does not count the individual
// actions inside a batch.
type Summary struct {
	PagesVisited  int
	ActionsRun    int
	Backtracks    int
	FinalStatus   ExplorationStatus
	InputTokens   int64
	OutputTokens  int64
	TotalCost     float64
	RevisitCounts map[NormalizedURL]int
}

// BuildSummary assembles a Summary from the final RunState, the session's
// visit counter, and its cost tracker. backtracks is the number of
// BACKTRACK decisions observed over the run, tracked by the caller (Decide
// does not retain history of its own past decisions in RunState).
func BuildSummary(final RunState, visits *VisitCounter, backtracks int, tracker *graph.CostTracker) Summary {
	in, out := int64(0), int64(0)
	cost := 0.0
	if tracker != nil {
		in, out = tracker.GetTokenUsage()
		cost = tracker.GetTotalCost()
	}

	actionsRun := 0
	for _, entry := range final.ActionHistory {
		if entry.Stage == "execute" {
			actionsRun++
		}
	}

	revisits := make(map[NormalizedURL]int, len(visits.counts))
	for u, n := range visits.counts {
		revisits[u] = n
	}

	return Summary{
		PagesVisited:  len(visits.counts),
		ActionsRun:    actionsRun,
		Backtracks:    backtracks,
		FinalStatus:   final.ExplorationStatus,
		InputTokens:   in,
		OutputTokens:  out,
		TotalCost:     cost,
		RevisitCounts: revisits,
	}
}

// String renders the report the way the original agent's run-end log line
// does: one summary line, no structured fields.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "exploration complete: status=%s pages=%d actions=%d backtracks=%d tokens_in=%d tokens_out=%d cost=$%.4f",
		s.FinalStatus, s.PagesVisited, s.ActionsRun, s.Backtracks, s.InputTokens, s.OutputTokens, s.TotalCost)
	return b.String()
}
