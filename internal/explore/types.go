// Package explore implements the exploration engine: the frontier/backtrack
// bookkeeping, DOM simplification and fingerprinting, and the run-state
// reducer that together drive the observe/decide/execute/persist loop.
package explore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// ExplorationStatus is the control-flow signal threaded through RunState and
// consulted by the run loop's conditional edge after Persist.
type ExplorationStatus string

const (
	StatusContinue  ExplorationStatus = "CONTINUE"
	StatusBacktrack ExplorationStatus = "BACKTRACK"
	StatusFlowEnd   ExplorationStatus = "FLOW_END"
	StatusFailure   ExplorationStatus = "FAILURE"
)

// IsTerminal reports whether the status ends the run loop.
func (s ExplorationStatus) IsTerminal() bool {
	return s == StatusFlowEnd || s == StatusFailure
}

// RawElement is what a BrowserDriver's SnapshotDOM returns for a single DOM
// node, before simplification. Fields mirror the attributes the simplifier
// needs to derive a SimplifiedElement.
type RawElement struct {
	Tag          string
	TextContent  string
	AriaLabel    string
	Placeholder  string
	Title        string
	Type         string
	Role         string
	Disabled     bool
	AriaHidden   bool
	HasLayoutBox bool
	InModal      bool
	ID           string
	Name         string
	Classes      []string
}

// SimplifiedElement is the reduced, LLM- and fingerprint-facing
// representation of an actionable DOM element.
type SimplifiedElement struct {
	Tag         string
	VisibleText string
	CSSSelector string
	Type        string
	Role        string
	Disabled    bool
	InModal     bool
}

// ActionID is the composite identity used for per-URL exploration tracking.
// Selectors alone are insufficient because the same selector may match
// several distinct elements in a list; visible text disambiguates them.
type ActionID string

// NewActionID builds the ActionID for a SimplifiedElement.
func NewActionID(selector, visibleText string) ActionID {
	return ActionID(selector + " ||| " + visibleText)
}

// Selector returns the selector half of an ActionID.
func (a ActionID) Selector() string {
	selector, _, _ := strings.Cut(string(a), " ||| ")
	return selector
}

// VisibleText returns the visible-text half of an ActionID.
func (a ActionID) VisibleText() string {
	_, text, _ := strings.Cut(string(a), " ||| ")
	return text
}

// PageFingerprint is a deterministic short hash over the canonical
// serialization of a simplified actionable-element list.
type PageFingerprint string

// Fingerprint computes the 16-hex-char SHA-256 prefix of the canonical DOM
// text. Two snapshots with identical serialization yield identical
// fingerprints.
func Fingerprint(domText string) PageFingerprint {
	sum := sha256.Sum256([]byte(domText))
	return PageFingerprint(hex.EncodeToString(sum[:])[:16])
}

// NormalizedURL is the frontier key: origin + path, trailing slash
// stripped, query string and fragment discarded.
type NormalizedURL string

// Normalize strips query, fragment, and trailing slash from a URL so that
// transient query parameters or fragment-only changes don't fork the
// exploration state. Idempotent: Normalize(Normalize(u)) == Normalize(u).
func Normalize(raw string) (NormalizedURL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("explore: parse url %q: %w", raw, err)
	}
	u.RawQuery = ""
	u.Fragment = ""
	path := strings.TrimSuffix(u.Path, "/")
	u.Path = path
	return NormalizedURL(u.Scheme + "://" + u.Host + path), nil
}

// SectionPattern returns the coarse `/firstPathSegment/*` equivalence class
// used by the backtrack selector for breadth-first prioritization.
func (u NormalizedURL) SectionPattern() string {
	parsed, err := url.Parse(string(u))
	if err != nil {
		return "/*"
	}
	trimmed := strings.TrimPrefix(parsed.Path, "/")
	first, _, _ := strings.Cut(trimmed, "/")
	return "/" + first + "/*"
}

// ExplorationState is the per-normalized-URL bookkeeping record owned by the
// Frontier.
type ExplorationState struct {
	URL               NormalizedURL
	LatestFingerprint PageFingerprint
	// AvailableActions accumulates across visits; it never shrinks.
	AvailableActions map[ActionID]struct{}
	// ExploredActions is always a subset of AvailableActions.
	ExploredActions map[ActionID]struct{}
	ParentURL        NormalizedURL
}

// Unexplored returns availableActions \ exploredActions.
func (s *ExplorationState) Unexplored() []ActionID {
	out := make([]ActionID, 0, len(s.AvailableActions))
	for id := range s.AvailableActions {
		if _, done := s.ExploredActions[id]; !done {
			out = append(out, id)
		}
	}
	return out
}

// HasUnexplored reports whether any available action remains unexplored.
func (s *ExplorationState) HasUnexplored() bool {
	for id := range s.AvailableActions {
		if _, done := s.ExploredActions[id]; !done {
			return true
		}
	}
	return false
}

// BacktrackTarget names a frontier URL worth returning to.
type BacktrackTarget struct {
	URL             NormalizedURL
	UnexploredCount int
}

// PendingActionKind tags the PendingAction union.
type PendingActionKind int

const (
	ActionClick PendingActionKind = iota
	ActionType
	ActionSelect
	// ActionNavigate exists only as a rejected command path: the LLM may
	// propose it, but the execute stage refuses to perform it.
	ActionNavigate
)

// String renders the action kind for logs and metric labels.
func (k PendingActionKind) String() string {
	switch k {
	case ActionClick:
		return "click"
	case ActionType:
		return "type"
	case ActionSelect:
		return "select"
	case ActionNavigate:
		return "navigate"
	default:
		return "unknown"
	}
}

// PendingAction is a single step of an action batch.
type PendingAction struct {
	Kind     PendingActionKind
	Selector string
	Text     string // Type: text to type. Select: option value.
	URL      string // Navigate only (always rejected).

	// VisibleText is the targeted element's label, filled in from the
	// latest observation so TransitionKeys and ActionIDs can be derived
	// without re-querying the DOM.
	VisibleText string
}

// ActionHistoryEntry is one line of the append-only audit log each stage
// contributes to.
type ActionHistoryEntry struct {
	Stage   string
	Message string
}
