package explore

import "strings"

// LoginState tracks per-URL login attempts for a session. It is bookkeeping
// like Frontier, not part of RunState, and is threaded through StageContext.
type LoginState struct {
	attempted map[NormalizedURL]bool
	succeeded map[NormalizedURL]bool
}

// NewLoginState returns an empty LoginState.
func NewLoginState() *LoginState {
	return &LoginState{attempted: make(map[NormalizedURL]bool), succeeded: make(map[NormalizedURL]bool)}
}

// Attempted reports whether a login batch was already emitted for url.
func (l *LoginState) Attempted(u NormalizedURL) bool { return l.attempted[u] }

// Succeeded reports whether login at url is already known to have worked.
func (l *LoginState) Succeeded(u NormalizedURL) bool { return l.succeeded[u] }

// MarkAttempted records that a login batch was emitted for url.
func (l *LoginState) MarkAttempted(u NormalizedURL) { l.attempted[u] = true }

// MarkSucceeded records that login at url succeeded, inferred in Observe
// when a prior attempt is followed by a non-login page.
func (l *LoginState) MarkSucceeded(u NormalizedURL) { l.succeeded[u] = true }

// loginSignalCount tallies the element properties the DetectLogin
// heuristic counts: a password field, a username hint, a submit control.
func loginSignalCount(elements []SimplifiedElement) int {
	signals := 0
	hasPassword := false
	hasUsernameHint := false
	hasSubmit := false
	for _, e := range elements {
		lowerType := strings.ToLower(e.Type)
		lowerText := strings.ToLower(e.VisibleText)
		lowerSelector := strings.ToLower(e.CSSSelector)

		if lowerType == "password" {
			hasPassword = true
		}
		if strings.Contains(lowerSelector, "user") || strings.Contains(lowerText, "username") ||
			strings.Contains(lowerSelector, "email") {
			hasUsernameHint = true
		}
		if lowerType == "submit" || strings.Contains(lowerText, "log in") || strings.Contains(lowerText, "sign in") {
			hasSubmit = true
		}
	}
	if hasPassword {
		signals++
	}
	if hasUsernameHint {
		signals++
	}
	if hasSubmit {
		signals++
	}
	return signals
}

// DetectLogin reports whether the page looks like a login screen: at least
// two of {password field, username hint, submit/login control} are present.
func DetectLogin(elements []SimplifiedElement) bool {
	return loginSignalCount(elements) >= 2
}

// LoginSelectors are the best-effort selectors for the username/password/
// submit controls on a detected login page, parsed from the simplified DOM.
type LoginSelectors struct {
	Username string
	Password string
	Submit   string
}

// ParseLoginSelectors scans elements for the username/password/submit
// controls. Returns ok=false if any of the three could not be identified,
// in which case the caller falls through to the LLM.
func ParseLoginSelectors(elements []SimplifiedElement) (LoginSelectors, bool) {
	var sel LoginSelectors
	for _, e := range elements {
		lowerType := strings.ToLower(e.Type)
		lowerSelector := strings.ToLower(e.CSSSelector)
		lowerText := strings.ToLower(e.VisibleText)

		switch {
		case lowerType == "password" && sel.Password == "":
			sel.Password = e.CSSSelector
		case sel.Username == "" && (strings.Contains(lowerSelector, "user") || strings.Contains(lowerSelector, "email") || lowerType == "email"):
			sel.Username = e.CSSSelector
		case sel.Submit == "" && (lowerType == "submit" || strings.Contains(lowerText, "log in") || strings.Contains(lowerText, "sign in")):
			sel.Submit = e.CSSSelector
		}
	}
	return sel, sel.Username != "" && sel.Password != "" && sel.Submit != ""
}
