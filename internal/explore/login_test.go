package explore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginPageElements() []SimplifiedElement {
	return []SimplifiedElement{
		{Tag: "input", VisibleText: "Username", CSSSelector: "#user", Type: "text"},
		{Tag: "input", VisibleText: "Password", CSSSelector: "#pass", Type: "password"},
		{Tag: "button", VisibleText: "Log in", CSSSelector: "#go", Type: "submit"},
	}
}

func TestDetectLogin(t *testing.T) {
	assert.True(t, DetectLogin(loginPageElements()))

	// Two signals are enough: password field plus username hint.
	assert.True(t, DetectLogin([]SimplifiedElement{
		{Tag: "input", CSSSelector: "#username", Type: "text"},
		{Tag: "input", CSSSelector: "#secret", Type: "password"},
	}))

	// One signal is not.
	assert.False(t, DetectLogin([]SimplifiedElement{
		{Tag: "input", CSSSelector: "#search", Type: "text", VisibleText: "Search"},
		{Tag: "button", CSSSelector: "#filter", VisibleText: "Filter"},
	}))

	assert.False(t, DetectLogin(nil))
}

func TestParseLoginSelectors(t *testing.T) {
	sel, ok := ParseLoginSelectors(loginPageElements())
	require.True(t, ok)
	assert.Equal(t, "#user", sel.Username)
	assert.Equal(t, "#pass", sel.Password)
	assert.Equal(t, "#go", sel.Submit)
}

func TestParseLoginSelectorsEmailField(t *testing.T) {
	sel, ok := ParseLoginSelectors([]SimplifiedElement{
		{Tag: "input", CSSSelector: "#email", Type: "email"},
		{Tag: "input", CSSSelector: "#pw", Type: "password"},
		{Tag: "button", CSSSelector: "#signin", VisibleText: "Sign in"},
	})
	require.True(t, ok)
	assert.Equal(t, "#email", sel.Username)
	assert.Equal(t, "#pw", sel.Password)
	assert.Equal(t, "#signin", sel.Submit)
}

func TestParseLoginSelectorsMissingControl(t *testing.T) {
	// No submit control: callers must fall through to the LLM.
	_, ok := ParseLoginSelectors([]SimplifiedElement{
		{Tag: "input", CSSSelector: "#user", Type: "text"},
		{Tag: "input", CSSSelector: "#pass", Type: "password"},
	})
	assert.False(t, ok)

	// No password field.
	_, ok = ParseLoginSelectors([]SimplifiedElement{
		{Tag: "input", CSSSelector: "#user", Type: "text"},
		{Tag: "button", CSSSelector: "#go", Type: "submit"},
	})
	assert.False(t, ok)
}

func TestLoginState(t *testing.T) {
	l := NewLoginState()
	u := NormalizedURL("http://x/login")

	assert.False(t, l.Attempted(u))
	l.MarkAttempted(u)
	assert.True(t, l.Attempted(u))

	assert.False(t, l.Succeeded(u))
	l.MarkSucceeded(u)
	assert.True(t, l.Succeeded(u))
}
