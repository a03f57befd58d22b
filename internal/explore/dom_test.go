package explore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplifyVisibility(t *testing.T) {
	raw := []RawElement{
		{Tag: "BUTTON", TextContent: "Visible", HasLayoutBox: true, ID: "vis"},
		{Tag: "BUTTON", TextContent: "Invisible", HasLayoutBox: false},
		{Tag: "BUTTON", TextContent: "Hidden on purpose", HasLayoutBox: false, AriaHidden: true, ID: "hid"},
	}
	out := Simplify(raw, nil)
	require.Len(t, out, 2)
	assert.Equal(t, "#vis", out[0].CSSSelector)
	assert.Equal(t, "#hid", out[1].CSSSelector)
}

func TestSimplifySelectorPriority(t *testing.T) {
	tests := []struct {
		name string
		el   RawElement
		want string
	}{
		{"id wins", RawElement{Tag: "INPUT", ID: "user", Name: "username", Classes: []string{"field"}, HasLayoutBox: true}, "#user"},
		{"name second", RawElement{Tag: "INPUT", Name: "username", Classes: []string{"field"}, HasLayoutBox: true}, `[name="username"]`},
		{"class third", RawElement{Tag: "BUTTON", Classes: []string{"primary", "lg"}, HasLayoutBox: true}, "button.primary"},
		{"tag fallback", RawElement{Tag: "SELECT", HasLayoutBox: true}, "select"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Simplify([]RawElement{tt.el}, nil)
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].CSSSelector)
		})
	}
}

func TestSimplifyVisibleTextFallbacks(t *testing.T) {
	tests := []struct {
		name string
		el   RawElement
		want string
	}{
		{"text content", RawElement{Tag: "A", TextContent: "  Home  ", HasLayoutBox: true}, "Home"},
		{"aria label", RawElement{Tag: "BUTTON", AriaLabel: "Close dialog", HasLayoutBox: true}, "Close dialog"},
		{"placeholder", RawElement{Tag: "INPUT", Placeholder: "Search", HasLayoutBox: true}, "Search"},
		{"title", RawElement{Tag: "A", Title: "Profile", HasLayoutBox: true}, "Profile"},
		{"none", RawElement{Tag: "BUTTON", HasLayoutBox: true}, "(no text)"},
		{"capped at 30", RawElement{Tag: "A", TextContent: strings.Repeat("x", 50), HasLayoutBox: true}, strings.Repeat("x", 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Simplify([]RawElement{tt.el}, nil)
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].VisibleText)
		})
	}
}

func TestSimplifyCollisionRefinement(t *testing.T) {
	raw := []RawElement{
		{Tag: "BUTTON", TextContent: "Delete", Classes: []string{"row-action"}, HasLayoutBox: true},
		{Tag: "BUTTON", TextContent: "Delete", Classes: []string{"row-action"}, HasLayoutBox: true},
		{Tag: "BUTTON", TextContent: "Delete", Classes: []string{"row-action"}, HasLayoutBox: true},
	}
	out := Simplify(raw, nil)
	require.Len(t, out, 3)

	seen := make(map[ActionID]struct{})
	for _, e := range out {
		id := NewActionID(e.CSSSelector, e.VisibleText)
		_, dup := seen[id]
		assert.False(t, dup, "duplicate action id %s", id)
		seen[id] = struct{}{}
	}
	assert.Equal(t, "button.row-action", out[0].CSSSelector)
	assert.Equal(t, "button.row-action:nth-of-type(2)", out[1].CSSSelector)
	assert.Equal(t, "button.row-action:nth-of-type(3)", out[2].CSSSelector)
}

func TestSimplifyIgnoreList(t *testing.T) {
	raw := []RawElement{
		{Tag: "DIV", TextContent: "Accept cookies", ID: "onetrust-banner-sdk", HasLayoutBox: true},
		{Tag: "BUTTON", TextContent: "Real", ID: "real", HasLayoutBox: true},
		{Tag: "DIV", TextContent: "Tracker", ID: "custom-overlay", HasLayoutBox: true},
	}
	out := Simplify(raw, NewIgnoreList([]string{"#custom-overlay"}))
	require.Len(t, out, 1)
	assert.Equal(t, "#real", out[0].CSSSelector)
}

func TestSimplifyKeepsDisabled(t *testing.T) {
	raw := []RawElement{{Tag: "BUTTON", TextContent: "Save", ID: "save", Disabled: true, HasLayoutBox: true}}
	out := Simplify(raw, nil)
	require.Len(t, out, 1)
	assert.True(t, out[0].Disabled)
}

func TestFormatDOM(t *testing.T) {
	elements := []SimplifiedElement{
		{Tag: "button", VisibleText: "Go", CSSSelector: "#go", Type: "submit"},
		{Tag: "input", VisibleText: "Name", CSSSelector: "#name", Type: "text", InModal: true},
	}

	got := FormatDOM(elements)
	want := "Actionable Elements (2):\n" +
		"=== MODAL SECTION ===\n" +
		"[1] INPUT | Text: \"Name\" | Type: text | Role:  | Selector: #name\n" +
		"[2] BUTTON | Text: \"Go\" | Type: submit | Role:  | Selector: #go\n"
	assert.Equal(t, want, got)

	// The exact serialization is fingerprint-significant, so the same
	// input must serialize identically every time.
	assert.Equal(t, Fingerprint(got), Fingerprint(FormatDOM(elements)))
}

func TestFormatDOMNoModal(t *testing.T) {
	got := FormatDOM([]SimplifiedElement{{Tag: "a", VisibleText: "Home", CSSSelector: "a.nav"}})
	assert.NotContains(t, got, "MODAL SECTION")
	assert.True(t, strings.HasPrefix(got, "Actionable Elements (1):\n"))
}

func TestSimplifyHTML(t *testing.T) {
	html := `<html><body>
		<a href="/home" id="home">Home</a>
		<input type="password" name="pass" placeholder="Password">
		<button class="primary" disabled>Save</button>
		<div>not actionable</div>
	</body></html>`

	raw, err := SimplifyHTML(html)
	require.NoError(t, err)
	require.Len(t, raw, 3)

	out := Simplify(raw, nil)
	require.Len(t, out, 3)
	assert.Equal(t, "#home", out[0].CSSSelector)
	assert.Equal(t, `[name="pass"]`, out[1].CSSSelector)
	assert.Equal(t, "password", out[1].Type)
	assert.Equal(t, "button.primary", out[2].CSSSelector)
	assert.True(t, out[2].Disabled)
}
