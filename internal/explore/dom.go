package explore

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const visibleTextCap = 30

// IgnoreList holds CSS selectors for elements to drop before simplification
// (cookie banners, analytics overlays, etc.). It has a built-in default and
// can be extended with selectors from configuration.
type IgnoreList struct {
	selectors []string
}

var defaultIgnoreSelectors = []string{
	"#onetrust-banner-sdk",
	".cookie-banner",
	".cookie-consent",
	"[data-testid=cookie-banner]",
	".analytics-overlay",
	"#truste-consent-track",
}

// NewIgnoreList builds an IgnoreList from the built-in defaults plus any
// extra selectors supplied by configuration.
func NewIgnoreList(extra []string) *IgnoreList {
	return &IgnoreList{selectors: append(append([]string{}, defaultIgnoreSelectors...), extra...)}
}

// Matches reports whether selector is on the ignore list.
func (l *IgnoreList) Matches(selector string) bool {
	for _, s := range l.selectors {
		if s == selector {
			return true
		}
	}
	return false
}

// Simplify turns raw browser-observed elements into the LLM- and
// fingerprint-facing SimplifiedElement list.
//
// Elements with no rendered box and no aria-hidden are skipped (not visible
// and not intentionally hidden). Visible text is derived in priority order
// from textContent, aria-label, placeholder, title, else "(no text)",
// capped at 30 characters. Selectors are chosen #id -> [name="..."] ->
// tag.firstClass -> generic fallback. Collisions on (selector, visibleText)
// within one observation are resolved by selector refinement, appending a
// :nth-of-type(n) qualifier.
func Simplify(raw []RawElement, ignore *IgnoreList) []SimplifiedElement {
	out := make([]SimplifiedElement, 0, len(raw))
	seen := make(map[ActionID]int)

	for _, el := range raw {
		if !el.HasLayoutBox && !el.AriaHidden {
			continue
		}

		selector := chooseSelector(el)
		if ignore != nil && ignore.Matches(selector) {
			continue
		}

		text := visibleText(el)

		id := NewActionID(selector, text)
		if n, dup := seen[id]; dup {
			seen[id] = n + 1
			selector = fmt.Sprintf("%s:nth-of-type(%d)", selector, n+1)
		} else {
			seen[id] = 1
		}

		out = append(out, SimplifiedElement{
			Tag:         strings.ToLower(el.Tag),
			VisibleText: text,
			CSSSelector: selector,
			Type:        el.Type,
			Role:        el.Role,
			Disabled:    el.Disabled,
			InModal:     el.InModal,
		})
	}

	return out
}

func chooseSelector(el RawElement) string {
	if el.ID != "" {
		return "#" + el.ID
	}
	if el.Name != "" {
		return fmt.Sprintf("[name=%q]", el.Name)
	}
	if len(el.Classes) > 0 {
		return strings.ToLower(el.Tag) + "." + el.Classes[0]
	}
	return strings.ToLower(el.Tag)
}

func visibleText(el RawElement) string {
	candidates := []string{el.TextContent, el.AriaLabel, el.Placeholder, el.Title}
	for _, c := range candidates {
		trimmed := strings.TrimSpace(c)
		if trimmed != "" {
			return cap30(trimmed)
		}
	}
	return "(no text)"
}

func cap30(s string) string {
	if len(s) <= visibleTextCap {
		return s
	}
	return s[:visibleTextCap]
}

// FormatDOM renders the canonical, fingerprint-significant DOM text: a
// header, one line per element, with modal elements segregated
// into a leading "=== MODAL SECTION ===" block.
func FormatDOM(elements []SimplifiedElement) string {
	var modal, normal []SimplifiedElement
	for _, e := range elements {
		if e.InModal {
			modal = append(modal, e)
		} else {
			normal = append(normal, e)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Actionable Elements (%d):\n", len(elements))

	idx := 1
	if len(modal) > 0 {
		b.WriteString("=== MODAL SECTION ===\n")
		for _, e := range modal {
			writeElementLine(&b, idx, e)
			idx++
		}
	}
	for _, e := range normal {
		writeElementLine(&b, idx, e)
		idx++
	}

	return b.String()
}

func writeElementLine(b *strings.Builder, idx int, e SimplifiedElement) {
	fmt.Fprintf(b, "[%d] %s | Text: %q | Type: %s | Role: %s | Selector: %s\n",
		idx, strings.ToUpper(e.Tag), e.VisibleText, e.Type, e.Role, e.CSSSelector)
}

// SimplifyHTML is the fallback text-extraction path for when a
// BrowserDriver's in-page SnapshotDOM primitive is unavailable (e.g. a
// pre-flight static fetch before the JS runtime has rendered). It derives a
// RawElement list from raw HTML using goquery, feeding the same Simplify
// pipeline.
func SimplifyHTML(html string) ([]RawElement, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("explore: parse html: %w", err)
	}

	var elements []RawElement
	doc.Find("a, button, input, select, textarea, [role=button], [onclick]").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		id, _ := s.Attr("id")
		name, _ := s.Attr("name")
		typ, _ := s.Attr("type")
		role, _ := s.Attr("role")
		placeholder, _ := s.Attr("placeholder")
		title, _ := s.Attr("title")
		ariaLabel, _ := s.Attr("aria-label")
		_, disabled := s.Attr("disabled")
		classAttr, _ := s.Attr("class")

		elements = append(elements, RawElement{
			Tag:          tag,
			TextContent:  s.Text(),
			AriaLabel:    ariaLabel,
			Placeholder:  placeholder,
			Title:        title,
			Type:         typ,
			Role:         role,
			Disabled:     disabled,
			HasLayoutBox: true,
			ID:           id,
			Name:         name,
			Classes:      strings.Fields(classAttr),
		})
	})

	return elements, nil
}
