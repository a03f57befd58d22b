package explore

// BacktrackStack is a deduped LIFO of URLs with pending work, prioritized by
// section novelty at selection time.
type BacktrackStack struct {
	urls []NormalizedURL
}

// NewBacktrackStack returns an empty stack.
func NewBacktrackStack() *BacktrackStack {
	return &BacktrackStack{}
}

// Push adds url to the top of the stack, first removing any existing entry
// for the same URL. The stack is a deduped LIFO by URL.
func (b *BacktrackStack) Push(u NormalizedURL) {
	b.remove(u)
	b.urls = append(b.urls, u)
}

// Remove drops url from the stack, wherever it sits. The execute stage
// calls it when a from-URL's actions are exhausted so the stack only ever
// holds URLs with pending work.
func (b *BacktrackStack) Remove(u NormalizedURL) {
	b.remove(u)
}

func (b *BacktrackStack) remove(u NormalizedURL) {
	out := b.urls[:0]
	for _, existing := range b.urls {
		if existing != u {
			out = append(out, existing)
		}
	}
	b.urls = out
}

// Peek returns the stack contents, top-of-stack last.
func (b *BacktrackStack) Peek() []NormalizedURL {
	return append([]NormalizedURL{}, b.urls...)
}

// SelectBacktrackTarget chooses the most valuable page to return to when
// the current one is exhausted, preferring breadth across distinct path
// prefixes.
//
// Preference order:
//  1. Unexplored-section priority: a stack entry whose section pattern is
//     not shared by any *other* stack entry that still has unexplored
//     actions is preferred, promoting breadth across sections.
//  2. Modal-bearing targets: among remaining candidates, prefer those whose
//     unexplored actions were observed inside a modal.
//  3. LIFO fallback: the candidate nearest the top of the stack wins,
//     skipping exhausted entries. The stack itself is not modified.
//
// Returns ("", false) when no target has unexplored actions; the caller
// must then terminate with FLOW_END.
func SelectBacktrackTarget(stack *BacktrackStack, frontier *Frontier, modalActions map[NormalizedURL]bool) (NormalizedURL, bool) {
	candidates := stack.Peek()
	if len(candidates) == 0 {
		return "", false
	}

	viable := make([]NormalizedURL, 0, len(candidates))
	for _, u := range candidates {
		s, ok := frontier.Get(u)
		if !ok || !s.HasUnexplored() {
			continue
		}
		viable = append(viable, u)
	}
	if len(viable) == 0 {
		return "", false
	}

	sectionCounts := make(map[string]int, len(viable))
	for _, u := range viable {
		sectionCounts[u.SectionPattern()]++
	}

	var novelSection []NormalizedURL
	for _, u := range viable {
		if sectionCounts[u.SectionPattern()] == 1 {
			novelSection = append(novelSection, u)
		}
	}
	if len(novelSection) > 0 {
		viable = novelSection
	}

	if modalActions != nil {
		var modalBearing []NormalizedURL
		for _, u := range viable {
			if modalActions[u] {
				modalBearing = append(modalBearing, u)
			}
		}
		if len(modalBearing) > 0 {
			viable = modalBearing
		}
	}

	for i := len(stack.urls) - 1; i >= 0; i-- {
		top := stack.urls[i]
		for _, v := range viable {
			if v == top {
				return top, true
			}
		}
	}
	return viable[0], true
}
