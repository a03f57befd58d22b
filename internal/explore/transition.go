package explore

import "fmt"

// TransitionKey is the session-scope dedupe key for execution: a batch
// starting at fromURL with the given first selector/visible-text is
// considered "the same transition" regardless of how many times it's
// proposed.
type TransitionKey string

// NewTransitionKey builds the primary TransitionKey.
func NewTransitionKey(fromURL, firstSelector, firstVisibleText string) TransitionKey {
	return TransitionKey(fmt.Sprintf("%s|%s|%s", fromURL, firstSelector, firstVisibleText))
}

// NewTransitionKeyWithLanding builds the secondary keying added once the
// landing URL is known.
func NewTransitionKeyWithLanding(fromURL, firstSelector, firstVisibleText, finalURL string) TransitionKey {
	return TransitionKey(fmt.Sprintf("%s|%s|%s|%s", fromURL, firstSelector, firstVisibleText, finalURL))
}

// TransitionCache is the session-scoped set of already-executed
// TransitionKeys.
type TransitionCache struct {
	seen map[TransitionKey]struct{}
}

// NewTransitionCache returns an empty cache.
func NewTransitionCache() *TransitionCache {
	return &TransitionCache{seen: make(map[TransitionKey]struct{})}
}

// Seen reports whether key has already been executed this session.
func (c *TransitionCache) Seen(key TransitionKey) bool {
	_, ok := c.seen[key]
	return ok
}

// Record marks keys as executed.
func (c *TransitionCache) Record(keys ...TransitionKey) {
	for _, k := range keys {
		c.seen[k] = struct{}{}
	}
}
