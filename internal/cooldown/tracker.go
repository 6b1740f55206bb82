package cooldown

import (
	"sync"
	"time"
)

// WindowFunc returns the suppression window for an (instrument, group) pair.
type WindowFunc func(symbol, group string) time.Duration

// Tracker keeps the last-trigger timestamp per (instrument, cooldown group)
// and suppresses re-triggers inside the configured window. Entries are never
// deleted; the key space is bounded by instruments x groups.
type Tracker struct {
	window WindowFunc

	mu   sync.Mutex
	last map[key]time.Time
}

type key struct {
	symbol string
	group  string
}

// NewTracker creates a tracker using the given window lookup.
func NewTracker(window WindowFunc) *Tracker {
	return &Tracker{
		window: window,
		last:   make(map[key]time.Time),
	}
}

// ShouldSuppress reports whether a trigger at now falls inside the window
// since the previous accepted trigger. A first observation is never
// suppressed. Accepted triggers overwrite the stored timestamp so a signal
// storm is collapsed to one accepted trigger per window.
func (t *Tracker) ShouldSuppress(symbol, group string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key{symbol: symbol, group: group}
	if prev, ok := t.last[k]; ok {
		if now.Sub(prev) < t.window(symbol, group) {
			return true
		}
	}
	t.last[k] = now
	return false
}

// Touch stamps the window without a suppression check. Used by actions that
// always trade (opens, flips) so that an immediate follow-up averaging
// signal in the same group is suppressed.
func (t *Tracker) Touch(symbol, group string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[key{symbol: symbol, group: group}] = now
}

// LastTrigger returns the stored timestamp for an (instrument, group) pair.
func (t *Tracker) LastTrigger(symbol, group string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.last[key{symbol: symbol, group: group}]
	return ts, ok
}

// Snapshot returns a copy of all entries for reporting.
func (t *Tracker) Snapshot() map[string]time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]time.Time, len(t.last))
	for k, v := range t.last {
		out[k.symbol+"/"+k.group] = v
	}
	return out
}
