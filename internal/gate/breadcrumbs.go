package gate

import (
	"sync"
	"time"
)

// defaultTrailCap bounds the breadcrumb ring.
const defaultTrailCap = 50

// Breadcrumb is a timestamped diagnostic event. Breadcrumbs exist purely for
// troubleshooting auth flows; no component may depend on them functionally.
type Breadcrumb struct {
	At     time.Time
	Kind   string
	Detail string
}

// Trail is a session-scoped, capped breadcrumb store.
type Trail struct {
	mu     sync.Mutex
	cap    int
	events []Breadcrumb
}

// NewTrail returns a Trail keeping at most capacity entries. A non-positive
// capacity falls back to the default.
func NewTrail(capacity int) *Trail {
	if capacity <= 0 {
		capacity = defaultTrailCap
	}
	return &Trail{cap: capacity}
}

// Add appends an event, evicting the oldest entries past capacity.
func (t *Trail) Add(kind, detail string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, Breadcrumb{At: time.Now(), Kind: kind, Detail: detail})
	if overflow := len(t.events) - t.cap; overflow > 0 {
		t.events = append(t.events[:0:0], t.events[overflow:]...)
	}
}

// Snapshot returns a copy of the recorded events, oldest first.
func (t *Trail) Snapshot() []Breadcrumb {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Breadcrumb, len(t.events))
	copy(out, t.events)
	return out
}

// Clear drops all recorded events.
func (t *Trail) Clear() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}
