package server

import (
	"sync"
	"time"
)

// importThrottle caps how many bulk imports a single client may start
// per window. Imports rewrite thousands of rows; a stuck client
// retrying uploads must not queue redundant full passes. Limit and
// window come from configuration.
type importThrottle struct {
	limit  int
	window time.Duration

	mu    sync.Mutex
	slots map[string]*throttleSlot
}

type throttleSlot struct {
	windowStart time.Time
	used        int
}

func newImportThrottle(limit int, window time.Duration) *importThrottle {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &importThrottle{
		limit:  limit,
		window: window,
		slots:  make(map[string]*throttleSlot),
	}
}

// Allow reports whether the key may start another import right now.
func (t *importThrottle) Allow(key string) bool {
	return t.allowAt(key, time.Now().UTC())
}

func (t *importThrottle) allowAt(key string, now time.Time) bool {
	if key == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	slot := t.slots[key]
	if slot == nil || now.Sub(slot.windowStart) > t.window {
		slot = &throttleSlot{windowStart: now}
		t.slots[key] = slot
		t.pruneLocked(now)
	}

	if slot.used >= t.limit {
		return false
	}
	slot.used++
	return true
}

// pruneLocked drops keys whose window has long passed so the map does
// not grow with every client address ever seen.
func (t *importThrottle) pruneLocked(now time.Time) {
	for key, slot := range t.slots {
		if now.Sub(slot.windowStart) > 2*t.window {
			delete(t.slots, key)
		}
	}
}
