package server

import (
	"testing"
	"time"
)

func TestThrottleEnforcesLimitWithinWindow(t *testing.T) {
	th := newImportThrottle(2, time.Minute)
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

	if !th.allowAt("10.0.0.1", now) || !th.allowAt("10.0.0.1", now) {
		t.Fatalf("first %d requests must pass", 2)
	}
	if th.allowAt("10.0.0.1", now.Add(10*time.Second)) {
		t.Fatalf("request over the limit must be rejected")
	}
	// Other keys get their own budget.
	if !th.allowAt("10.0.0.2", now) {
		t.Fatalf("independent key must not share the budget")
	}
}

func TestThrottleResetsAfterWindow(t *testing.T) {
	th := newImportThrottle(1, time.Minute)
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

	if !th.allowAt("10.0.0.1", now) {
		t.Fatalf("first request must pass")
	}
	if th.allowAt("10.0.0.1", now.Add(30*time.Second)) {
		t.Fatalf("second request inside the window must be rejected")
	}
	if !th.allowAt("10.0.0.1", now.Add(61*time.Second)) {
		t.Fatalf("budget must reset once the window has passed")
	}
}

func TestThrottleRejectsEmptyKeyAndPrunesStale(t *testing.T) {
	th := newImportThrottle(1, time.Minute)
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

	if th.allowAt("", now) {
		t.Fatalf("empty key must never be allowed")
	}

	th.allowAt("10.0.0.1", now)
	th.allowAt("10.0.0.2", now.Add(3*time.Minute))
	if _, ok := th.slots["10.0.0.1"]; ok {
		t.Fatalf("stale key should have been pruned")
	}
}

func TestThrottleGuardsDegenerateSettings(t *testing.T) {
	th := newImportThrottle(0, 0)
	if th.limit != 1 || th.window != time.Minute {
		t.Fatalf("degenerate settings must fall back to sane defaults, got limit=%d window=%s", th.limit, th.window)
	}
}
