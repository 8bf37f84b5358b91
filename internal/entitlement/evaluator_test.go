package entitlement

import (
	"testing"
	"time"
)

func evaluatorAt(now time.Time) *Evaluator {
	return NewEvaluatorWithClock(func() time.Time { return now })
}

func TestEvaluator_ValidInsideBudget(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	e := evaluatorAt(now)

	// Guest budget is 60s: still valid one second before the boundary.
	createdAt := now.Add(-59 * time.Second)
	if !e.IsValid(false, createdAt) {
		t.Error("Expected window to be valid at t=59s of a 60s budget")
	}
	if got := e.RemainingSeconds(false, createdAt); got != 1 {
		t.Errorf("Expected 1 second remaining, got %d", got)
	}
}

func TestEvaluator_InvalidAtBoundary(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	e := evaluatorAt(now)

	createdAt := now.Add(-60 * time.Second)
	if e.IsValid(false, createdAt) {
		t.Error("Expected window to be invalid at exactly t=60s")
	}
	if got := e.RemainingSeconds(false, createdAt); got != 0 {
		t.Errorf("Expected 0 seconds remaining, got %d", got)
	}
}

func TestEvaluator_ElapsedFloorsMilliseconds(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	e := evaluatorAt(now)

	// 59.999s elapsed floors to 59s, so the window is still valid.
	createdAt := now.Add(-59*time.Second - 999*time.Millisecond)
	if !e.IsValid(false, createdAt) {
		t.Error("Expected 59.999s elapsed to floor to 59s and remain valid")
	}
	if got := e.RemainingSeconds(false, createdAt); got != 1 {
		t.Errorf("Expected 1 second remaining, got %d", got)
	}
}

func TestEvaluator_ZeroStartFailsClosed(t *testing.T) {
	e := NewEvaluator()

	if e.IsValid(true, time.Time{}) {
		t.Error("Expected zero start time to be invalid")
	}
	if got := e.RemainingSeconds(true, time.Time{}); got != 0 {
		t.Errorf("Expected 0 remaining for zero start time, got %d", got)
	}
}

func TestEvaluator_FutureStartFailsClosed(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	e := evaluatorAt(now)

	// A start time ahead of the clock means skew; never fail open.
	createdAt := now.Add(10 * time.Second)
	if e.IsValid(true, createdAt) {
		t.Error("Expected future start time to be invalid")
	}
	if got := e.RemainingSeconds(true, createdAt); got != 0 {
		t.Errorf("Expected 0 remaining for future start time, got %d", got)
	}
}

func TestEvaluator_AuthenticatedReloadKeepsRemaining(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	e := evaluatorAt(now)

	// Reload at t=120s of a 300s budget: remaining must be 180, not reset.
	createdAt := now.Add(-120 * time.Second)
	if !e.IsValid(true, createdAt) {
		t.Error("Expected authenticated window to be valid at t=120s")
	}
	if got := e.RemainingSeconds(true, createdAt); got != 180 {
		t.Errorf("Expected 180 seconds remaining, got %d", got)
	}
}
