package entitlement

import "time"

// Evaluator judges whether an activity window is still inside its time
// budget. The clock is injected so tests can pin "now".
//
// Both methods fail closed: a zero start time, a start time in the future
// (clock skew), or an exhausted budget all evaluate as invalid with zero
// remaining. A storage or parse failure upstream therefore never grants
// unlimited access.
type Evaluator struct {
	clock func() time.Time
}

// NewEvaluator creates an Evaluator using the wall clock.
func NewEvaluator() *Evaluator {
	return NewEvaluatorWithClock(time.Now)
}

// NewEvaluatorWithClock creates an Evaluator with a custom clock.
func NewEvaluatorWithClock(clock func() time.Time) *Evaluator {
	if clock == nil {
		clock = time.Now
	}
	return &Evaluator{clock: clock}
}

// IsValid reports whether the window started at createdAt is still inside
// the conversation budget for the given auth state.
func (e *Evaluator) IsValid(authenticated bool, createdAt time.Time) bool {
	elapsed, ok := e.elapsedSeconds(createdAt)
	if !ok {
		return false
	}
	return elapsed < int64(ConversationDuration(authenticated)/time.Second)
}

// RemainingSeconds returns the whole seconds left in the conversation
// budget. Never negative; 0 for any invalid window.
func (e *Evaluator) RemainingSeconds(authenticated bool, createdAt time.Time) int {
	elapsed, ok := e.elapsedSeconds(createdAt)
	if !ok {
		return 0
	}
	remaining := int64(ConversationDuration(authenticated)/time.Second) - elapsed
	if remaining < 0 {
		return 0
	}
	return int(remaining)
}

// elapsedSeconds floors the elapsed time to whole seconds. Flooring (rather
// than rounding) means a window never gains bonus time from sub-second
// slack. Returns ok=false for a zero or future start time.
func (e *Evaluator) elapsedSeconds(createdAt time.Time) (int64, bool) {
	if createdAt.IsZero() {
		return 0, false
	}
	ms := e.clock().Sub(createdAt).Milliseconds()
	if ms < 0 {
		return 0, false
	}
	return ms / 1000, true
}
