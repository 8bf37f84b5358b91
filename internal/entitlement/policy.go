// Package entitlement decides how much timed usage a visitor gets and
// evaluates a running activity window against that budget. Guests get
// materially smaller budgets than authenticated users while still allowing
// a meaningful trial.
package entitlement

import "time"

// Time budgets per activity kind. Authenticated visitors get the full
// budget, guests get the trial budget.
const (
	AssessmentDurationAuth   = 60 * time.Second
	AssessmentDurationGuest  = 15 * time.Second
	ConversationDurationAuth = 300 * time.Second
	// ConversationDurationGuest is intentionally short: a guest who wants a
	// full conversation is a guest we want signing up.
	ConversationDurationGuest = 60 * time.Second
)

// Detail verbosity limits for generated learning-plan content.
const (
	MaxDetailCountAuth  = 5
	MaxDetailCountGuest = 3
)

// AssessmentDuration returns the speaking-assessment time budget.
func AssessmentDuration(authenticated bool) time.Duration {
	if authenticated {
		return AssessmentDurationAuth
	}
	return AssessmentDurationGuest
}

// ConversationDuration returns the conversation time budget.
func ConversationDuration(authenticated bool) time.Duration {
	if authenticated {
		return ConversationDurationAuth
	}
	return ConversationDurationGuest
}

// MaxDetailCount returns how many detail items a learning plan may show.
func MaxDetailCount(authenticated bool) int {
	if authenticated {
		return MaxDetailCountAuth
	}
	return MaxDetailCountGuest
}
