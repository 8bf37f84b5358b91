// Package subscription projects externally sourced subscription status into
// the usage and warning data the account UI renders. The backend owns the
// source of truth; nothing here mutates it.
package subscription

// Subscription lifecycle states as reported by the billing backend.
const (
	StateActive    = "active"
	StateCanceling = "canceling"
	StateCanceled  = "canceled"
	StateExpired   = "expired"
)

// Limits is the usage portion of a status snapshot.
type Limits struct {
	SessionsRemaining    int  `json:"sessions_remaining"`
	AssessmentsRemaining int  `json:"assessments_remaining"`
	SessionsLimit        int  `json:"sessions_limit"`
	AssessmentsLimit     int  `json:"assessments_limit"`
	IsUnlimited          bool `json:"is_unlimited"`
}

// Status is a read-only snapshot fetched from the billing backend.
type Status struct {
	Status          string `json:"status"`
	Plan            string `json:"plan"`
	Period          string `json:"period"`
	Limits          Limits `json:"limits"`
	IsPreserved     bool   `json:"is_preserved"`
	DaysUntilExpiry int    `json:"days_until_expiry"`
}
