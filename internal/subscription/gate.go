package subscription

// Banner identifies which single warning the account UI should surface for
// a status snapshot. Several conditions can hold at once (a preserved plan
// can also be expiring soon); only the highest-priority one is shown.
type Banner string

const (
	BannerNone         Banner = ""
	BannerPreserved    Banner = "preserved"
	BannerExpired      Banner = "expired"
	BannerExpiringSoon Banner = "expiring_soon"
	BannerActive       Banner = "active"
	BannerCanceling    Banner = "canceling"
	BannerCanceled     Banner = "canceled"
)

// expiringSoonDays is the threshold for the expiring-soon banner.
const expiringSoonDays = 7

// Usage is the remaining-usage projection.
type Usage struct {
	Sessions    int `json:"sessions"`
	Assessments int `json:"assessments"`
}

// IsUnlimited reports whether the plan has no usage limits. A nil snapshot
// (no subscription, fetch failed) is never unlimited.
func IsUnlimited(s *Status) bool {
	return s != nil && s.Limits.IsUnlimited
}

// UsageRemaining projects remaining usage, clamped at zero. The backend has
// been observed reporting negative remainders after plan changes; the UI
// must never show them.
func UsageRemaining(s *Status) Usage {
	if s == nil {
		return Usage{}
	}
	return Usage{
		Sessions:    clampNonNegative(s.Limits.SessionsRemaining),
		Assessments: clampNonNegative(s.Limits.AssessmentsRemaining),
	}
}

// Classify picks the banner for a snapshot. The priority order is fixed:
// preserved > expired > expiring soon > active > canceling > canceled.
// A snapshot with days_until_expiry == 0 is already expired, so the
// expiring-soon window is strictly 1..7 days.
func Classify(s *Status) Banner {
	if s == nil {
		return BannerNone
	}
	switch {
	case s.IsPreserved:
		return BannerPreserved
	case s.Status == StateExpired:
		return BannerExpired
	case s.DaysUntilExpiry > 0 && s.DaysUntilExpiry <= expiringSoonDays:
		return BannerExpiringSoon
	case s.Status == StateActive:
		return BannerActive
	case s.Status == StateCanceling:
		return BannerCanceling
	case s.Status == StateCanceled:
		return BannerCanceled
	default:
		return BannerNone
	}
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
