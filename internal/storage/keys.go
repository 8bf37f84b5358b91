package storage

// Storage keys shared between the web client and this service. The names are
// part of the wire contract with the front-end and must not be renamed.
const (
	// Flow selections made while stepping through language -> level -> topic.
	KeySelectedLanguage = "selectedLanguage"
	KeySelectedLevel    = "selectedLevel"
	KeySelectedTopic    = "selectedTopic"

	// KeyPendingLearningPlanID is the opaque id of the learning plan the
	// visitor is about to start.
	KeyPendingLearningPlanID = "pendingLearningPlanId"

	// KeyRedirectAfterAuth is the route to navigate to after the auth
	// provider reports success. Consumed exactly once.
	KeyRedirectAfterAuth = "redirectAfterAuth"

	// KeyNavigationState is the JSON-serialized in-flight flow context.
	KeyNavigationState = "navigationState"

	// Marker flags, stored as "true" or absent.
	KeyIntentionalNavigation    = "intentionalNavigation"
	KeyIntentionalTopicChange   = "intentionalTopicChange"
	KeyBackButtonNavigation     = "backButtonNavigation"
	KeyPopStateToTopicSelection = "popStateToTopicSelection"
	KeyFromLevelSelection       = "fromLevelSelection"

	// Loop-breaker counters, stored as string-encoded integers.
	KeyHomePageRedirectAttempt       = "homePageRedirectAttempt"
	KeyLevelSelectionRedirectAttempt = "levelSelectionRedirectAttempt"
	KeySpeechPageRefreshCount        = "speechPageRefreshCount"

	// Guest cooldown record, global for the device rather than per activity.
	KeyGuestTimeExpired   = "guestTimeExpired"
	KeyGuestTimeExpiredAt = "guestTimeExpiredAt"
)

// PlanCreationTimeKey returns the key holding the ISO-8601 start timestamp
// for one activity window.
func PlanCreationTimeKey(planID string) string {
	return "plan_" + planID + "_creationTime"
}

// PlanExpiredKey returns the key caching the fact that an activity window
// was already observed expired. Set once, never unset for that plan.
func PlanExpiredKey(planID string) string {
	return "plan_" + planID + "_expired"
}
