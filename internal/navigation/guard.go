package navigation

import (
	"context"

	"github.com/parlohq/parlo-server/internal/storage"
)

// MaxAutoRedirectAttempts bounds consecutive automatic redirects from an
// entry route. Exceeding it abandons automation and hands control back to
// the visitor: the loop-breaker is a designed state transition, not an
// error.
const MaxAutoRedirectAttempts = 3

// Action is the guard's decision for an entry-route visit.
type Action string

const (
	// ActionRedirect tells the client to follow Target automatically.
	ActionRedirect Action = "redirect"
	// ActionStay means no automatic navigation should happen.
	ActionStay Action = "stay"
	// ActionManualFallback means automation was abandoned after repeated
	// attempts; the route must render an explicit call-to-action instead.
	ActionManualFallback Action = "manual_fallback"
)

// Decision is the outcome of ResolveAutoRedirect.
type Decision struct {
	Action Action `json:"action"`
	Target string `json:"target,omitempty"`
}

// attemptCounterKey maps an entry route to its persisted loop-breaker
// counter. Routes without a counter never auto-redirect.
func attemptCounterKey(route string) (string, bool) {
	switch normalizePath(route) {
	case RouteHome:
		return storage.KeyHomePageRedirectAttempt, true
	case RouteLevelSelection:
		return storage.KeyLevelSelectionRedirectAttempt, true
	default:
		return "", false
	}
}

// ResolveAutoRedirect decides what the entry route should do on load.
//
// Each automatic attempt increments the route's persisted counter. Past
// MaxAutoRedirectAttempts the counter resets to 0 and automation is
// abandoned for this visit. A navigation the visitor just made intentionally
// also suppresses automation (and consuming the marker re-arms it for the
// next visit).
func (s *Service) ResolveAutoRedirect(ctx context.Context, originRoute string) Decision {
	if s.bag.TakeFlag(ctx, storage.KeyIntentionalNavigation).Bool() {
		return Decision{Action: ActionStay}
	}

	switch normalizePath(originRoute) {
	case RouteTopicSelection:
		return s.resolveTopicSelection(ctx)
	case RouteSpeech:
		return s.resolveSpeechRefresh(ctx)
	}

	counterKey, ok := attemptCounterKey(originRoute)
	if !ok {
		return Decision{Action: ActionStay}
	}

	attempts := s.bag.IncrCounter(ctx, counterKey)
	if attempts > MaxAutoRedirectAttempts {
		s.bag.SetCounter(ctx, counterKey, 0)
		return Decision{Action: ActionManualFallback}
	}

	return Decision{Action: ActionRedirect, Target: s.redirectTarget(ctx)}
}

// redirectTarget picks where the flow should resume. A visitor who already
// chose both a language and a level skips ahead to topic selection instead
// of restarting the flow.
func (s *Service) redirectTarget(ctx context.Context) string {
	_, hasLanguage := s.bag.Get(ctx, storage.KeySelectedLanguage)
	_, hasLevel := s.bag.Get(ctx, storage.KeySelectedLevel)
	if hasLanguage && hasLevel {
		return RouteTopicSelection
	}
	return RouteLanguageSelection
}

// resolveTopicSelection skips ahead to the speech page when a topic was
// already chosen. Arrivals the visitor meant to make render the page
// instead: a deliberate topic change, a back navigation, or stepping in
// from level selection. Each marker is consumed on read.
func (s *Service) resolveTopicSelection(ctx context.Context) Decision {
	topicChange := s.bag.TakeFlag(ctx, storage.KeyIntentionalTopicChange).Bool()
	popState := s.bag.TakeFlag(ctx, storage.KeyPopStateToTopicSelection).Bool()
	backButton := s.bag.TakeFlag(ctx, storage.KeyBackButtonNavigation).Bool()
	fromLevel := s.bag.TakeFlag(ctx, storage.KeyFromLevelSelection).Bool()
	if topicChange || popState || backButton || fromLevel {
		return Decision{Action: ActionStay}
	}

	if _, hasTopic := s.bag.Get(ctx, storage.KeySelectedTopic); hasTopic {
		return Decision{Action: ActionRedirect, Target: RouteSpeech}
	}
	return Decision{Action: ActionStay}
}

// resolveSpeechRefresh bounds reloads of the speech page. A session that
// keeps refreshing is stuck; past the limit the visitor is sent back to
// topic selection to restart.
func (s *Service) resolveSpeechRefresh(ctx context.Context) Decision {
	refreshes := s.bag.IncrCounter(ctx, storage.KeySpeechPageRefreshCount)
	if refreshes > MaxAutoRedirectAttempts {
		s.bag.SetCounter(ctx, storage.KeySpeechPageRefreshCount, 0)
		return Decision{Action: ActionRedirect, Target: RouteTopicSelection}
	}
	return Decision{Action: ActionStay}
}

// ConfirmArrival records that an automatic redirect from originRoute
// actually landed, resetting the origin's loop-breaker counter.
func (s *Service) ConfirmArrival(ctx context.Context, originRoute string) {
	if normalizePath(originRoute) == RouteSpeech {
		s.bag.SetCounter(ctx, storage.KeySpeechPageRefreshCount, 0)
		return
	}
	if counterKey, ok := attemptCounterKey(originRoute); ok {
		s.bag.SetCounter(ctx, counterKey, 0)
	}
}
