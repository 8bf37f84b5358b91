package navigation

import (
	"context"
	"testing"

	"github.com/parlohq/parlo-server/internal/storage"
)

func TestResolveAutoRedirect_FirstVisitRedirectsToFlowStart(t *testing.T) {
	svc, _, bag := newTestService(RouteHome)
	ctx := context.Background()

	d := svc.ResolveAutoRedirect(ctx, RouteHome)
	if d.Action != ActionRedirect {
		t.Fatalf("Expected redirect, got %v", d.Action)
	}
	if d.Target != RouteLanguageSelection {
		t.Errorf("Expected flow to start at language selection, got %q", d.Target)
	}
	if got := bag.Counter(ctx, storage.KeyHomePageRedirectAttempt); got != 1 {
		t.Errorf("Expected attempt counter 1, got %d", got)
	}
}

func TestResolveAutoRedirect_SkipAhead(t *testing.T) {
	svc, _, bag := newTestService(RouteHome)
	ctx := context.Background()

	bag.Set(ctx, storage.KeySelectedLanguage, "spanish")
	bag.Set(ctx, storage.KeySelectedLevel, "beginner")

	d := svc.ResolveAutoRedirect(ctx, RouteHome)
	if d.Action != ActionRedirect {
		t.Fatalf("Expected redirect, got %v", d.Action)
	}
	if d.Target != RouteTopicSelection {
		t.Errorf("Expected skip-ahead to topic selection, got %q", d.Target)
	}
}

func TestResolveAutoRedirect_LanguageAloneDoesNotSkip(t *testing.T) {
	svc, _, bag := newTestService(RouteHome)
	ctx := context.Background()

	bag.Set(ctx, storage.KeySelectedLanguage, "spanish")

	d := svc.ResolveAutoRedirect(ctx, RouteHome)
	if d.Target != RouteLanguageSelection {
		t.Errorf("Expected flow start without a level chosen, got %q", d.Target)
	}
}

func TestResolveAutoRedirect_LoopBreaker(t *testing.T) {
	svc, _, bag := newTestService(RouteHome)
	ctx := context.Background()

	// Three consecutive automatic attempts are allowed.
	for i := 1; i <= MaxAutoRedirectAttempts; i++ {
		d := svc.ResolveAutoRedirect(ctx, RouteHome)
		if d.Action != ActionRedirect {
			t.Fatalf("Expected attempt %d to redirect, got %v", i, d.Action)
		}
	}

	// The fourth trips the bound: automation abandoned, counter reset.
	d := svc.ResolveAutoRedirect(ctx, RouteHome)
	if d.Action != ActionManualFallback {
		t.Errorf("Expected manual fallback on the 4th attempt, got %v", d.Action)
	}
	if got := bag.Counter(ctx, storage.KeyHomePageRedirectAttempt); got != 0 {
		t.Errorf("Expected counter reset to 0 after tripping, got %d", got)
	}
}

func TestResolveAutoRedirect_IntentionalNavigationSuppresses(t *testing.T) {
	svc, _, bag := newTestService(RouteHome)
	ctx := context.Background()

	// The visitor just navigated somewhere on purpose.
	if err := svc.Navigate(ctx, RouteLanguageSelection, Options{}); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}

	d := svc.ResolveAutoRedirect(ctx, RouteHome)
	if d.Action != ActionStay {
		t.Errorf("Expected automation to stay after intentional navigation, got %v", d.Action)
	}
	if got := bag.Counter(ctx, storage.KeyHomePageRedirectAttempt); got != 0 {
		t.Errorf("Expected no attempt to be counted, got %d", got)
	}

	// The marker is consumed, so the next visit auto-redirects again.
	d = svc.ResolveAutoRedirect(ctx, RouteHome)
	if d.Action != ActionRedirect {
		t.Errorf("Expected redirect once the marker is consumed, got %v", d.Action)
	}
}

func TestResolveAutoRedirect_UnguardedRouteStays(t *testing.T) {
	svc, _, _ := newTestService(RouteLanguageSelection)

	d := svc.ResolveAutoRedirect(context.Background(), RouteLanguageSelection)
	if d.Action != ActionStay {
		t.Errorf("Expected non-entry route to stay, got %v", d.Action)
	}
}

func TestResolveAutoRedirect_TopicSelectionForwardsToSpeech(t *testing.T) {
	svc, _, bag := newTestService(RouteTopicSelection)
	ctx := context.Background()

	bag.Set(ctx, storage.KeySelectedTopic, "travel")

	d := svc.ResolveAutoRedirect(ctx, RouteTopicSelection)
	if d.Action != ActionRedirect || d.Target != RouteSpeech {
		t.Errorf("Expected forward to speech with a topic chosen, got %+v", d)
	}
}

func TestResolveAutoRedirect_TopicSelectionStaysWithoutTopic(t *testing.T) {
	svc, _, _ := newTestService(RouteTopicSelection)

	d := svc.ResolveAutoRedirect(context.Background(), RouteTopicSelection)
	if d.Action != ActionStay {
		t.Errorf("Expected topic selection to render without a topic, got %v", d.Action)
	}
}

func TestResolveAutoRedirect_TopicChangeRendersTopicPage(t *testing.T) {
	svc, router, bag := newTestService(RouteSpeech)
	ctx := context.Background()

	bag.Set(ctx, storage.KeySelectedTopic, "travel")

	// The visitor leaves the speech page to change topic.
	if err := svc.Navigate(ctx, RouteTopicSelection, Options{}); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	router.path = RouteTopicSelection

	// Two markers suppress the skip: the general intentional one and the
	// topic-change one. Consume both across two loads.
	for i := 1; i <= 2; i++ {
		d := svc.ResolveAutoRedirect(ctx, RouteTopicSelection)
		if d.Action != ActionStay {
			t.Fatalf("Expected load %d to render the topic page, got %v", i, d.Action)
		}
	}

	// With the markers consumed, a later cold load skips ahead again.
	d := svc.ResolveAutoRedirect(ctx, RouteTopicSelection)
	if d.Action != ActionRedirect || d.Target != RouteSpeech {
		t.Errorf("Expected forward to speech once markers are consumed, got %+v", d)
	}
}

func TestResolveAutoRedirect_BackToTopicSelectionStays(t *testing.T) {
	svc, router, bag := newTestService(RouteSpeech)
	ctx := context.Background()

	bag.Set(ctx, storage.KeySelectedTopic, "travel")

	if err := svc.Navigate(ctx, RouteTopicSelection, Options{IsBackNavigation: true}); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	router.path = RouteTopicSelection

	d := svc.ResolveAutoRedirect(ctx, RouteTopicSelection)
	if d.Action != ActionStay {
		t.Errorf("Expected back navigation to render the topic page, got %v", d.Action)
	}
}

func TestResolveAutoRedirect_FromLevelSelectionStays(t *testing.T) {
	svc, router, bag := newTestService(RouteLevelSelection)
	ctx := context.Background()

	bag.Set(ctx, storage.KeySelectedTopic, "travel")

	if err := svc.Navigate(ctx, RouteTopicSelection, Options{}); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	router.path = RouteTopicSelection

	for i := 1; i <= 2; i++ {
		d := svc.ResolveAutoRedirect(ctx, RouteTopicSelection)
		if d.Action != ActionStay {
			t.Fatalf("Expected load %d after level selection to stay, got %v", i, d.Action)
		}
	}
}

func TestResolveAutoRedirect_SpeechRefreshLoopBreaks(t *testing.T) {
	svc, _, bag := newTestService(RouteSpeech)
	ctx := context.Background()

	for i := 1; i <= MaxAutoRedirectAttempts; i++ {
		d := svc.ResolveAutoRedirect(ctx, RouteSpeech)
		if d.Action != ActionStay {
			t.Fatalf("Expected refresh %d to stay, got %v", i, d.Action)
		}
	}

	d := svc.ResolveAutoRedirect(ctx, RouteSpeech)
	if d.Action != ActionRedirect || d.Target != RouteTopicSelection {
		t.Errorf("Expected the 4th refresh to send back to topic selection, got %+v", d)
	}
	if got := bag.Counter(ctx, storage.KeySpeechPageRefreshCount); got != 0 {
		t.Errorf("Expected refresh counter reset after tripping, got %d", got)
	}
}

func TestConfirmArrival_ResetsSpeechRefreshCount(t *testing.T) {
	svc, _, bag := newTestService(RouteSpeech)
	ctx := context.Background()

	svc.ResolveAutoRedirect(ctx, RouteSpeech)
	svc.ResolveAutoRedirect(ctx, RouteSpeech)
	if got := bag.Counter(ctx, storage.KeySpeechPageRefreshCount); got != 2 {
		t.Fatalf("Expected 2 refreshes recorded, got %d", got)
	}

	svc.ConfirmArrival(ctx, RouteSpeech)
	if got := bag.Counter(ctx, storage.KeySpeechPageRefreshCount); got != 0 {
		t.Errorf("Expected refresh counter reset after confirmed arrival, got %d", got)
	}
}

func TestConfirmArrival_ResetsOriginCounter(t *testing.T) {
	svc, _, bag := newTestService(RouteHome)
	ctx := context.Background()

	svc.ResolveAutoRedirect(ctx, RouteHome)
	svc.ResolveAutoRedirect(ctx, RouteHome)
	if got := bag.Counter(ctx, storage.KeyHomePageRedirectAttempt); got != 2 {
		t.Fatalf("Expected 2 attempts recorded, got %d", got)
	}

	svc.ConfirmArrival(ctx, RouteHome)
	if got := bag.Counter(ctx, storage.KeyHomePageRedirectAttempt); got != 0 {
		t.Errorf("Expected counter reset after confirmed arrival, got %d", got)
	}
}

func TestResolveAutoRedirect_LevelSelectionCounterIsSeparate(t *testing.T) {
	svc, _, bag := newTestService(RouteLevelSelection)
	ctx := context.Background()

	d := svc.ResolveAutoRedirect(ctx, RouteLevelSelection)
	if d.Action != ActionRedirect {
		t.Fatalf("Expected redirect, got %v", d.Action)
	}
	if got := bag.Counter(ctx, storage.KeyLevelSelectionRedirectAttempt); got != 1 {
		t.Errorf("Expected level-selection counter 1, got %d", got)
	}
	if got := bag.Counter(ctx, storage.KeyHomePageRedirectAttempt); got != 0 {
		t.Errorf("Expected home counter untouched, got %d", got)
	}
}
