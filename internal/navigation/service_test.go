package navigation

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/parlohq/parlo-server/internal/storage"
)

// fakeRouter records Go calls and can simulate an environment fault.
type fakeRouter struct {
	path   string
	query  url.Values
	goErr  error
	target string
	mode   Mode
	calls  int
}

func (f *fakeRouter) CurrentPath() string { return f.path }
func (f *fakeRouter) CurrentQuery() url.Values {
	if f.query == nil {
		return url.Values{}
	}
	return f.query
}
func (f *fakeRouter) Go(target string, mode Mode) error {
	f.calls++
	f.target = target
	f.mode = mode
	return f.goErr
}

func newTestService(path string) (*Service, *fakeRouter, *storage.Bag) {
	bag := storage.NewBag(storage.NewMemoryStore(), storage.Scope{DeviceID: "anon_1", TabID: "tab-1"})
	router := &fakeRouter{path: path}
	return NewService(bag, router), router, bag
}

func TestNavigate_SameRouteIsNoOp(t *testing.T) {
	svc, router, _ := newTestService("/speech")

	if err := svc.Navigate(context.Background(), "/speech", Options{}); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if router.calls != 0 {
		t.Errorf("Expected zero navigation side effects, got %d calls", router.calls)
	}
}

func TestNavigate_SameRouteTrailingSlashIsNoOp(t *testing.T) {
	svc, router, _ := newTestService("/speech")

	if err := svc.Navigate(context.Background(), "/speech/", Options{}); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if router.calls != 0 {
		t.Errorf("Expected trailing-slash target to count as the same route, got %d calls", router.calls)
	}
}

func TestNavigate_BackNavigationBypassesSuppression(t *testing.T) {
	svc, router, bag := newTestService("/speech")

	if err := svc.Navigate(context.Background(), "/speech", Options{IsBackNavigation: true}); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if router.calls != 1 {
		t.Errorf("Expected back navigation to go through, got %d calls", router.calls)
	}
	if bag.Flag(context.Background(), storage.KeyBackButtonNavigation) != storage.FlagTrue {
		t.Error("Expected backButtonNavigation marker to be set")
	}
	if bag.Flag(context.Background(), storage.KeyIntentionalNavigation) == storage.FlagTrue {
		t.Error("Expected back navigation not to be marked intentional")
	}
}

func TestNavigate_ForceBypassesSuppression(t *testing.T) {
	svc, router, _ := newTestService("/speech")

	if err := svc.Navigate(context.Background(), "/speech", Options{Force: true}); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if router.calls != 1 {
		t.Errorf("Expected forced navigation to go through, got %d calls", router.calls)
	}
}

func TestNavigate_MarksIntentional(t *testing.T) {
	svc, _, bag := newTestService("/")

	if err := svc.Navigate(context.Background(), RouteLanguageSelection, Options{}); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if bag.Flag(context.Background(), storage.KeyIntentionalNavigation) != storage.FlagTrue {
		t.Error("Expected intentionalNavigation marker to be set")
	}
}

func TestNavigate_PersistsStateBeforeMoving(t *testing.T) {
	svc, _, bag := newTestService("/")
	ctx := context.Background()

	err := svc.Navigate(ctx, RouteLevelSelection, Options{
		State: map[string]string{"previousRoute": "/", "selectedLanguage": "french"},
		Extra: map[string]string{"campaign": "spring"},
	})
	if err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}

	var state map[string]string
	if !bag.JSON(ctx, storage.KeyNavigationState, &state) {
		t.Fatal("Expected navigation state to be persisted")
	}
	if state["selectedLanguage"] != "french" {
		t.Errorf("Expected state to carry selectedLanguage, got %v", state)
	}
	if state["campaign"] != "spring" {
		t.Errorf("Expected extra data to be merged into state, got %v", state)
	}
}

func TestNavigate_StateOverwritesPriorState(t *testing.T) {
	svc, _, bag := newTestService("/")
	ctx := context.Background()

	if err := svc.Navigate(ctx, RouteLevelSelection, Options{State: map[string]string{"old": "x"}}); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	// Router path is unchanged in the fake, so force the second hop.
	if err := svc.Navigate(ctx, RouteTopicSelection, Options{State: map[string]string{"new": "y"}}); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}

	var state map[string]string
	if !bag.JSON(ctx, storage.KeyNavigationState, &state) {
		t.Fatal("Expected navigation state to be persisted")
	}
	if _, ok := state["old"]; ok {
		t.Errorf("Expected prior state to be overwritten, got %v", state)
	}
	if state["new"] != "y" {
		t.Errorf("Expected new state, got %v", state)
	}
}

func TestNavigate_PreserveQueryParamsAppends(t *testing.T) {
	svc, router, _ := newTestService("/")
	router.query = url.Values{"utm_source": {"newsletter"}}

	err := svc.Navigate(context.Background(), RouteSpeech+"?topic=travel", Options{PreserveQueryParams: true})
	if err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}

	parsed, err := url.Parse(router.target)
	if err != nil {
		t.Fatalf("Failed to parse navigated target: %v", err)
	}
	q := parsed.Query()
	if q.Get("topic") != "travel" {
		t.Errorf("Expected target's own query to survive, got %q", router.target)
	}
	if q.Get("utm_source") != "newsletter" {
		t.Errorf("Expected current query to be appended, got %q", router.target)
	}
}

func TestNavigate_StrategySelection(t *testing.T) {
	cases := []struct {
		name string
		opts Options
		want Mode
	}{
		{"default is hard assign", Options{}, ModeHardAssign},
		{"replace without history", Options{Replace: true}, ModeHardReplace},
		{"history push", Options{UseHistory: true}, ModeHistoryPush},
		{"history replace", Options{UseHistory: true, Replace: true}, ModeHistoryReplace},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, router, _ := newTestService("/")
			if err := svc.Navigate(context.Background(), RouteSpeech, tc.opts); err != nil {
				t.Fatalf("Navigate failed: %v", err)
			}
			if router.mode != tc.want {
				t.Errorf("Expected mode %v, got %v", tc.want, router.mode)
			}
		})
	}
}

func TestNavigate_RouterErrorPropagates(t *testing.T) {
	svc, router, _ := newTestService("/")
	router.goErr = errors.New("router broken")

	err := svc.Navigate(context.Background(), RouteSpeech, Options{})
	if !errors.Is(err, router.goErr) {
		t.Errorf("Expected router error to propagate, got %v", err)
	}
}

func TestResolvePostAuthTarget_ConsumeOnce(t *testing.T) {
	svc, _, _ := newTestService("/")
	ctx := context.Background()

	svc.SetRedirectAfterAuth(ctx, "/speech?topic=travel")

	if got := svc.ResolvePostAuthTarget(ctx); got != "/speech?topic=travel" {
		t.Errorf("Expected stored target, got %q", got)
	}
	// Consumed: the second resolution falls back to the default.
	if got := svc.ResolvePostAuthTarget(ctx); got != DefaultPostAuthRoute {
		t.Errorf("Expected default destination on second resolve, got %q", got)
	}
}

func TestResolvePostAuthTarget_Default(t *testing.T) {
	svc, _, _ := newTestService("/")

	if got := svc.ResolvePostAuthTarget(context.Background()); got != DefaultPostAuthRoute {
		t.Errorf("Expected default destination, got %q", got)
	}
}

func TestFlowState_RoundTrip(t *testing.T) {
	svc, _, _ := newTestService("/")
	ctx := context.Background()

	svc.SaveFlowState(ctx, FlowState{Language: "spanish", Level: "beginner"})
	svc.SaveFlowState(ctx, FlowState{Topic: "travel", PendingPlanID: "plan-1"})

	got := svc.FlowState(ctx)
	want := FlowState{Language: "spanish", Level: "beginner", Topic: "travel", PendingPlanID: "plan-1"}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	// A partial save must not blank earlier selections.
	svc.SaveFlowState(ctx, FlowState{Level: "advanced"})
	got = svc.FlowState(ctx)
	if got.Language != "spanish" || got.Level != "advanced" {
		t.Errorf("Expected partial update to keep language, got %+v", got)
	}

	svc.ClearFlow(ctx)
	if got := svc.FlowState(ctx); got != (FlowState{}) {
		t.Errorf("Expected empty flow state after clear, got %+v", got)
	}
}
