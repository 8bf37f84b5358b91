package navigation

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/parlohq/parlo-server/internal/storage"
)

// Options is the typed configuration for one Navigate call. The open Extra
// bucket carries forward-compatible flow data without reopening the door to
// untyped option bags.
type Options struct {
	// Replace suppresses the back-stack entry for this navigation.
	Replace bool `json:"replace,omitempty"`

	// UseHistory selects the history-based strategy (wanted when
	// back-button semantics matter). Hard navigation is the default.
	UseHistory bool `json:"use_history,omitempty"`

	// IsBackNavigation marks the call as a back-button navigation: it
	// bypasses the same-route suppression and is not marked intentional.
	IsBackNavigation bool `json:"is_back_navigation,omitempty"`

	// Force bypasses the same-route suppression without back semantics.
	Force bool `json:"force,omitempty"`

	// PreserveQueryParams appends the current location's query parameters
	// onto the target.
	PreserveQueryParams bool `json:"preserve_query_params,omitempty"`

	// State is flow context persisted before navigating, restorable by any
	// later step even after a full reload.
	State map[string]string `json:"state,omitempty"`

	// Extra is additional flow data merged into the persisted state.
	Extra map[string]string `json:"extra,omitempty"`
}

// Service is the navigation choke point. All route changes go through
// Navigate; the entry-route guard logic in guard.go consumes the markers
// it leaves behind.
type Service struct {
	bag    *storage.Bag
	router Router
}

// NewService creates a Service over the given state bag and router.
func NewService(bag *storage.Bag, router Router) *Service {
	return &Service{bag: bag, router: router}
}

// Navigate moves to route. Storage failures while persisting markers are
// absorbed by the bag; only router errors propagate, since they indicate an
// environment fault the caller must decide about.
func (s *Service) Navigate(ctx context.Context, route string, opts Options) error {
	target, err := url.Parse(route)
	if err != nil {
		return fmt.Errorf("parse navigation target %q: %w", route, err)
	}

	// Navigating to the route we are already on is a no-op unless the
	// caller explicitly forces it. This is the self-redirect-loop guard.
	if samePath(target.Path, s.router.CurrentPath()) && !opts.IsBackNavigation && !opts.Force {
		return nil
	}

	if opts.State != nil || opts.Extra != nil {
		state := make(map[string]string, len(opts.State)+len(opts.Extra))
		for k, v := range opts.State {
			state[k] = v
		}
		for k, v := range opts.Extra {
			state[k] = v
		}
		s.bag.SetJSON(ctx, storage.KeyNavigationState, state)
	}

	if opts.IsBackNavigation {
		s.bag.SetFlag(ctx, storage.KeyBackButtonNavigation, true)
		if samePath(target.Path, RouteTopicSelection) {
			s.bag.SetFlag(ctx, storage.KeyPopStateToTopicSelection, true)
		}
	} else {
		// Automatic redirect logic must not fire right after a navigation
		// the visitor chose; the guard consumes this marker.
		s.bag.SetFlag(ctx, storage.KeyIntentionalNavigation, true)
		if samePath(target.Path, RouteTopicSelection) {
			switch normalizePath(s.router.CurrentPath()) {
			case RouteSpeech:
				s.bag.SetFlag(ctx, storage.KeyIntentionalTopicChange, true)
			case RouteLevelSelection:
				s.bag.SetFlag(ctx, storage.KeyFromLevelSelection, true)
			}
		}
	}

	if opts.PreserveQueryParams {
		q := target.Query()
		for key, values := range s.router.CurrentQuery() {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	return s.router.Go(target.String(), s.mode(opts))
}

func (s *Service) mode(opts Options) Mode {
	switch {
	case opts.UseHistory && opts.Replace:
		return ModeHistoryReplace
	case opts.UseHistory:
		return ModeHistoryPush
	case opts.Replace:
		return ModeHardReplace
	default:
		return ModeHardAssign
	}
}

// NavigationState restores the persisted flow context, or nil when none
// was stored (or it no longer decodes).
func (s *Service) NavigationState(ctx context.Context) map[string]string {
	var state map[string]string
	if !s.bag.JSON(ctx, storage.KeyNavigationState, &state) {
		return nil
	}
	return state
}

// SetRedirectAfterAuth stores the route to land on after authentication.
func (s *Service) SetRedirectAfterAuth(ctx context.Context, route string) {
	s.bag.Set(ctx, storage.KeyRedirectAfterAuth, route)
}

// ResolvePostAuthTarget returns the stored post-auth route and clears it,
// so a second auth round-trip falls back to the default destination.
func (s *Service) ResolvePostAuthTarget(ctx context.Context) string {
	target, ok := s.bag.Get(ctx, storage.KeyRedirectAfterAuth)
	if !ok || strings.TrimSpace(target) == "" {
		return DefaultPostAuthRoute
	}
	s.bag.Delete(ctx, storage.KeyRedirectAfterAuth)
	return target
}

func samePath(a, b string) bool {
	return normalizePath(a) == normalizePath(b)
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}
