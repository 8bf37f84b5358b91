// Package navigation serializes all route changes through one choke point:
// duplicate navigations to the current route are suppressed, automatic
// redirect loops are bounded, and flow state survives a full page reload.
package navigation

import "net/url"

// Flow routes. The names are part of the contract with the web client.
const (
	RouteHome              = "/"
	RouteLanguageSelection = "/language-selection"
	RouteLevelSelection    = "/level-selection"
	RouteTopicSelection    = "/topic-selection"
	RouteSpeech            = "/speech"
)

// DefaultPostAuthRoute is where a freshly authenticated visitor lands when
// no explicit post-auth target was stored.
const DefaultPostAuthRoute = RouteTopicSelection

// Mode selects the navigation strategy.
type Mode int

const (
	// ModeHistoryPush uses the history API and notifies route listeners.
	ModeHistoryPush Mode = iota
	// ModeHistoryReplace is ModeHistoryPush without a new back-stack entry.
	ModeHistoryReplace
	// ModeHardAssign performs a full document navigation. This is the
	// default strategy: it is the most reliable across hosting setups.
	ModeHardAssign
	// ModeHardReplace is ModeHardAssign without a new back-stack entry.
	ModeHardReplace
)

// String returns the wire name of the mode, as sent to the web client.
func (m Mode) String() string {
	switch m {
	case ModeHistoryPush:
		return "push"
	case ModeHistoryReplace:
		return "replace"
	case ModeHardAssign:
		return "assign"
	case ModeHardReplace:
		return "assign_replace"
	default:
		return "unknown"
	}
}

// Router is the primitive the service navigates through. The production
// implementation is a bridge that relays the decision to the browser;
// tests use fakes.
type Router interface {
	// CurrentPath returns the path the visitor is currently on.
	CurrentPath() string

	// CurrentQuery returns the query parameters of the current location.
	CurrentQuery() url.Values

	// Go moves to target using the given strategy. Errors indicate an
	// environment or programming fault and are propagated to the caller.
	Go(target string, mode Mode) error
}

// Directive is one recorded navigation, in the shape relayed to the client.
type Directive struct {
	Target string `json:"target"`
	Mode   string `json:"mode"`
}

// RecordingRouter implements Router over a reported client location and
// records the navigation the service decides on. The API layer replies to
// the browser with the recorded directive; the browser executes it.
type RecordingRouter struct {
	Path  string
	Query url.Values

	directive *Directive
}

// NewRecordingRouter creates a RecordingRouter for a reported location.
func NewRecordingRouter(path string, query url.Values) *RecordingRouter {
	if query == nil {
		query = url.Values{}
	}
	return &RecordingRouter{Path: path, Query: query}
}

// CurrentPath returns the reported path.
func (r *RecordingRouter) CurrentPath() string { return r.Path }

// CurrentQuery returns the reported query parameters.
func (r *RecordingRouter) CurrentQuery() url.Values { return r.Query }

// Go records the navigation instead of performing it.
func (r *RecordingRouter) Go(target string, mode Mode) error {
	r.directive = &Directive{Target: target, Mode: mode.String()}
	return nil
}

// Directive returns the recorded navigation, or nil when the service
// decided not to navigate.
func (r *RecordingRouter) Directive() *Directive {
	return r.directive
}
