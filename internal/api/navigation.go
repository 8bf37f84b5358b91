package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/parlohq/parlo-server/internal/navigation"
	"github.com/parlohq/parlo-server/internal/storage"
)

// NavigationHandler handles flow state and navigation decision endpoints.
// The SPA reports where it is and what it wants; the server answers with a
// directive the SPA applies verbatim.
type NavigationHandler struct {
	*Handler
}

// NewNavigationHandler creates a new navigation handler.
func NewNavigationHandler(base *Handler) *NavigationHandler {
	return &NavigationHandler{Handler: base}
}

// RegisterRoutes registers navigation and flow routes.
func (h *NavigationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/flow", h.GetFlow)
	r.Put("/api/flow", h.PutFlow)
	r.Delete("/api/flow", h.DeleteFlow)
	r.Post("/api/navigation/resolve", h.Resolve)
	r.Post("/api/navigation/arrived", h.Arrived)
	r.Post("/api/auth/redirect", h.SetAuthRedirect)
	r.Post("/api/auth/complete", h.CompleteAuth)
}

// navService builds a navigation service positioned at the SPA's reported
// location.
func (h *NavigationHandler) navService(r *http.Request, path string, query url.Values) *navigation.Service {
	bag := storage.NewBag(h.store, h.scope(r.Context()))
	return navigation.NewService(bag, navigation.NewRecordingRouter(path, query))
}

// GetFlow returns the persisted selections for the current tab.
func (h *NavigationHandler) GetFlow(w http.ResponseWriter, r *http.Request) {
	svc := h.navService(r, navigation.RouteHome, nil)
	JSON(w, http.StatusOK, svc.FlowState(r.Context()))
}

// PutFlow persists non-empty selections for the current tab.
func (h *NavigationHandler) PutFlow(w http.ResponseWriter, r *http.Request) {
	var state navigation.FlowState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	svc := h.navService(r, navigation.RouteHome, nil)
	svc.SaveFlowState(r.Context(), state)
	JSON(w, http.StatusOK, svc.FlowState(r.Context()))
}

// DeleteFlow clears all selections for the current tab.
func (h *NavigationHandler) DeleteFlow(w http.ResponseWriter, r *http.Request) {
	svc := h.navService(r, navigation.RouteHome, nil)
	svc.ClearFlow(r.Context())
	JSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type resolveRequest struct {
	CurrentPath  string             `json:"current_path"`
	CurrentQuery map[string]string  `json:"current_query,omitempty"`
	Target       string             `json:"target,omitempty"`
	Options      navigation.Options `json:"options"`
}

type resolveResponse struct {
	Action string `json:"action"`
	Target string `json:"target,omitempty"`
	Mode   string `json:"mode,omitempty"`
}

// Resolve answers a navigation question. Without a target it runs the
// entry-route guard; with a target it runs an explicit navigation and
// returns the directive the SPA should apply.
func (h *NavigationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CurrentPath == "" {
		req.CurrentPath = navigation.RouteHome
	}

	query := url.Values{}
	for k, v := range req.CurrentQuery {
		query.Set(k, v)
	}

	router := navigation.NewRecordingRouter(req.CurrentPath, query)
	bag := storage.NewBag(h.store, h.scope(ctx))
	svc := navigation.NewService(bag, router)

	if req.Target == "" {
		decision := svc.ResolveAutoRedirect(ctx, req.CurrentPath)
		JSON(w, http.StatusOK, resolveResponse{
			Action: string(decision.Action),
			Target: decision.Target,
		})
		return
	}

	if err := svc.Navigate(ctx, req.Target, req.Options); err != nil {
		slog.Warn("Navigation refused", "error", err, "target", req.Target)
		Error(w, http.StatusBadRequest, "invalid navigation target")
		return
	}

	directive := router.Directive()
	if directive == nil {
		// Same-route suppression: the SPA stays put.
		JSON(w, http.StatusOK, resolveResponse{Action: "none"})
		return
	}
	JSON(w, http.StatusOK, resolveResponse{
		Action: "navigate",
		Target: directive.Target,
		Mode:   directive.Mode,
	})
}

type arrivedRequest struct {
	Route string `json:"route"`
}

// Arrived confirms the SPA landed on a guarded route, resetting its
// redirect attempt counter.
func (h *NavigationHandler) Arrived(w http.ResponseWriter, r *http.Request) {
	var req arrivedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	svc := h.navService(r, req.Route, nil)
	svc.ConfirmArrival(r.Context(), req.Route)
	JSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

type authRedirectRequest struct {
	Route string `json:"route"`
}

// SetAuthRedirect remembers where to send the user after they return from
// the auth provider.
func (h *NavigationHandler) SetAuthRedirect(w http.ResponseWriter, r *http.Request) {
	var req authRedirectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Route == "" {
		Error(w, http.StatusBadRequest, "route is required")
		return
	}

	svc := h.navService(r, navigation.RouteHome, nil)
	svc.SetRedirectAfterAuth(r.Context(), req.Route)
	JSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// CompleteAuth consumes the stored post-auth target. The target is deleted
// on read so a refresh cannot replay the redirect.
func (h *NavigationHandler) CompleteAuth(w http.ResponseWriter, r *http.Request) {
	svc := h.navService(r, navigation.RouteHome, nil)
	target := svc.ResolvePostAuthTarget(r.Context())
	JSON(w, http.StatusOK, map[string]string{"target": target})
}
