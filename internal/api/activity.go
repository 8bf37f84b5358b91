package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parlohq/parlo-server/internal/auth"
	"github.com/parlohq/parlo-server/internal/session"
)

// ActivityHandler handles activity lifecycle endpoints.
type ActivityHandler struct {
	*Handler
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(base *Handler) *ActivityHandler {
	return &ActivityHandler{Handler: base}
}

// RegisterRoutes registers activity routes.
func (h *ActivityHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/me", h.GetMe)
	r.Post("/api/activity/start", h.Start)
	r.Get("/api/activity/status", h.Status)
}

// GetMe returns the current identity and pending plan, if any.
func (h *ActivityHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope := h.scope(ctx)
	if scope.DeviceID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resp := map[string]interface{}{
		"device_id":     scope.DeviceID,
		"tab_id":        scope.TabID,
		"authenticated": auth.IsAuthenticated(ctx),
	}
	if id, ok := auth.IdentityFromContext(ctx); ok {
		resp["user_id"] = id.UserID
	}
	if planID, ok := h.sessions.PendingPlanID(ctx, scope); ok {
		resp["pending_plan_id"] = planID
	}
	JSON(w, http.StatusOK, resp)
}

type startRequest struct {
	Kind string `json:"kind"`
}

// Start mints a new learning plan for the current tab.
func (h *ActivityHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope := h.scope(ctx)

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.sessions.StartActivity(ctx, scope, session.ActivityKind(req.Kind), auth.IsAuthenticated(ctx))
	if err != nil {
		var cooldownErr *session.CooldownActiveError
		switch {
		case errors.As(err, &cooldownErr):
			JSON(w, http.StatusTooManyRequests, map[string]interface{}{
				"error":             "guest_cooldown",
				"remaining_minutes": cooldownErr.RemainingMinutes,
			})
		case errors.Is(err, session.ErrStartInProgress):
			Error(w, http.StatusConflict, "start_in_progress")
		case errors.Is(err, session.ErrUnknownActivity):
			Error(w, http.StatusBadRequest, "unknown_activity_kind")
		default:
			slog.Error("Failed to start activity", "error", err, "device_id", scope.DeviceID)
			Error(w, http.StatusInternalServerError, "failed to start activity")
		}
		return
	}

	JSON(w, http.StatusOK, result)
}

// Status evaluates the remaining budget for a plan.
func (h *ActivityHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope := h.scope(ctx)

	planID := r.URL.Query().Get("plan_id")
	if planID == "" {
		if pending, ok := h.sessions.PendingPlanID(ctx, scope); ok {
			planID = pending
		}
	}
	kind := session.ActivityKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = session.ActivityConversation
	}

	status, err := h.sessions.ActivityStatus(ctx, scope, planID, kind, auth.IsAuthenticated(ctx))
	if err != nil {
		switch {
		case errors.Is(err, session.ErrPlanNotFound):
			Error(w, http.StatusNotFound, "plan_not_found")
		case errors.Is(err, session.ErrUnknownActivity):
			Error(w, http.StatusBadRequest, "unknown_activity_kind")
		default:
			slog.Error("Failed to evaluate activity status", "error", err, "plan_id", planID)
			Error(w, http.StatusInternalServerError, "failed to evaluate status")
		}
		return
	}

	JSON(w, http.StatusOK, status)
}
