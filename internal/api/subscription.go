package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/parlohq/parlo-server/internal/subscription"
)

// SubscriptionHandler projects subscription status for the account UI.
type SubscriptionHandler struct {
	*Handler
}

// NewSubscriptionHandler creates a new subscription handler.
func NewSubscriptionHandler(base *Handler) *SubscriptionHandler {
	return &SubscriptionHandler{Handler: base}
}

// RegisterRoutes registers subscription routes.
func (h *SubscriptionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/subscription", h.GetSubscription)
}

type subscriptionResponse struct {
	Status    *subscription.Status `json:"status"`
	Banner    subscription.Banner  `json:"banner"`
	Usage     subscription.Usage   `json:"usage"`
	Unlimited bool                 `json:"unlimited"`
}

// GetSubscription fetches the backend status and classifies it. A guest or
// an unreachable backend yields the free-tier projection, never an error.
func (h *SubscriptionHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	status := h.subs.FetchStatus(r.Context(), token)

	JSON(w, http.StatusOK, subscriptionResponse{
		Status:    status,
		Banner:    subscription.Classify(status),
		Usage:     subscription.UsageRemaining(status),
		Unlimited: subscription.IsUnlimited(status),
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
