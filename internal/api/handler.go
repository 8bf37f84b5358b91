// Package api provides HTTP handlers for the Parlo API.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/parlohq/parlo-server/internal/identity"
	"github.com/parlohq/parlo-server/internal/session"
	"github.com/parlohq/parlo-server/internal/storage"
	"github.com/parlohq/parlo-server/internal/subscription"
)

// Handler provides common handler utilities.
type Handler struct {
	store               storage.Store
	sessions            *session.Service
	subs                *subscription.Client
	frontendRedirectURL string
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(store storage.Store, sessions *session.Service, subs *subscription.Client, frontendURL string) *Handler {
	return &Handler{
		store:               store,
		sessions:            sessions,
		subs:                subs,
		frontendRedirectURL: frontendURL,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// scope derives the storage scope for the request.
func (h *Handler) scope(ctx context.Context) storage.Scope {
	return identity.ScopeFromContext(ctx)
}
