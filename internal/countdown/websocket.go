package countdown

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/parlohq/parlo-server/internal/auth"
	"github.com/parlohq/parlo-server/internal/identity"
	"github.com/parlohq/parlo-server/internal/session"
	"github.com/parlohq/parlo-server/internal/storage"
)

// WebSocketHandler streams countdown events for an active learning plan.
// The client renders what the server pushes; the budget itself is never
// trusted from the client side.
type WebSocketHandler struct {
	svc           *session.Service
	sm            *SessionManager
	allowedOrigin string
	isDev         bool

	// newTicker overrides the timer tick source in tests.
	newTicker func(d time.Duration) Ticker
}

// NewWebSocketHandler creates a new countdown WebSocket handler.
func NewWebSocketHandler(svc *session.Service, sm *SessionManager, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		svc:           svc,
		sm:            sm,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsMessage is the wire format in both directions.
type wsMessage struct {
	Type      string `json:"type"`
	PlanID    string `json:"plan_id,omitempty"`
	Remaining int    `json:"remaining,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	scope := identity.ScopeFromContext(r.Context())
	authenticated := auth.IsAuthenticated(r.Context())
	slog.Info("Countdown connection request",
		"device_id", scope.DeviceID,
		"tab_id", scope.TabID,
		"authenticated", authenticated,
		"ip", r.RemoteAddr,
	)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	planID := r.URL.Query().Get("plan_id")
	if planID == "" {
		if pending, ok := h.svc.PendingPlanID(r.Context(), scope); ok {
			planID = pending
		}
	}
	kind := session.ActivityKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = session.ActivityConversation
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "device_id", scope.DeviceID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "countdown ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "device_id", scope.DeviceID)
		}
	}()

	h.sm.Register(scope.DeviceID, scope.TabID, ws)
	defer h.sm.Unregister(scope.DeviceID, scope.TabID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	status, err := h.svc.ActivityStatus(ctx, scope, planID, kind, authenticated)
	if err != nil {
		slog.Warn("Countdown refused", "error", err, "plan_id", planID)
		h.writeMessage(ws, wsMessage{Type: "error", Error: "plan_not_found"})
		return
	}
	if status.Expired {
		h.writeMessage(ws, wsMessage{Type: "expired", PlanID: planID})
		return
	}

	timer := New(Config{
		Budget: status.RemainingSeconds,
		OnWarning: func() {
			h.writeMessage(ws, wsMessage{Type: "warning", PlanID: planID, Remaining: DefaultWarningThreshold})
		},
		OnExpired: func() {
			h.writeMessage(ws, wsMessage{Type: "expired", PlanID: planID})
			h.latchAsync(scope, planID, kind, authenticated)
			cancel()
		},
		NewTicker: h.newTicker,
	})
	defer timer.Stop()

	h.writeMessage(ws, wsMessage{Type: "started", PlanID: planID, Remaining: status.RemainingSeconds})
	timer.Start()

	h.readLoop(ctx, ws, timer, planID, scope.DeviceID)
	slog.Info("Countdown session ended", "device_id", scope.DeviceID, "plan_id", planID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, timer *Timer, planID, deviceID string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				slog.Debug("WebSocket closed", "device_id", deviceID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "device_id", deviceID)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Debug("Ignoring malformed countdown message", "device_id", deviceID)
			continue
		}

		switch msg.Type {
		case "ping":
			h.writeMessage(ws, wsMessage{Type: "tick", PlanID: planID, Remaining: timer.Remaining()})
		case "pause":
			timer.Pause()
			h.writeMessage(ws, wsMessage{Type: "paused", PlanID: planID, Remaining: timer.Remaining()})
		case "resume":
			timer.Resume()
			h.writeMessage(ws, wsMessage{Type: "resumed", PlanID: planID, Remaining: timer.Remaining()})
		case "stop":
			slog.Info("Countdown stop requested", "device_id", deviceID, "plan_id", planID)
			h.writeMessage(ws, wsMessage{Type: "stopped", PlanID: planID})
			return
		}
	}
}

// latchAsync records the expiry through the session service off the
// request context, which is about to be canceled.
func (h *WebSocketHandler) latchAsync(scope storage.Scope, planID string, kind session.ActivityKind, authenticated bool) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := h.svc.ActivityStatus(ctx, scope, planID, kind, authenticated); err != nil {
			slog.Warn("Failed to latch plan expiry", "error", err, "plan_id", planID)
		}
	}()
}

func (h *WebSocketHandler) writeMessage(ws *websocket.Conn, msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal countdown message", "error", err)
		return
	}
	if err := ws.Write(context.Background(), websocket.MessageText, data); err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Debug("WebSocket write error", "error", err)
		}
	}
}
