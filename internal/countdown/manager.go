package countdown

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// SessionManager tracks active countdown WebSocket connections per device
// and tab. A reconnect for the same tab replaces the old connection.
type SessionManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// GetActive returns the active connection for a device and tab.
func (m *SessionManager) GetActive(deviceID, tabID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if tabs, ok := m.active[deviceID]; ok {
		return tabs[tabID]
	}
	return nil
}

// Register adds a new WebSocket connection for a device/tab.
func (m *SessionManager) Register(deviceID, tabID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[deviceID]; !exists {
		m.active[deviceID] = make(map[string]*websocket.Conn)
	}

	if existing, exists := m.active[deviceID][tabID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}

	m.active[deviceID][tabID] = conn
	slog.Info("Countdown session registered", "device_id", deviceID, "tab_id", tabID)
}

// Unregister removes a WebSocket connection for a device/tab.
func (m *SessionManager) Unregister(deviceID, tabID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tabs, ok := m.active[deviceID]; ok {
		if current, exists := tabs[tabID]; exists && current == conn {
			delete(tabs, tabID)
			if len(tabs) == 0 {
				delete(m.active, deviceID)
			}
			slog.Info("Countdown session unregistered", "device_id", deviceID, "tab_id", tabID)
		}
	}
}

// CloseDevice forcefully terminates all active sessions for a device.
func (m *SessionManager) CloseDevice(deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tabs, ok := m.active[deviceID]
	if !ok {
		return
	}

	for tid, conn := range tabs {
		_ = conn.Close(websocket.StatusNormalClosure, "session closed")
		slog.Info("Countdown session closed", "device_id", deviceID, "tab_id", tid)
	}
	delete(m.active, deviceID)
}
