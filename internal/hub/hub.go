// Package hub tracks the visitor websocket connections held by the sandbox backend.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// ErrNoVisitor is returned by Send when the device has no open connection.
var ErrNoVisitor = errors.New("visitor not connected")

// Hub maps device ids to their open connections, one per contact (browser tab).
type Hub struct {
	logger *slog.Logger

	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// New creates an empty hub.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger,
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// Get returns the connection for a device and contact.
func (h *Hub) Get(deviceID, contactID string) *websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if contacts, ok := h.active[deviceID]; ok {
		return contacts[contactID]
	}
	return nil
}

// Register adds a connection. A previous connection under the same contact is closed.
func (h *Hub) Register(deviceID, contactID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.active[deviceID]; !exists {
		h.active[deviceID] = make(map[string]*websocket.Conn)
	}

	if existing, exists := h.active[deviceID][contactID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "contact replaced")
	}

	h.active[deviceID][contactID] = conn
	h.logger.Info("Visitor connected", "device_id", deviceID, "contact_id", contactID)
}

// Unregister removes a connection if it is still the registered one.
func (h *Hub) Unregister(deviceID, contactID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	contacts, ok := h.active[deviceID]
	if !ok {
		return
	}
	if current, exists := contacts[contactID]; exists && current == conn {
		delete(contacts, contactID)
		if len(contacts) == 0 {
			delete(h.active, deviceID)
		}
		h.logger.Info("Visitor disconnected", "device_id", deviceID, "contact_id", contactID)
	}
}

// Send writes v as JSON to every connection of deviceID and returns how many received it.
func (h *Hub) Send(ctx context.Context, deviceID string, v any) (int, error) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.active[deviceID]))
	for _, c := range h.active[deviceID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return 0, ErrNoVisitor
	}

	var errs []error
	delivered := 0
	for _, c := range conns {
		if err := wsjson.Write(ctx, c, v); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return 0, fmt.Errorf("send to visitor: %w", errors.Join(errs...))
	}
	return delivered, nil
}

// SendTo writes v as JSON to one contact of deviceID.
func (h *Hub) SendTo(ctx context.Context, deviceID, contactID string, v any) error {
	conn := h.Get(deviceID, contactID)
	if conn == nil {
		return ErrNoVisitor
	}
	if err := wsjson.Write(ctx, conn, v); err != nil {
		return fmt.Errorf("send to contact %s: %w", contactID, err)
	}
	return nil
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, contacts := range h.active {
		n += len(contacts)
	}
	return n
}

// CloseAll terminates every connection.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for deviceID, contacts := range h.active {
		for contactID, conn := range contacts {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			h.logger.Info("Visitor connection closed", "device_id", deviceID, "contact_id", contactID)
		}
	}
	h.active = make(map[string]map[string]*websocket.Conn)
}
