package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/livechat/internal/backend"
	"github.com/ashureev/livechat/internal/connection"
	"github.com/ashureev/livechat/internal/hub"
)

const maxRequestBytes = 64 << 10

// Message is a visitor message received by the sandbox.
type Message struct {
	ID         string              `json:"id"`
	ReceivedAt time.Time           `json:"received_at"`
	Via        string              `json:"via"` // "rest" | "websocket"
	Request    backend.SendRequest `json:"request"`
}

// Inbox records received messages in arrival order.
type Inbox struct {
	mu       sync.RWMutex
	messages []Message
}

// NewInbox creates an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{}
}

// Add records req and returns the stored message.
func (b *Inbox) Add(via string, req backend.SendRequest) Message {
	m := Message{
		ID:         uuid.NewString(),
		ReceivedAt: time.Now().UTC(),
		Via:        via,
		Request:    req,
	}
	b.mu.Lock()
	b.messages = append(b.messages, m)
	b.mu.Unlock()
	return m
}

// List returns a copy of the recorded messages.
func (b *Inbox) List() []Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// Len returns the number of recorded messages.
func (b *Inbox) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.messages)
}

// SendMessage handles the fallback send endpoint.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req backend.SendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	m := h.inbox.Add("rest", req)
	h.logger.Info("Message received",
		"id", m.ID,
		"widget_id", req.WidgetID,
		"seller_id", req.SellerID,
		"has_user_info", req.UserInfo != nil,
	)
	JSON(w, http.StatusOK, map[string]string{"status": "ok", "id": m.ID})
}

// ListMessages returns every recorded message.
func (h *Handler) ListMessages(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.inbox.List())
}

// replyRequest pushes an agent message to a connected visitor.
type replyRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
	// ContactID limits delivery to one tab. Empty means every tab of the visitor.
	ContactID string `json:"contactId,omitempty"`
}

// AgentReply delivers an agent message over the visitor's websocket.
func (h *Handler) AgentReply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" || strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "userId and message are required")
		return
	}

	frame := connection.InboundFrame{Type: connection.TypeMessage, ID: uuid.NewString(), Message: req.Message}
	var (
		n   int
		err error
	)
	if req.ContactID != "" {
		if err = h.hub.SendTo(r.Context(), req.UserID, req.ContactID, frame); err == nil {
			n = 1
		}
	} else {
		n, err = h.hub.Send(r.Context(), req.UserID, frame)
	}
	if errors.Is(err, hub.ErrNoVisitor) {
		Error(w, http.StatusNotFound, "visitor not connected")
		return
	}
	if err != nil {
		h.logger.Warn("Agent reply failed", "device_id", req.UserID, "error", err)
		Error(w, http.StatusBadGateway, "delivery failed")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"status": "ok", "delivered": n})
}
