package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/ashureev/livechat/internal/backend"
	"github.com/ashureev/livechat/internal/connection"
	"github.com/ashureev/livechat/internal/domain"
)

// visitorFrame is the union of frames a widget sends.
type visitorFrame struct {
	Action    string              `json:"action"`
	Type      string              `json:"type,omitempty"`
	From      string              `json:"from,omitempty"`
	To        string              `json:"to,omitempty"`
	Message   string              `json:"message,omitempty"`
	SellerID  string              `json:"sellerId,omitempty"`
	UserInfo  *domain.VisitorInfo `json:"userInfo,omitempty"`
	Timestamp string              `json:"timestamp,omitempty"`
}

// initChatReply carries the contact id assigned to the connection.
type initChatReply struct {
	Action    string `json:"action"`
	ContactID string `json:"contact_id"`
}

// VisitorSocket upgrades /ws?userId= to the streaming channel.
func (h *Handler) VisitorSocket(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("userId")
	if deviceID == "" {
		Error(w, http.StatusBadRequest, "userId is required")
		return
	}
	h.logger.Info("WebSocket connection request", "device_id", deviceID, "ip", r.RemoteAddr)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err, "device_id", deviceID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "device_id", deviceID)
		}
	}()

	contactID := uuid.NewString()
	h.hub.Register(deviceID, contactID, ws)
	defer h.hub.Unregister(deviceID, contactID, ws)

	h.readLoop(r.Context(), ws, deviceID, contactID)
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, deviceID, contactID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.logger.Debug("WebSocket closed by visitor", "device_id", deviceID)
			} else {
				h.logger.Warn("WebSocket read error", "error", err, "device_id", deviceID)
			}
			return
		}

		var frame visitorFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.logger.Warn("Dropping malformed visitor frame", "error", err, "device_id", deviceID)
			continue
		}

		switch frame.Action {
		case connection.ActionInitChat:
			h.logger.Info("Chat initiated", "device_id", deviceID, "contact_id", contactID, "seller_id", frame.SellerID)
			reply := initChatReply{Action: connection.ActionInitChat, ContactID: contactID}
			if err := wsjson.Write(ctx, ws, reply); err != nil {
				h.logger.Debug("Failed to send InitChat reply", "error", err)
				return
			}
		case connection.ActionSendMessage:
			m := h.inbox.Add("websocket", backend.SendRequest{
				SellerID:  frame.To,
				Message:   frame.Message,
				UserInfo:  frame.UserInfo,
				Timestamp: frame.Timestamp,
			})
			ack := connection.InboundFrame{
				Type:    connection.TypeMessage,
				ID:      m.ID,
				Message: "Received: " + frame.Message,
			}
			if err := wsjson.Write(ctx, ws, ack); err != nil {
				h.logger.Debug("Failed to send acknowledgement", "error", err)
				return
			}
		default:
			h.logger.Debug("Ignoring visitor frame", "action", frame.Action, "device_id", deviceID)
		}
	}
}
