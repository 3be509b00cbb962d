package connection

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ashureev/livechat/internal/domain"
)

// Frame actions.
const (
	ActionSendMessage = "sendMessage"
	ActionInitChat    = "InitChat"

	// TypeMessage tags frames carrying chat text.
	TypeMessage = "message"

	noContentText = "No message content"
)

// SendMessageFrame carries a visitor message over the streaming channel.
type SendMessageFrame struct {
	Action    string `json:"action"`
	Type      string `json:"type"`
	From      string `json:"from"`
	To        string `json:"to"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// InitChatFrame announces collected visitor details.
type InitChatFrame struct {
	Action    string             `json:"action"`
	SellerID  string             `json:"sellerId"`
	UserInfo  domain.VisitorInfo `json:"userInfo"`
	Timestamp string             `json:"timestamp"`
}

// InboundFrame is the union of frames the backend sends to the widget.
type InboundFrame struct {
	Action    string `json:"action,omitempty"`
	Type      string `json:"type,omitempty"`
	ContactID string `json:"contact_id,omitempty"`
	ID        any    `json:"id,omitempty"`
	Message   string `json:"message,omitempty"`
	Text      string `json:"text,omitempty"`
}

// IsChatMessage reports whether the frame carries agent text.
func (f InboundFrame) IsChatMessage() bool {
	return f.Type == TypeMessage || f.Message != ""
}

// Body returns the display text of a chat frame.
func (f InboundFrame) Body() string {
	switch {
	case f.Message != "":
		return f.Message
	case f.Text != "":
		return f.Text
	default:
		return noContentText
	}
}

// MessageID returns the frame id as a string, or "" when absent.
func (f InboundFrame) MessageID() string {
	switch v := f.ID.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// ParseInbound decodes an inbound frame.
func ParseInbound(data []byte) (InboundFrame, error) {
	var f InboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return InboundFrame{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	return f, nil
}
