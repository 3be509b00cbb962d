// Package domain contains core domain types for the live chat widget.
package domain

import (
	"time"
)

// Author identifies who wrote a message.
type Author string

const (
	// AuthorUser is the visitor typing into the widget.
	AuthorUser Author = "user"
	// AuthorAgent is a support agent, a canned reply, or a widget notice.
	AuthorAgent Author = "agent"
)

// DeliveryStatus is the lifecycle of a user-authored message.
// The zero value means the status is not tracked (agent messages).
type DeliveryStatus int

const (
	StatusNone DeliveryStatus = iota
	StatusSending
	StatusDelivered
	StatusSeen
)

// String returns the wire name of the status.
func (s DeliveryStatus) String() string {
	switch s {
	case StatusSending:
		return "sending"
	case StatusDelivered:
		return "delivered"
	case StatusSeen:
		return "seen"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s DeliveryStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Message is a single entry in the conversation log.
type Message struct {
	ID        string         `json:"id"`
	Seq       uint64         `json:"seq"`
	Text      string         `json:"text"`
	Author    Author         `json:"author"`
	CreatedAt time.Time      `json:"created_at"`
	Status    DeliveryStatus `json:"status,omitempty"`
}

// IsUser returns true if the visitor wrote the message.
func (m Message) IsUser() bool {
	return m.Author == AuthorUser
}
