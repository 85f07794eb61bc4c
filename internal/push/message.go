package push

import (
	"encoding/json"
	"log/slog"
	"time"
)

// Message protocol for the push channel

// Message types and structures
type MessageType string

const ( //trigger when +
	TypeJoin             MessageType = "join"                   // session joins a role channel
	TypeNotification     MessageType = "notification"           // server delivers a new notification
	TypeNotificationRead MessageType = "notification-read"      // one notification acknowledged as read
	TypeAllRead          MessageType = "all-notifications-read" // whole collection acknowledged as read
	TypeSystem           MessageType = "system"                 // system message
)

// Message structure for push channel communication. Payload carries the
// type-specific body and is decoded at the receiving boundary, never trusted
// implicitly.
type Message struct {
	Type      MessageType     `json:"type"`
	Room      string          `json:"room,omitempty"`    // role channel name
	Payload   json.RawMessage `json:"payload,omitempty"` // type-specific body
	Timestamp time.Time       `json:"timestamp"`         // time in UTC format
}

// constructor new message
func NewMessage(msgType MessageType, room string, payload json.RawMessage) *Message {
	return &Message{
		Type:      msgType,
		Room:      room,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ReadPayload is the body of notification-read broadcasts.
type ReadPayload struct {
	ID string `json:"id"`
}

// DecodeReadPayload decodes the payload of a notification-read message.
func (m *Message) DecodeReadPayload(out *ReadPayload) error {
	return json.Unmarshal(m.Payload, out)
}

// NewReadMessage builds the outbound broadcast for a single read acknowledgement.
func NewReadMessage(room, notificationID string) *Message {
	payload, _ := json.Marshal(ReadPayload{ID: notificationID})
	return NewMessage(TypeNotificationRead, room, payload)
}

// NewAllReadMessage builds the outbound broadcast for an all-read acknowledgement.
func NewAllReadMessage(room string) *Message {
	return NewMessage(TypeAllRead, room, nil)
}

// ToJSON: marshal Message struct to JSON
func (m *Message) ToJSON() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		slog.Error("Failed to marshal message to JSON", "error", err)
		return nil, err
	}
	return data, nil
}

// MessageFromJSON: unmarshal JSON data to Message struct
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	err := json.Unmarshal(data, &msg)
	if err != nil {
		slog.Error("Failed to unmarshal message from JSON", "error", err)
		return nil, err
	}
	return &msg, nil
}
