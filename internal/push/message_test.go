package push

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewMessage(t *testing.T) {
	payload := json.RawMessage(`{"id":"n-1"}`)
	msg := NewMessage(TypeNotification, "admin", payload)

	if msg.Type != TypeNotification {
		t.Errorf("Expected type %s, got %s", TypeNotification, msg.Type)
	}
	if msg.Room != "admin" {
		t.Errorf("Expected room 'admin', got '%s'", msg.Room)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}
	if msg.Timestamp.Location() != time.UTC {
		t.Error("Expected timestamp in UTC")
	}
}

func TestMessageRoundTrip(t *testing.T) {
	msg := NewMessage(TypeNotification, "admin", json.RawMessage(`{"id":"n-7","kind":"order"}`))

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("Failed to convert to JSON: %v", err)
	}

	parsed, err := MessageFromJSON(data)
	if err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if parsed.Type != msg.Type {
		t.Errorf("Type mismatch: expected %s, got %s", msg.Type, parsed.Type)
	}
	if parsed.Room != msg.Room {
		t.Errorf("Room mismatch: expected %s, got %s", msg.Room, parsed.Room)
	}
	if string(parsed.Payload) != string(msg.Payload) {
		t.Errorf("Payload mismatch: expected %s, got %s", msg.Payload, parsed.Payload)
	}
}

func TestMessageFromJSONInvalid(t *testing.T) {
	if _, err := MessageFromJSON([]byte("not json")); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestReadMessagePayload(t *testing.T) {
	msg := NewReadMessage("admin", "n-13")

	if msg.Type != TypeNotificationRead {
		t.Errorf("Expected type %s, got %s", TypeNotificationRead, msg.Type)
	}

	var p ReadPayload
	if err := msg.DecodeReadPayload(&p); err != nil {
		t.Fatalf("Failed to decode read payload: %v", err)
	}
	if p.ID != "n-13" {
		t.Errorf("Expected id 'n-13', got '%s'", p.ID)
	}
}

func TestAllReadMessageHasNoPayload(t *testing.T) {
	msg := NewAllReadMessage("admin")

	if msg.Type != TypeAllRead {
		t.Errorf("Expected type %s, got %s", TypeAllRead, msg.Type)
	}
	if len(msg.Payload) != 0 {
		t.Errorf("Expected empty payload, got %s", msg.Payload)
	}
}
