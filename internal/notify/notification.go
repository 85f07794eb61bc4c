package notify

import (
	"encoding/json"
	"errors"
	"time"
)

// Kind is the display grouping of a notification.
type Kind string

const (
	KindOrder         Kind = "order"
	KindInventory     Kind = "inventory"
	KindImportReceipt Kind = "import-receipt"
	KindExportReceipt Kind = "export-receipt"
	KindOther         Kind = "other"
)

// SourceEvent is the sub-type used for display labeling only.
type SourceEvent string

const (
	EventCreated  SourceEvent = "created"
	EventUpdated  SourceEvent = "updated"
	EventApproved SourceEvent = "approved"
	EventRejected SourceEvent = "rejected"
	EventCanceled SourceEvent = "canceled"
)

// Notification is the client-side projection held by the store. receivedSeq
// is a per-session freshness marker assigned when the item arrives over the
// push channel; items that came from a REST fetch keep it at zero and fall
// back to OccurredAt for ordering.
type Notification struct {
	ID          string      `json:"id"`
	Kind        Kind        `json:"kind"`
	Message     string      `json:"message"`
	OccurredAt  time.Time   `json:"occurred_at"`
	IsRead      bool        `json:"is_read"`
	SourceEvent SourceEvent `json:"source_event"`

	receivedSeq uint64
}

// Fresh reports whether the notification carries a push-assigned freshness
// marker.
func (n *Notification) Fresh() bool {
	return n.receivedSeq > 0
}

var (
	ErrMissingID      = errors.New("notification payload missing id")
	ErrMissingMessage = errors.New("notification payload missing message")
)

// rawNotification is the untrusted wire shape shared by REST responses and
// push payloads.
type rawNotification struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Message     string    `json:"message"`
	OccurredAt  time.Time `json:"occurred_at"`
	IsRead      bool      `json:"is_read"`
	SourceEvent string    `json:"source_event"`
}

// DecodeNotification validates an untrusted payload into a typed
// Notification. Unknown kinds and source events are mapped to safe defaults;
// a payload without an id or a message is rejected.
func DecodeNotification(data []byte) (*Notification, error) {
	var raw rawNotification
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw.ID == "" {
		return nil, ErrMissingID
	}
	if raw.Message == "" {
		return nil, ErrMissingMessage
	}

	n := &Notification{
		ID:          raw.ID,
		Kind:        normalizeKind(raw.Kind),
		Message:     raw.Message,
		OccurredAt:  raw.OccurredAt,
		IsRead:      raw.IsRead,
		SourceEvent: normalizeEvent(raw.SourceEvent),
	}
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now().UTC()
	}
	return n, nil
}

func normalizeKind(s string) Kind {
	switch Kind(s) {
	case KindOrder, KindInventory, KindImportReceipt, KindExportReceipt:
		return Kind(s)
	default:
		return KindOther
	}
}

func normalizeEvent(s string) SourceEvent {
	switch SourceEvent(s) {
	case EventCreated, EventUpdated, EventApproved, EventRejected, EventCanceled:
		return SourceEvent(s)
	default:
		return EventCreated
	}
}
