package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"shophub/internal/notify"
)

type notificationsResponse struct {
	Notifications []json.RawMessage `json:"notifications"`
}

// Notifications returns the full notification list for the authenticated
// role. Each element is validated at the boundary; a malformed element is
// dropped rather than poisoning the whole snapshot.
func (c *Client) Notifications(ctx context.Context) ([]notify.Notification, error) {
	var result notificationsResponse
	if err := c.do(ctx, http.MethodGet, "/notifications", nil, &result); err != nil {
		return nil, err
	}

	items := make([]notify.Notification, 0, len(result.Notifications))
	for _, raw := range result.Notifications {
		n, err := notify.DecodeNotification(raw)
		if err != nil {
			slog.Warn("dropping malformed notification in fetch", "error", err)
			continue
		}
		items = append(items, *n)
	}
	return items, nil
}

// CreateNotification injects a notification through the backend's
// development helper endpoint and returns the stored record.
func (c *Client) CreateNotification(ctx context.Context, kind, message, sourceEvent string) (*notify.Notification, error) {
	req := struct {
		Kind        string `json:"kind"`
		Message     string `json:"message"`
		SourceEvent string `json:"source_event"`
	}{Kind: kind, Message: message, SourceEvent: sourceEvent}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/notifications", &req, &raw); err != nil {
		return nil, err
	}
	return notify.DecodeNotification(raw)
}

// MarkNotificationRead persists the read flag for one notification. The
// endpoint is idempotent: marking an already-read notification again is a
// no-op.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/notifications/"+id+"/read", nil, nil)
}
