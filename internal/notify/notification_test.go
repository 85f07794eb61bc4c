package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNotification(t *testing.T) {
	occurred := time.Date(2026, 8, 12, 9, 30, 0, 0, time.UTC)

	t.Run("ValidPayload", func(t *testing.T) {
		n, err := DecodeNotification([]byte(`{
			"id": "n-42",
			"kind": "import-receipt",
			"message": "Import receipt IR-104 approved",
			"occurred_at": "2026-08-12T09:30:00Z",
			"source_event": "approved"
		}`))
		require.NoError(t, err)
		assert.Equal(t, "n-42", n.ID)
		assert.Equal(t, KindImportReceipt, n.Kind)
		assert.Equal(t, EventApproved, n.SourceEvent)
		assert.Equal(t, occurred, n.OccurredAt)
		assert.False(t, n.IsRead)
		assert.False(t, n.Fresh())
	})

	t.Run("MissingID", func(t *testing.T) {
		_, err := DecodeNotification([]byte(`{"kind":"order","message":"no id"}`))
		assert.ErrorIs(t, err, ErrMissingID)
	})

	t.Run("MissingMessage", func(t *testing.T) {
		_, err := DecodeNotification([]byte(`{"id":"n-1","kind":"order"}`))
		assert.ErrorIs(t, err, ErrMissingMessage)
	})

	t.Run("NotJSON", func(t *testing.T) {
		_, err := DecodeNotification([]byte(`garbage`))
		assert.Error(t, err)
	})

	t.Run("UnknownKindMapsToOther", func(t *testing.T) {
		n, err := DecodeNotification([]byte(`{"id":"n-1","kind":"lottery","message":"m"}`))
		require.NoError(t, err)
		assert.Equal(t, KindOther, n.Kind)
	})

	t.Run("UnknownSourceEventFallsBack", func(t *testing.T) {
		n, err := DecodeNotification([]byte(`{"id":"n-1","kind":"order","message":"m","source_event":"exploded"}`))
		require.NoError(t, err)
		assert.Equal(t, EventCreated, n.SourceEvent)
	})

	t.Run("MissingTimestampDefaultsToNow", func(t *testing.T) {
		n, err := DecodeNotification([]byte(`{"id":"n-1","kind":"order","message":"m"}`))
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC(), n.OccurredAt, time.Minute)
	})
}
