package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shophub/internal/models"
	"shophub/internal/push"
)

// appErr mimics a REST error carrying a backend-supplied message.
type appErr struct {
	msg string
}

func (e *appErr) Error() string      { return e.msg }
func (e *appErr) AppMessage() string { return e.msg }

// fakeAPI scripts the REST collaborator.
type fakeAPI struct {
	mu sync.Mutex

	profile    *models.User
	profileErr error

	notifications []Notification
	fetchErr      error
	fetchGate     chan struct{} // when set, Notifications blocks until closed

	markErr map[string]error
	marked  []string
}

func (f *fakeAPI) Profile(ctx context.Context) (*models.User, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if f.profile != nil {
		return f.profile, nil
	}
	return &models.User{ID: "u1", Username: "admin", Role: "admin"}, nil
}

func (f *fakeAPI) Notifications(ctx context.Context) ([]Notification, error) {
	if f.fetchGate != nil {
		select {
		case <-f.fetchGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.notifications...), nil
}

func (f *fakeAPI) MarkNotificationRead(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.markErr[id]; err != nil {
		return err
	}
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeAPI) markedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.marked...)
}

// fakeChannel scripts the push collaborator.
type fakeChannel struct {
	mu       sync.Mutex
	messages chan push.Message
	emitted  []push.Message
	connects int
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{messages: make(chan push.Message, 16)}
}

func (f *fakeChannel) Connect(ctx context.Context, token, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return nil
}

func (f *fakeChannel) Messages() <-chan push.Message { return f.messages }

func (f *fakeChannel) Emit(msg *push.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, *msg)
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func (f *fakeChannel) emittedTypes() []push.MessageType {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]push.MessageType, len(f.emitted))
	for i, m := range f.emitted {
		types[i] = m.Type
	}
	return types
}

func rawNotificationJSON(id, kind, message string, occurredAt time.Time) []byte {
	data, _ := json.Marshal(map[string]any{
		"id":           id,
		"kind":         kind,
		"message":      message,
		"occurred_at":  occurredAt,
		"source_event": "created",
	})
	return data
}

func fetched(id string, read bool, occurredAt time.Time) Notification {
	return Notification{
		ID:          id,
		Kind:        KindOrder,
		Message:     "order " + id,
		OccurredAt:  occurredAt,
		IsRead:      read,
		SourceEvent: EventCreated,
	}
}

func newTestStore(api *fakeAPI, ch *fakeChannel, hooks Hooks) *Store {
	return NewStore(api, ch, "admin", hooks, nil)
}

func TestIngestPushDeduplicates(t *testing.T) {
	store := newTestStore(&fakeAPI{}, newFakeChannel(), Hooks{})

	now := time.Now()
	payloads := [][]byte{
		rawNotificationJSON("n1", "order", "first", now),
		rawNotificationJSON("n2", "inventory", "second", now),
		rawNotificationJSON("n1", "order", "first again", now),
		rawNotificationJSON("n2", "inventory", "second again", now),
		rawNotificationJSON("n3", "other", "third", now),
		rawNotificationJSON("n1", "order", "first yet again", now),
	}
	for _, p := range payloads {
		store.IngestPush(p)
	}

	items := store.Snapshot()
	require.Len(t, items, 3)
	seen := map[string]int{}
	for _, n := range items {
		seen[n.ID]++
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "notification %s duplicated", id)
	}
	// first delivery wins: the duplicate's message never replaces it
	assert.Equal(t, "first", items[2].Message)
}

func TestIngestPushRejectsMalformed(t *testing.T) {
	store := newTestStore(&fakeAPI{}, newFakeChannel(), Hooks{})

	store.IngestPush([]byte(`{"kind":"order","message":"no id"}`))
	store.IngestPush([]byte(`{"id":"n1","kind":"order"}`))
	store.IngestPush([]byte(`not json at all`))

	assert.Empty(t, store.Snapshot())
}

func TestReadMonotonicity(t *testing.T) {
	api := &fakeAPI{}
	store := newTestStore(api, newFakeChannel(), Hooks{})

	now := time.Now()
	store.IngestPush(rawNotificationJSON("n1", "order", "order placed", now))
	store.MarkRead(context.Background(), "n1")
	require.Equal(t, 0, store.UnreadCount())

	// redelivery of the same id must not resurrect it unread
	store.IngestPush(rawNotificationJSON("n1", "order", "order placed", now))
	assert.Equal(t, 0, store.UnreadCount())

	store.MarkAllRead(context.Background())
	items := store.Snapshot()
	require.Len(t, items, 1)
	assert.True(t, items[0].IsRead)
}

func TestResetClearsState(t *testing.T) {
	api := &fakeAPI{notifications: []Notification{
		fetched("a", false, time.Now()),
		fetched("b", true, time.Now()),
	}}
	store := newTestStore(api, newFakeChannel(), Hooks{})

	store.Initialize(context.Background(), "token-1")
	require.NotEmpty(t, store.Snapshot())

	store.Reset()

	assert.Empty(t, store.Snapshot())
	assert.Equal(t, 0, store.UnreadCount())
	assert.Equal(t, StateUnauthenticated, store.State())
	assert.Nil(t, store.User())
}

func TestInitializeWithoutTokenResets(t *testing.T) {
	store := newTestStore(&fakeAPI{}, newFakeChannel(), Hooks{})
	store.IngestPush(rawNotificationJSON("n1", "order", "pre-session leftover", time.Now()))

	store.Initialize(context.Background(), "")

	assert.Empty(t, store.Snapshot())
	assert.Equal(t, StateUnauthenticated, store.State())
}

func TestFetchPushInterleaving(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{
		notifications: []Notification{
			fetched("A", false, time.Now().Add(-2*time.Hour)),
			fetched("B", false, time.Now().Add(-1*time.Hour)),
		},
		fetchGate: gate,
	}
	store := newTestStore(api, newFakeChannel(), Hooks{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		store.Initialize(context.Background(), "token-1")
	}()

	require.Eventually(t, func() bool {
		return store.State() == StateLoading
	}, time.Second, time.Millisecond)

	// C arrives over the push channel before the fetch resolves
	store.IngestPush(rawNotificationJSON("C", "inventory", "stock adjusted", time.Now()))
	require.Equal(t, StateLoading, store.State())

	close(gate)
	<-done

	items := store.Snapshot()
	require.Len(t, items, 3)
	ids := map[string]bool{}
	for _, n := range items {
		ids[n.ID] = true
	}
	assert.True(t, ids["A"] && ids["B"] && ids["C"])
	assert.Equal(t, StateReady, store.State())

	// the pushed item carries the freshness marker and sorts first
	assert.Equal(t, "C", items[0].ID)
	assert.True(t, items[0].Fresh())
}

func TestFetchNeverDowngradesPushedRead(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{
		notifications: []Notification{fetched("X", false, time.Now())},
		fetchGate:     gate,
	}
	store := newTestStore(api, newFakeChannel(), Hooks{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		store.Initialize(context.Background(), "token-1")
	}()

	store.IngestPush(rawNotificationJSON("X", "order", "order placed", time.Now()))
	store.MarkRead(context.Background(), "X")

	close(gate)
	<-done

	items := store.Snapshot()
	require.Len(t, items, 1)
	assert.True(t, items[0].IsRead, "fetch snapshot must not resurrect X unread")
}

func TestUnreachableEscalation(t *testing.T) {
	t.Run("ConnectivityError", func(t *testing.T) {
		unreachable := false
		api := &fakeAPI{fetchErr: errors.New("dial tcp: connection refused")}
		store := newTestStore(api, newFakeChannel(), Hooks{
			OnUnreachable: func() { unreachable = true },
		})

		store.Initialize(context.Background(), "token-1")

		assert.True(t, store.Unreachable())
		assert.True(t, unreachable)
		// state still advances, there is no retry loop
		assert.Equal(t, StateReady, store.State())
	})

	t.Run("ApplicationError", func(t *testing.T) {
		var notices []string
		api := &fakeAPI{fetchErr: &appErr{msg: "notification list unavailable"}}
		store := newTestStore(api, newFakeChannel(), Hooks{
			OnNotice: func(msg string) { notices = append(notices, msg) },
		})

		store.Initialize(context.Background(), "token-1")

		assert.False(t, store.Unreachable())
		assert.Equal(t, []string{"notification list unavailable"}, notices)
		assert.Equal(t, StateReady, store.State())
	})
}

func TestConcurrentFailureHooksSerialized(t *testing.T) {
	// profile and notification fetch fail on separate goroutines inside
	// Initialize; the hooks mutate plain variables, which is only safe
	// because the store serializes hook invocations
	t.Run("UnreachableFiresOnce", func(t *testing.T) {
		calls := 0
		api := &fakeAPI{
			profileErr: errors.New("dial tcp: connection refused"),
			fetchErr:   errors.New("dial tcp: connection refused"),
		}
		store := newTestStore(api, newFakeChannel(), Hooks{
			OnUnreachable: func() { calls++ },
		})

		store.Initialize(context.Background(), "token-1")

		assert.Equal(t, 1, calls, "both failing fetches collapse into one unreachable report")
		assert.True(t, store.Unreachable())
	})

	t.Run("NoticesFromBothFailures", func(t *testing.T) {
		var notices []string
		api := &fakeAPI{
			profileErr: &appErr{msg: "profile unavailable"},
			fetchErr:   &appErr{msg: "notifications unavailable"},
		}
		store := newTestStore(api, newFakeChannel(), Hooks{
			OnNotice: func(msg string) { notices = append(notices, msg) },
		})

		store.Initialize(context.Background(), "token-1")

		assert.ElementsMatch(t, []string{"profile unavailable", "notifications unavailable"}, notices)
		assert.False(t, store.Unreachable())
	})
}

func TestKeepsLastKnownGoodOnFetchFailure(t *testing.T) {
	api := &fakeAPI{}
	store := newTestStore(api, newFakeChannel(), Hooks{})

	store.IngestPush(rawNotificationJSON("n1", "order", "kept", time.Now()))
	api.fetchErr = &appErr{msg: "temporarily unavailable"}

	store.Initialize(context.Background(), "token-2")

	items := store.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, "n1", items[0].ID)
}

func TestMarkAllReadPartialFailure(t *testing.T) {
	now := time.Now()
	api := &fakeAPI{
		notifications: []Notification{
			fetched("X", false, now.Add(-3*time.Hour)),
			fetched("Y", false, now.Add(-2*time.Hour)),
			fetched("Z", false, now.Add(-1*time.Hour)),
		},
		markErr: map[string]error{"Y": &appErr{msg: "cannot mark as read"}},
	}
	ch := newFakeChannel()
	store := newTestStore(api, ch, Hooks{})

	store.Initialize(context.Background(), "token-1")
	require.Equal(t, 3, store.UnreadCount())

	store.MarkAllRead(context.Background())

	// locally everything reads as read, optimistically
	assert.Equal(t, 0, store.UnreadCount())
	for _, n := range store.Snapshot() {
		assert.True(t, n.IsRead, "%s should be read locally", n.ID)
	}

	// durably only X and Z made it
	durable := api.markedIDs()
	assert.ElementsMatch(t, []string{"X", "Z"}, durable)

	// one broadcast for the whole batch
	assert.Equal(t, []push.MessageType{push.TypeAllRead}, ch.emittedTypes())
}

func TestMarkReadEmitsBroadcast(t *testing.T) {
	ch := newFakeChannel()
	api := &fakeAPI{}
	store := newTestStore(api, ch, Hooks{})

	store.IngestPush(rawNotificationJSON("n1", "order", "order placed", time.Now()))
	store.MarkRead(context.Background(), "n1")

	require.Equal(t, []push.MessageType{push.TypeNotificationRead}, ch.emittedTypes())
	assert.Equal(t, []string{"n1"}, api.markedIDs())

	// marking again is a local no-op: no second persist, no second broadcast
	store.MarkRead(context.Background(), "n1")
	assert.Len(t, ch.emittedTypes(), 1)
	assert.Len(t, api.markedIDs(), 1)
}

func TestReadBroadcastFromOtherSession(t *testing.T) {
	ch := newFakeChannel()
	api := &fakeAPI{notifications: []Notification{fetched("n1", false, time.Now())}}
	store := newTestStore(api, ch, Hooks{})

	store.Initialize(context.Background(), "token-1")
	require.Equal(t, 1, store.UnreadCount())

	ch.messages <- *push.NewReadMessage("admin", "n1")

	assert.Eventually(t, func() bool {
		return store.UnreadCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestSnapshotOrdering(t *testing.T) {
	now := time.Now()
	api := &fakeAPI{notifications: []Notification{
		fetched("old", false, now.Add(-3*time.Hour)),
		fetched("newer", false, now.Add(-1*time.Hour)),
		fetched("middle", false, now.Add(-2*time.Hour)),
	}}
	store := newTestStore(api, newFakeChannel(), Hooks{})

	store.Initialize(context.Background(), "token-1")
	store.IngestPush(rawNotificationJSON("push1", "order", "first push", now))
	store.IngestPush(rawNotificationJSON("push2", "order", "second push", now))

	ids := make([]string, 0, 5)
	for _, n := range store.Snapshot() {
		ids = append(ids, n.ID)
	}
	// pushes first, most recent marker on top, then fetch order by occurredAt
	assert.Equal(t, []string{"push2", "push1", "newer", "middle", "old"}, ids)
}

func TestStaleFetchAfterResetIsDropped(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{
		notifications: []Notification{fetched("ghost", false, time.Now())},
		fetchGate:     gate,
	}
	store := newTestStore(api, newFakeChannel(), Hooks{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		store.Initialize(context.Background(), "token-1")
	}()

	require.Eventually(t, func() bool {
		return store.State() == StateLoading
	}, time.Second, time.Millisecond)

	store.Reset() // logout while the fetch is still in flight
	close(gate)
	<-done

	assert.Empty(t, store.Snapshot(), "stale fetch result must not repopulate a reset store")
	assert.Equal(t, StateUnauthenticated, store.State())
}

func TestConcurrentIngestAndMarkRead(t *testing.T) {
	store := newTestStore(&fakeAPI{}, newFakeChannel(), Hooks{})
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				id := fmt.Sprintf("n%d", j%10)
				store.IngestPush(rawNotificationJSON(id, "order", "msg", now))
				store.MarkRead(context.Background(), id)
				store.Snapshot()
				store.UnreadCount()
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Snapshot(), 10)
}
