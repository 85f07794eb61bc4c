package notify

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"shophub/internal/models"
	"shophub/internal/push"
)

// Session state of the store. Loading advances to Ready once the initial
// fetch settles, success or failure; there is no retry loop.
type State int

const (
	StateUnauthenticated State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unauthenticated"
	}
}

// API is the REST surface the store consumes. Implemented by rest.Client.
type API interface {
	Profile(ctx context.Context) (*models.User, error)
	Notifications(ctx context.Context) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// Channel is the push channel surface the store consumes. Implemented by
// push.Client.
type Channel interface {
	Connect(ctx context.Context, token, role string) error
	Messages() <-chan push.Message
	Emit(msg *push.Message) error
	Close() error
}

// Hooks are the UI-facing side effects. All are optional. The store
// serializes hook invocations: no two hooks ever run concurrently, so
// implementations may mutate their own state without locking.
type Hooks struct {
	// OnNotice surfaces an application-level error message as a transient
	// notice (the toast analog).
	OnNotice func(msg string)
	// OnUnreachable fires on the transition to unreachable, once per
	// session until Reset clears the flag; the shell replaces the whole
	// authenticated UI with a retry screen.
	OnUnreachable func()
	// OnChange fires after every mutation of the collection (badge refresh).
	OnChange func()
}

// appMessenger is satisfied by REST errors that carry a backend-supplied
// human-readable message. Everything else is treated as a connectivity
// failure.
type appMessenger interface {
	AppMessage() string
}

// Store holds the authoritative client-side view of the notification
// collection. It merges three input streams (initial REST fetch, push
// events, read acknowledgements) into one ordered, deduplicated collection.
// All entry points are safe for concurrent use; merge-by-id keeps the final
// state correct regardless of how the in-flight fetch and push deliveries
// interleave.
type Store struct {
	api     API
	channel Channel
	role    string
	hooks   Hooks
	hookMu  sync.Mutex // serializes hook invocations
	log     *slog.Logger

	mu          sync.Mutex
	state       State
	loading     bool
	unreachable bool
	items       []*Notification
	seq         uint64 // freshness marker source, monotonic per session
	user        *models.User
	token       string
	generation  uint64 // bumped on every Initialize/Reset; stale completions are dropped
	cancel      context.CancelFunc
}

// NewStore wires the store to its collaborators. role names the role channel
// joined on the push side.
func NewStore(api API, channel Channel, role string, hooks Hooks, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		api:     api,
		channel: channel,
		role:    role,
		hooks:   hooks,
		log:     logger,
		state:   StateUnauthenticated,
	}
}

// Initialize starts a session. With an empty token it resets to an empty
// collection and exits. Otherwise the profile fetch and the notification
// fetch run concurrently, and the push subscription is established
// independently of both; push events arriving before the fetch resolves are
// merged, never overwritten. Initialize returns once the initial fetch has
// settled. It never returns an error: failures surface through the hooks and
// the state still advances to Ready.
func (s *Store) Initialize(ctx context.Context, token string) {
	if token == "" {
		s.Reset()
		return
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	sessionCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.generation++
	gen := s.generation
	s.token = token
	s.state = StateLoading
	s.loading = true
	s.mu.Unlock()

	// Push subscription does not depend on fetch completion; it races the
	// fetch on purpose and IngestPush merges whatever lands first.
	go s.subscribe(sessionCtx, token, gen)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		user, err := s.api.Profile(sessionCtx)
		if err != nil {
			s.reportError("profile fetch failed", err)
			return
		}
		s.mu.Lock()
		if s.generation == gen {
			s.user = user
		}
		s.mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		fetched, err := s.api.Notifications(sessionCtx)
		if err != nil {
			s.reportError("notification fetch failed", err)
			return
		}
		s.mergeFetched(fetched, gen)
	}()

	wg.Wait()

	// Loading -> Ready unconditionally once the fetch settles. A failed
	// fetch leaves the collection as it was; the next push or a manual
	// refresh populates it.
	s.mu.Lock()
	if s.generation == gen {
		s.state = StateReady
		s.loading = false
	}
	s.mu.Unlock()
	s.changed()
}

// mergeFetched folds a REST snapshot into the collection. Items pushed while
// the fetch was in flight win on identity; the snapshot may still upgrade
// their read flag, never downgrade it.
func (s *Store) mergeFetched(fetched []Notification, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return // session was reset while the fetch was in flight
	}
	for i := range fetched {
		n := fetched[i]
		if existing := s.lookup(n.ID); existing != nil {
			if n.IsRead {
				existing.IsRead = true
			}
			continue
		}
		item := n
		s.items = append(s.items, &item)
	}
}

// subscribe connects the push channel and pumps its messages into the store
// for the lifetime of the session. Channel errors are logged only; the store
// keeps operating on REST-sourced data.
func (s *Store) subscribe(ctx context.Context, token string, gen uint64) {
	if err := s.channel.Connect(ctx, token, s.role); err != nil {
		s.log.Warn("push subscription failed", "role", s.role, "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.channel.Messages():
			if !ok {
				return
			}
			s.dispatch(msg, gen)
		}
	}
}

func (s *Store) dispatch(msg push.Message, gen uint64) {
	s.mu.Lock()
	stale := s.generation != gen
	s.mu.Unlock()
	if stale {
		return
	}

	switch msg.Type {
	case push.TypeNotification:
		s.IngestPush(msg.Payload)
	case push.TypeNotificationRead:
		var p push.ReadPayload
		if err := msg.DecodeReadPayload(&p); err != nil {
			s.log.Warn("dropping malformed read broadcast", "error", err)
			return
		}
		s.applyRead(p.ID)
	case push.TypeAllRead:
		s.applyAllRead()
	case push.TypeSystem:
		// informational only
	default:
		s.log.Debug("ignoring push message", "type", msg.Type)
	}
}

// IngestPush transforms an inbound push payload into a Notification and
// prepends it to the collection, unread and carrying a fresh marker. A
// payload whose id is already present is silently dropped: this is the one
// path that must stay idempotent under at-least-once delivery.
func (s *Store) IngestPush(raw []byte) {
	n, err := DecodeNotification(raw)
	if err != nil {
		s.log.Warn("dropping malformed push payload", "error", err)
		return
	}

	s.mu.Lock()
	if s.lookup(n.ID) != nil {
		s.mu.Unlock()
		return // duplicate delivery
	}
	s.seq++
	n.receivedSeq = s.seq
	n.IsRead = false
	s.items = append([]*Notification{n}, s.items...)
	s.mu.Unlock()
	s.changed()
}

// MarkRead optimistically flips a notification to read, persists the change
// and broadcasts it to the role channel. The optimistic mutation is not
// rolled back when persistence fails; the next full fetch reconciles.
func (s *Store) MarkRead(ctx context.Context, id string) {
	s.mu.Lock()
	n := s.lookup(id)
	if n == nil || n.IsRead {
		s.mu.Unlock()
		return
	}
	n.IsRead = true
	s.mu.Unlock()
	s.changed()

	if err := s.api.MarkNotificationRead(ctx, id); err != nil {
		s.reportError("mark-read persist failed", err)
	}
	s.channel.Emit(push.NewReadMessage(s.role, id))
}

// MarkAllRead fans out one persistence call per unread item concurrently,
// swallowing individual failures, then optimistically marks the whole
// collection read and emits a single all-read broadcast. Partial failure
// leaves a mixed state server-side; the client shows everything read.
func (s *Store) MarkAllRead(ctx context.Context) {
	s.mu.Lock()
	var unread []string
	for _, n := range s.items {
		if !n.IsRead {
			unread = append(unread, n.ID)
		}
	}
	s.mu.Unlock()

	if len(unread) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, id := range unread {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := s.api.MarkNotificationRead(ctx, id); err != nil {
				s.log.Warn("mark-read failed in fan-out", "id", id, "error", err)
			}
		}(id)
	}
	wg.Wait()

	s.applyAllRead()
	s.channel.Emit(push.NewAllReadMessage(s.role))
}

// Reset clears the collection and cancels the session. In-flight request
// results arriving afterwards are dropped by the generation check.
func (s *Store) Reset() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	s.items = nil
	s.user = nil
	s.token = ""
	s.seq = 0
	s.state = StateUnauthenticated
	s.loading = false
	s.unreachable = false
	s.mu.Unlock()
	s.changed()
}

// applyRead handles a read acknowledgement from another session. Read state
// is monotonic: it only ever moves to true.
func (s *Store) applyRead(id string) {
	s.mu.Lock()
	n := s.lookup(id)
	if n == nil || n.IsRead {
		s.mu.Unlock()
		return
	}
	n.IsRead = true
	s.mu.Unlock()
	s.changed()
}

func (s *Store) applyAllRead() {
	s.mu.Lock()
	for _, n := range s.items {
		n.IsRead = true
	}
	s.mu.Unlock()
	s.changed()
}

// Snapshot returns the collection ordered for display: push-fresh items
// first, most recent marker on top, then fetch-sourced items by occurredAt
// descending. The returned slice is a copy; callers never see internal
// mutation.
func (s *Store) Snapshot() []Notification {
	s.mu.Lock()
	out := make([]Notification, len(s.items))
	for i, n := range s.items {
		out[i] = *n
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if a.Fresh() != b.Fresh() {
			return a.Fresh()
		}
		if a.Fresh() {
			return a.receivedSeq > b.receivedSeq
		}
		return a.OccurredAt.After(b.OccurredAt)
	})
	return out
}

// UnreadCount is derived from the collection.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.items {
		if !n.IsRead {
			count++
		}
	}
	return count
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Unreachable reports whether a REST call failed without an application
// message since the session started.
func (s *Store) Unreachable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreachable
}

// User returns the profile fetched during Initialize, or nil.
func (s *Store) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// lookup must be called with s.mu held.
func (s *Store) lookup(id string) *Notification {
	for _, n := range s.items {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// reportError applies the two-way error taxonomy: a backend-supplied message
// becomes a transient notice and prior state is kept; anything else flips
// the global unreachable flag. Concurrent failures, like the profile and
// notification fetches both dying during Initialize, report one at a time
// through hookMu, and only the failure that flips the flag fires
// OnUnreachable.
func (s *Store) reportError(op string, err error) {
	if errors.Is(err, context.Canceled) {
		return // session was reset underneath the call
	}

	var app appMessenger
	if errors.As(err, &app) && app.AppMessage() != "" {
		s.log.Warn(op, "error", err)
		if s.hooks.OnNotice != nil {
			s.hookMu.Lock()
			s.hooks.OnNotice(app.AppMessage())
			s.hookMu.Unlock()
		}
		return
	}

	s.log.Error(op, "error", err)
	s.mu.Lock()
	flipped := !s.unreachable
	s.unreachable = true
	s.mu.Unlock()
	if flipped && s.hooks.OnUnreachable != nil {
		s.hookMu.Lock()
		s.hooks.OnUnreachable()
		s.hookMu.Unlock()
	}
}

func (s *Store) changed() {
	if s.hooks.OnChange == nil {
		return
	}
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.hooks.OnChange()
}
