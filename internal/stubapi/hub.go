package stubapi

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"shophub/internal/push"
)

// session is one connected push subscriber.
type session struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte // buffered channel for outbound messages
	hub    *Hub
	room   string
}

// Hub tracks sessions per role room and fans broadcast messages out to them.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*session // room -> session id -> session
	log   *slog.Logger

	// onRead and onAllRead let the server persist read acknowledgements
	// arriving over the channel instead of REST.
	onRead    func(notificationID string)
	onAllRead func()
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms: make(map[string]map[string]*session),
		log:   logger,
	}
}

// join adds a session to a role room, leaving its previous room first.
func (h *Hub) join(s *session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.room != "" {
		delete(h.rooms[s.room], s.id)
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*session)
	}
	h.rooms[room][s.id] = s
	s.room = room
	h.log.Info("session joined room", "room", room, "session_id", s.id)
}

func (h *Hub) remove(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.room != "" {
		delete(h.rooms[s.room], s.id)
	}
	h.log.Info("session removed", "session_id", s.id)
}

// Broadcast sends a marshaled message to every session in the room. A
// session whose send buffer is full is dropped rather than blocking the
// whole room.
func (h *Hub) Broadcast(room string, msg *push.Message) {
	data, err := msg.ToJSON()
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.rooms[room] {
		select {
		case s.send <- data:
		default:
			h.log.Warn("session send buffer full, dropping", "session_id", s.id)
		}
	}
}

// RoomSize returns the number of sessions currently in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// readPump consumes inbound messages from one session until the connection
// drops. Read acknowledgements are persisted through the hub callbacks and
// rebroadcast to the session's room.
func (s *session) readPump() {
	defer func() {
		s.hub.remove(s)
		close(s.send)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(push.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(push.PongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(push.PongWait))
		return nil
	})

	for {
		var msg push.Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.log.Warn("session read error", "session_id", s.id, "error", err)
			}
			return
		}

		switch msg.Type {
		case push.TypeJoin:
			s.hub.join(s, msg.Room)
		case push.TypeNotificationRead:
			var p push.ReadPayload
			if err := msg.DecodeReadPayload(&p); err != nil {
				s.hub.log.Warn("malformed read broadcast", "error", err)
				continue
			}
			if s.hub.onRead != nil {
				s.hub.onRead(p.ID)
			}
			s.hub.Broadcast(s.currentRoom(), &msg)
		case push.TypeAllRead:
			if s.hub.onAllRead != nil {
				s.hub.onAllRead()
			}
			s.hub.Broadcast(s.currentRoom(), &msg)
		default:
			s.hub.log.Debug("ignoring inbound message", "type", msg.Type)
		}
	}
}

func (s *session) currentRoom() string {
	s.hub.mu.RLock()
	defer s.hub.mu.RUnlock()
	return s.room
}

// writePump drains the send channel onto the connection and keeps the
// heartbeat going.
func (s *session) writePump() {
	ticker := time.NewTicker(push.PingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(push.WriteWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(push.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
