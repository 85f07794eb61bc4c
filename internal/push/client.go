package push

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const ( // ping pong(2-way heartbeat) to keep connection alive
	WriteWait      = 10 * time.Second    // max time write a message to the peer
	PongWait       = 60 * time.Second    // max time to wait for pong from peer => no pong = no connection
	PingPeriod     = (PongWait * 9) / 10 // send ping before pong wait expires, 10% slack for network jitter
	MaxMessageSize = 4096                // maximum message size allowed from peer
)

// Client maintains one websocket connection to the push channel. It joins a
// role channel after connecting and delivers inbound messages on Messages().
// Reconnection is bounded: a fixed backoff, a capped attempt count, then the
// channel goes quiet and the next full REST fetch is the source of truth for
// anything missed.
type Client struct {
	url      string
	token    string
	role     string
	attempts int
	backoff  time.Duration
	log      *slog.Logger

	mu       sync.Mutex // guards conn for concurrent writes
	conn     *websocket.Conn
	messages chan Message
	done     chan struct{}
	closed   bool
}

// NewClient creates a push channel client. attempts and backoff bound the
// reconnect loop.
func NewClient(wsURL string, attempts int, backoff time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:      wsURL,
		attempts: attempts,
		backoff:  backoff,
		log:      logger,
		messages: make(chan Message, 64),
		done:     make(chan struct{}),
	}
}

// Connect dials the channel with the bearer token, sends the join message for
// the given role and starts the read loop. It returns once the connection is
// established (or fails to).
func (c *Client) Connect(ctx context.Context, token, role string) error {
	c.mu.Lock()
	c.token = token
	c.role = role
	c.mu.Unlock()

	if err := c.dial(ctx); err != nil {
		return err
	}

	go c.readLoop(ctx)
	go c.pingLoop()
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	header := http.Header{}
	header.Add("Authorization", "Bearer "+c.token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		return fmt.Errorf("push channel connection failed: %w", err)
	}

	conn.SetReadLimit(MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	// join the role channel right after connecting
	join := NewMessage(TypeJoin, c.role, nil)
	if err := c.write(join); err != nil {
		conn.Close()
		return fmt.Errorf("failed to join role channel %q: %w", c.role, err)
	}

	c.log.Info("push channel connected", "role", c.role)
	return nil
}

// readLoop reads messages until the connection drops, then reconnects with a
// fixed backoff up to the configured attempt budget. Channel errors are
// logged only; they never escalate past this package.
func (c *Client) readLoop(ctx context.Context) {
	for {
		var msg Message
		err := c.current().ReadJSON(&msg)
		if err == nil {
			select {
			case c.messages <- msg:
			case <-c.done:
				return
			}
			continue
		}

		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		c.log.Warn("push channel read failed", "error", err)
		if !c.reconnect(ctx) {
			return
		}
	}
}

func (c *Client) reconnect(ctx context.Context) bool {
	for attempt := 1; attempt <= c.attempts; attempt++ {
		select {
		case <-c.done:
			return false
		case <-ctx.Done():
			return false
		case <-time.After(c.backoff):
		}

		if err := c.dial(ctx); err != nil {
			c.log.Warn("push channel reconnect failed",
				"attempt", attempt,
				"max_attempts", c.attempts,
				"error", err,
			)
			continue
		}
		return true
	}
	c.log.Error("push channel reconnect budget exhausted", "attempts", c.attempts)
	return false
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			conn := c.conn
			if conn != nil {
				conn.SetWriteDeadline(time.Now().Add(WriteWait))
				conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}

func (c *Client) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) write(msg *Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("push channel not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return c.conn.WriteJSON(msg)
}

// Emit sends a broadcast message to the role channel, best effort. Other
// sessions catch up on their next full fetch if the emit is lost.
func (c *Client) Emit(msg *Message) error {
	if err := c.write(msg); err != nil {
		c.log.Warn("push channel emit failed", "type", msg.Type, "error", err)
		return err
	}
	return nil
}

// Messages returns the inbound message stream. Delivery order is the channel
// delivery order (FIFO).
func (c *Client) Messages() <-chan Message {
	return c.messages
}

// Close tears the connection down and stops the read and ping loops.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
