package stubapi

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"shophub/internal/push"
)

// Broadcaster fans push messages out to the local hub and, when Redis is
// configured, across stub instances via pub/sub so every instance's role
// rooms see the same events. Without Redis it degrades to local-only
// delivery.
type Broadcaster struct {
	hub    *Hub
	client *redis.Client
	log    *slog.Logger
}

const channelPrefix = "shophub:push:"

// NewBroadcaster wires the hub to an optional Redis backend. redisAddr may
// be empty for local-only mode.
func NewBroadcaster(hub *Hub, redisAddr, redisPassword string, logger *slog.Logger) (*Broadcaster, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broadcaster{hub: hub, log: logger}

	if redisAddr == "" {
		return b, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         redisAddr,
		Password:     redisPassword,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	b.client = rdb
	return b, nil
}

// Publish delivers a message to the room. With Redis configured the message
// takes the pub/sub round trip so other instances deliver it too; the
// subscription loop handles local delivery. Without Redis it goes straight
// to the local hub.
func (b *Broadcaster) Publish(ctx context.Context, room string, msg *push.Message) error {
	if b.client == nil {
		b.hub.Broadcast(room, msg)
		return nil
	}

	data, err := msg.ToJSON()
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, channelPrefix+room, data).Err(); err != nil {
		return fmt.Errorf("failed to publish push message: %w", err)
	}
	return nil
}

// Subscribe runs the pub/sub consumption loop for a room until ctx is
// canceled. No-op without Redis.
func (b *Broadcaster) Subscribe(ctx context.Context, room string) error {
	if b.client == nil {
		return nil
	}

	sub := b.client.Subscribe(ctx, channelPrefix+room)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case redisMsg, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := push.MessageFromJSON([]byte(redisMsg.Payload))
			if err != nil {
				b.log.Warn("dropping malformed pub/sub payload", "error", err)
				continue
			}
			b.hub.Broadcast(room, msg)
		}
	}
}

// Close releases the Redis connection.
func (b *Broadcaster) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}
