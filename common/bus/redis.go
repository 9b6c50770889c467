package bus

import (
	"context"
	"fmt"

	"github.com/nfvmesh/sfcd/common/logger"
	"github.com/redis/go-redis/v9"
)

// RedisBus implements Bus over Redis pub/sub channels
type RedisBus struct {
	redis *redis.Client
	log   *logger.Logger
}

// NewRedisBus creates a new Redis-backed bus
func NewRedisBus(client *redis.Client, log *logger.Logger) *RedisBus {
	return &RedisBus{
		redis: client,
		log:   log,
	}
}

// Publish sends a fan-out message to a topic
func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.redis.Publish(ctx, topic, payload).Err(); err != nil {
		b.log.Error("redis PUBLISH failed", "topic", topic, "error", err)
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	b.log.Debug("redis PUBLISH", "topic", topic, "bytes", len(payload))
	return nil
}

// Cast sends a point-to-point message. Over Redis pub/sub this is the same
// delivery mechanism as Publish; the topic is host-scoped so only one
// consumer listens on it.
func (b *RedisBus) Cast(ctx context.Context, topic string, payload []byte) error {
	return b.Publish(ctx, topic, payload)
}

// Subscribe listens on a channel pattern and invokes handler per message.
// Blocks until ctx is cancelled.
func (b *RedisBus) Subscribe(ctx context.Context, pattern string, handler Handler) error {
	pubsub := b.redis.PSubscribe(ctx, pattern)
	defer pubsub.Close()

	// Wait for confirmation that subscription was successful
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", pattern, err)
	}

	b.log.Info("subscribed", "pattern", pattern)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.log.Info("subscription stopping", "pattern", pattern)
			return nil
		case msg := <-ch:
			if msg == nil {
				continue
			}
			if err := handler(ctx, msg.Channel, []byte(msg.Payload)); err != nil {
				b.log.Error("message handler error", "topic", msg.Channel, "error", err)
			}
		}
	}
}

// Close closes the underlying Redis client
func (b *RedisBus) Close() error {
	return b.redis.Close()
}
