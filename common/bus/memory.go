package bus

import (
	"context"
	"path"
	"sync"
)

// MemoryBus is an in-process Bus used by tests and single-binary setups.
// Messages are delivered synchronously to matching subscribers and also
// recorded so tests can assert on what was sent.
type MemoryBus struct {
	mu   sync.Mutex
	subs []memorySub

	// Published and Casted record every message in send order.
	Published []Message
	Casted    []Message
}

// Message is one recorded bus message
type Message struct {
	Topic   string
	Payload []byte
}

type memorySub struct {
	pattern string
	handler Handler
}

// NewMemoryBus creates a new in-memory bus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Publish delivers to all subscribers whose pattern matches the topic
func (b *MemoryBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	b.Published = append(b.Published, Message{Topic: topic, Payload: payload})
	subs := make([]memorySub, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	b.deliver(ctx, subs, topic, payload)
	return nil
}

// Cast delivers a point-to-point message
func (b *MemoryBus) Cast(ctx context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	b.Casted = append(b.Casted, Message{Topic: topic, Payload: payload})
	subs := make([]memorySub, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	b.deliver(ctx, subs, topic, payload)
	return nil
}

// Subscribe registers a handler for a glob pattern. Unlike the Redis bus it
// does not block; delivery happens on the publisher's goroutine.
func (b *MemoryBus) Subscribe(ctx context.Context, pattern string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, memorySub{pattern: pattern, handler: handler})
	return nil
}

// Close is a no-op for the memory bus
func (b *MemoryBus) Close() error {
	return nil
}

func (b *MemoryBus) deliver(ctx context.Context, subs []memorySub, topic string, payload []byte) {
	for _, sub := range subs {
		if ok, _ := path.Match(sub.pattern, topic); ok || sub.pattern == topic {
			// Handler errors are the subscriber's problem, same as pub/sub.
			_ = sub.handler(ctx, topic, payload)
		}
	}
}
