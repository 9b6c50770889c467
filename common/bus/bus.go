package bus

import "context"

// Handler processes a message received on a topic
type Handler func(ctx context.Context, topic string, payload []byte) error

// Publisher is the message-bus client used by the control plane. Publish
// fans a message out to every subscriber of a topic; Cast addresses the one
// consumer listening on a host-scoped topic. Both are best-effort: absent
// consumers receive nothing and recover through catch-up.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Cast(ctx context.Context, topic string, payload []byte) error
}

// Subscriber consumes topics by pattern
type Subscriber interface {
	Subscribe(ctx context.Context, pattern string, handler Handler) error
}

// Bus combines publishing and subscribing
type Bus interface {
	Publisher
	Subscriber
	Close() error
}
