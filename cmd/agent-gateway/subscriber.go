package main

import (
	"context"
	"strings"

	"github.com/nfvmesh/sfcd/common/bus"
	"github.com/nfvmesh/sfcd/common/logger"
)

const (
	// broadcastPattern matches the per-tenant delta fan-out topics
	broadcastPattern = "sfc:deltas:*"

	// castPattern matches the host-addressed agent topics
	castPattern = "sfc:agent:*"
)

// BusSubscriber bridges the message bus into the hub: deltas go to every
// connected agent, casts only to the addressed host.
type BusSubscriber struct {
	bus bus.Subscriber
	hub *Hub
	log *logger.Logger
}

// NewBusSubscriber creates a new BusSubscriber instance
func NewBusSubscriber(b bus.Subscriber, hub *Hub, log *logger.Logger) *BusSubscriber {
	return &BusSubscriber{
		bus: b,
		hub: hub,
		log: log,
	}
}

// Start subscribes both patterns; each blocks until ctx is cancelled
func (s *BusSubscriber) Start(ctx context.Context) {
	go func() {
		if err := s.bus.Subscribe(ctx, broadcastPattern, s.handleBroadcast); err != nil {
			s.log.Error("broadcast subscription failed", "pattern", broadcastPattern, "error", err)
		}
	}()
	go func() {
		if err := s.bus.Subscribe(ctx, castPattern, s.handleCast); err != nil {
			s.log.Error("cast subscription failed", "pattern", castPattern, "error", err)
		}
	}()
}

// handleBroadcast fans a tenant delta out to every connected agent
func (s *BusSubscriber) handleBroadcast(ctx context.Context, topic string, payload []byte) error {
	s.log.Debug("delta broadcast", "topic", topic, "bytes", len(payload))
	s.hub.deliver <- &Message{Data: payload}
	return nil
}

// handleCast routes a host-addressed message to that host's agent only.
// Topic format: sfc:agent:{host}
func (s *BusSubscriber) handleCast(ctx context.Context, topic string, payload []byte) error {
	host := hostFromTopic(topic)
	if host == "" {
		s.log.Warn("invalid cast topic", "topic", topic)
		return nil
	}

	s.log.Debug("agent cast", "host", host, "bytes", len(payload))
	s.hub.deliver <- &Message{Host: host, Data: payload}
	return nil
}

// hostFromTopic extracts the host from a cast topic.
// Example: "sfc:agent:compute-03" → "compute-03"
func hostFromTopic(topic string) string {
	parts := strings.SplitN(topic, ":", 3)
	if len(parts) != 3 || parts[0] != "sfc" || parts[1] != "agent" {
		return ""
	}
	return parts[2]
}
