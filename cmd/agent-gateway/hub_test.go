package main

import (
	"testing"

	"github.com/nfvmesh/sfcd/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New("error", "json")
}

func newTestClient(hub *Hub, host string) *Client {
	return NewClient(hub, nil, host, hub.log)
}

func fillSendBuffer(c *Client) {
	for i := 0; i < cap(c.send); i++ {
		c.send <- []byte("x")
	}
}

func TestBroadcastReachesEveryHost(t *testing.T) {
	hub := NewHub(testLogger())
	a := newTestClient(hub, "compute-01")
	b := newTestClient(hub, "compute-02")
	hub.registerClient(a)
	hub.registerClient(b)

	hub.broadcastAll([]byte("delta"))

	assert.Equal(t, []byte("delta"), <-a.send)
	assert.Equal(t, []byte("delta"), <-b.send)
}

func TestSendToHostIsPointToPoint(t *testing.T) {
	hub := NewHub(testLogger())
	a := newTestClient(hub, "compute-01")
	b := newTestClient(hub, "compute-02")
	hub.registerClient(a)
	hub.registerClient(b)

	hub.sendToHost("compute-01", []byte("cleanup"))

	assert.Equal(t, []byte("cleanup"), <-a.send)
	assert.Empty(t, b.send)
}

func TestStalledAgentDroppedWithoutKillingHub(t *testing.T) {
	hub := NewHub(testLogger())
	stalled := newTestClient(hub, "compute-01")
	healthy := newTestClient(hub, "compute-02")
	hub.registerClient(stalled)
	hub.registerClient(healthy)
	fillSendBuffer(stalled)

	// First broadcast overflows the stalled agent's buffer and must drop it
	// from the connection map.
	hub.broadcastAll([]byte("delta-1"))
	assert.Equal(t, 1, hub.ConnectionCount())

	// A second broadcast must not hit the dropped client's closed channel.
	require.NotPanics(t, func() {
		hub.broadcastAll([]byte("delta-2"))
	})

	// Delivery to the remaining agent continues.
	assert.Equal(t, []byte("delta-1"), <-healthy.send)
	assert.Equal(t, []byte("delta-2"), <-healthy.send)
}

func TestStalledAgentUnregisterIsNoOp(t *testing.T) {
	hub := NewHub(testLogger())
	stalled := newTestClient(hub, "compute-01")
	hub.registerClient(stalled)
	fillSendBuffer(stalled)

	hub.broadcastAll([]byte("delta"))
	require.Equal(t, 0, hub.ConnectionCount())

	// The read pump unregisters the dropped client later; the send channel
	// must not be closed a second time.
	require.NotPanics(t, func() {
		hub.unregisterClient(stalled)
	})
}

func TestUnregisterRemovesClient(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient(hub, "compute-01")
	hub.registerClient(client)
	require.Equal(t, 1, hub.ConnectionCount())
	require.Equal(t, 1, hub.HostCount())

	hub.unregisterClient(client)
	assert.Equal(t, 0, hub.ConnectionCount())
	assert.Equal(t, 0, hub.HostCount())
}
