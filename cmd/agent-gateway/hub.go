package main

import (
	"sync"

	"github.com/nfvmesh/sfcd/common/logger"
)

// Hub maintains active agent connections keyed by compute host
type Hub struct {
	// Map: host → []*Client
	connections map[string][]*Client
	mutex       sync.RWMutex

	register   chan *Client
	unregister chan *Client
	deliver    chan *Message

	log *logger.Logger
}

// Message is one outbound message. An empty Host means fan-out to every
// connected agent; otherwise only the named host's connections receive it.
type Message struct {
	Host string
	Data []byte
}

// NewHub creates a new Hub instance
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		connections: make(map[string][]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		deliver:     make(chan *Message, 256),
		log:         log,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.log.Info("hub started")

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.deliver:
			if message.Host == "" {
				h.broadcastAll(message.Data)
			} else {
				h.sendToHost(message.Host, message.Data)
			}
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.connections[client.host] = append(h.connections[client.host], client)
	h.log.Info("agent registered", "host", client.host, "total_for_host", len(h.connections[client.host]))
}

func (h *Hub) unregisterClient(client *Client) {
	if h.removeClient(client) {
		h.log.Info("agent unregistered", "host", client.host)
	}
}

// removeClient takes the client out of the connection map and closes its
// send channel. Already-removed clients (dropped as stalled, then
// unregistered by their read pump) are a no-op, so the channel is closed
// exactly once.
func (h *Hub) removeClient(client *Client) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	clients := h.connections[client.host]
	for i, c := range clients {
		if c == client {
			h.connections[client.host] = append(clients[:i], clients[i+1:]...)
			close(client.send)

			if len(h.connections[client.host]) == 0 {
				delete(h.connections, client.host)
			}
			return true
		}
	}
	return false
}

// broadcastAll fans a delta out to every connected agent
func (h *Hub) broadcastAll(data []byte) {
	h.mutex.RLock()
	var stalled []*Client
	for _, clients := range h.connections {
		for _, client := range clients {
			if !trySend(client, data) {
				stalled = append(stalled, client)
			}
		}
	}
	h.mutex.RUnlock()

	h.dropStalled(stalled)
}

// sendToHost delivers a cast to the one host's connections. Absent hosts
// receive nothing; their agents recover via catch-up.
func (h *Hub) sendToHost(host string, data []byte) {
	h.mutex.RLock()
	var stalled []*Client
	for _, client := range h.connections[host] {
		if !trySend(client, data) {
			stalled = append(stalled, client)
		}
	}
	h.mutex.RUnlock()

	h.dropStalled(stalled)
}

func trySend(client *Client, data []byte) bool {
	select {
	case client.send <- data:
		return true
	default:
		return false
	}
}

// dropStalled removes clients whose send buffer filled up. The channel is
// closed only after the client leaves the connection map, so later
// deliveries never hit a closed channel. The agent reconnects and catches up.
func (h *Hub) dropStalled(stalled []*Client) {
	for _, client := range stalled {
		h.log.Warn("agent send buffer full, closing connection", "host", client.host)
		h.removeClient(client)
	}
}

// ConnectionCount returns the total number of active connections
func (h *Hub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	count := 0
	for _, clients := range h.connections {
		count += len(clients)
	}
	return count
}

// HostCount returns the number of distinct hosts connected
func (h *Hub) HostCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.connections)
}
