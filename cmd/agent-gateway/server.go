package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/nfvmesh/sfcd/common/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Agents connect from compute hosts on the management network.
		return true
	},
}

// Server handles agent WebSocket connections
type Server struct {
	hub *Hub
	log *logger.Logger
}

// NewServer creates a new Server instance
func NewServer(hub *Hub, log *logger.Logger) *Server {
	return &Server{
		hub: hub,
		log: log,
	}
}

// HandleWebSocket upgrades the connection and registers the agent.
// URL: /ws?host=compute-03
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	host := r.URL.Query().Get("host")
	if host == "" {
		http.Error(w, "host query parameter required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade error", "error", err)
		return
	}

	client := NewClient(s.hub, conn, host, s.log)
	s.hub.register <- client

	s.log.Info("agent connected", "host", host, "remote", r.RemoteAddr)

	go client.writePump()
	go client.readPump()
}

// HandleStats reports connection counts
// GET /api/stats
func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"connections":%d,"hosts":%d}`, s.hub.ConnectionCount(), s.hub.HostCount())
}
