package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nfvmesh/sfcd/common/bootstrap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The gateway needs no database, only the bus.
	components, err := bootstrap.Setup(ctx, "agent-gateway", bootstrap.WithoutDB())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap agent-gateway: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(context.Background())

	log := components.Logger

	hub := NewHub(log)
	go hub.Run()

	subscriber := NewBusSubscriber(components.Bus, hub, log)
	subscriber.Start(ctx)

	server := NewServer(hub, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.HandleWebSocket)
	mux.HandleFunc("/api/stats", server.HandleStats)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", components.Config.Service.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
		// No read/write timeouts: WebSocket connections are long-lived.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Info("agent gateway listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down agent gateway")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", "error", err)
	}
}
