// Package server runs a plain HTTP listener with signal-driven graceful
// shutdown, used by binaries that expose a health surface rather than a full
// echo front door.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nfvmesh/sfcd/common/logger"
)

const shutdownGrace = 30 * time.Second

// Server is a named HTTP listener that drains on SIGINT/SIGTERM
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
	name       string
}

// New builds a server for the given handler. Timeouts suit short request
// handlers; websocket-holding services must not use this wrapper.
func New(name string, port int, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log:  log,
		name: name,
	}
}

// Start serves until the listener fails or a termination signal arrives, then
// drains in-flight requests within the shutdown grace period.
func (s *Server) Start() error {
	failed := make(chan error, 1)
	go func() {
		s.log.Info("listening", "service", s.name, "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-failed:
		return fmt.Errorf("%s listener failed: %w", s.name, err)

	case sig := <-stop:
		s.log.Info("draining", "service", s.name, "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.Error("drain incomplete, closing", "service", s.name, "error", err)
			if err := s.httpServer.Close(); err != nil {
				return fmt.Errorf("close %s listener: %w", s.name, err)
			}
		}
		s.log.Info("stopped", "service", s.name)
	}

	return nil
}
