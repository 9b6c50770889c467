package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/nfvmesh/sfcd/cmd/controller/service"
	"github.com/nfvmesh/sfcd/cmd/reconciler/consumer"
	"github.com/nfvmesh/sfcd/common/bootstrap"
	"github.com/nfvmesh/sfcd/common/repository"
	"github.com/nfvmesh/sfcd/common/server"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := bootstrap.Setup(ctx, "reconciler")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap reconciler: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(context.Background())

	instanceRepo := repository.NewStepInstanceRepository(components.DB)
	deltaRepo := repository.NewDeltaRepository(components.DB)
	deltaService := service.NewDeltaService(deltaRepo, components.Bus, components.Logger)
	instanceService := service.NewStepInstanceService(components.DB, instanceRepo, deltaService, components.Logger)

	lifecycleConsumer := consumer.NewLifecycleConsumer(components.Bus, instanceService, components.Logger)

	go func() {
		if err := lifecycleConsumer.Start(ctx); err != nil && ctx.Err() == nil {
			components.Logger.Error("lifecycle consumer stopped", "error", err)
			cancel()
		}
	}()

	// Health surface; the reconciler has no other HTTP API.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := components.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok", "service": "reconciler"})
	})

	srv := server.New("reconciler", components.Config.Service.Port, mux, components.Logger)
	if err := srv.Start(); err != nil {
		components.Logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
