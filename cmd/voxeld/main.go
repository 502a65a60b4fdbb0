package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/brain"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/config"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/correlate"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/executor"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/httpapi"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/observability"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/pipeline"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/planner"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/session"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/voxel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	catalog, err := voxel.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("voxel catalog init failed: %v", err)
	}
	defer catalog.Close()

	completer, err := brain.NewCompleter(brain.Config{
		Mode:    cfg.BrainAdapterMode,
		HTTPURL: cfg.BrainHTTPURL,
		APIKey:  cfg.BrainAPIKey,
		Model:   cfg.BrainModel,
		Timeout: cfg.BrainRequestTimeout,
	})
	if err != nil {
		log.Fatalf("brain adapter init failed: %v", err)
	}

	sessions := session.NewStore(cfg.MaxHistory)
	registry := correlate.NewRegistry()

	service := pipeline.New(
		sessions,
		registry,
		catalog,
		planner.New(completer, sessions, catalog, cfg.BrainMaxAttempts),
		executor.New(completer, registry, cfg.BrainMaxAttempts),
		metrics,
		cfg.BrainRequestTimeout,
	)

	api := httpapi.New(cfg, service, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
