// Kestrel - Policy recommendations that deploy in 60 seconds.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/kestrel/internal/api"
	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/catalog"
	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/recommend"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/rules"
	"github.com/opensource-finance/kestrel/internal/scoring"
	"github.com/opensource-finance/kestrel/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("KESTREL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration (defaults + optional YAML + env overrides)
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"catalog", cfg.Catalog.Source,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Load the policy catalog
	store, err := catalog.Load(ctx, cfg.Catalog, repo)
	if err != nil {
		slog.Error("failed to load policy catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("policy catalog loaded",
		"source", cfg.Catalog.Source,
		"policies", store.Len(),
	)

	// Initialize Eligibility Engine and compile catalog constraints
	engine, err := rules.NewEngine()
	if err != nil {
		slog.Error("failed to initialize eligibility engine", "error", err)
		os.Exit(1)
	}
	if err := engine.LoadCatalog(store.All()); err != nil {
		slog.Error("failed to compile catalog constraints", "error", err)
		os.Exit(1)
	}
	slog.Info("eligibility engine initialized", "constraints", engine.ConstraintCount())

	// Initialize Scorer and Recommender
	scorer := scoring.NewScorer(scoring.DefaultWeights(), scoring.DefaultAffinity())
	recommender := recommend.NewRecommender(store, engine, scorer, cfg.Engine.TopN)
	slog.Info("recommender initialized", "top_n", recommender.TopN())

	// Initialize async handoff Worker
	asyncWorker := worker.NewWorker(busImpl, repo)
	if err := asyncWorker.Start(); err != nil {
		slog.Error("failed to start handoff worker", "error", err)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, store, recommender, Version, cfg.Cache.QuoteTTL)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version, store.Len())

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop the handoff worker first
	if err := asyncWorker.Stop(); err != nil {
		slog.Error("failed to stop handoff worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

func printBanner(cfg *domain.Config, version string, policies int) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🪶 KESTREL                  ║")
	fmt.Println("  ║     Policy Recommendation Engine          ║")
	fmt.Println("  ║      The right cover, first try.          ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Catalog:  %d policies (%s)\n", policies, cfg.Catalog.Source)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    GET  /policies       - List the policy catalog")
	fmt.Println("    GET  /policies/{id}  - Get a policy by ID")
	fmt.Println("    POST /quote          - Get ranked recommendations")
	fmt.Println("    GET  /quotes/{id}    - Get a stored quote by ID")
	fmt.Println("    POST /handoff        - Schedule an advisor callback")
	fmt.Println("    GET  /handoffs/{id}  - Get a handoff ticket by ID")
	fmt.Println("    GET  /health         - Health check")
	fmt.Println("    GET  /ready          - Readiness check")
	fmt.Println()
}
