package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/openclaw/clawmetry/internal/config"
	"github.com/openclaw/clawmetry/internal/frontend"
	"github.com/openclaw/clawmetry/internal/metrics"
	"github.com/openclaw/clawmetry/internal/server"
	"github.com/openclaw/clawmetry/internal/stream"
	"github.com/openclaw/clawmetry/internal/subagent"
	"github.com/openclaw/clawmetry/internal/usage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	workspace := flag.String("workspace", "", "Override agent workspace directory")
	logDir := flag.String("log-dir", "", "Override log directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *workspace != "" {
		cfg.Paths.Workspace = *workspace
	}
	if *logDir != "" {
		cfg.Paths.LogDir = *logDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	store := metrics.NewStore(cfg)
	if err := store.Load(); err != nil {
		log.Printf("Metrics snapshot not restored: %v", err)
	}

	reader := subagent.NewReader(cfg)
	aggregator := usage.NewAggregator(cfg, store)
	hub := stream.NewHub(reader, cfg.Monitor.RefreshInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go store.Run(ctx)
	go hub.Run(ctx)

	srv := server.NewServer(cfg, reader, aggregator, store, hub, frontend.Handler())

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
		if err := store.Flush(); err != nil {
			log.Printf("Final snapshot failed: %v", err)
		}
		os.Exit(0)
	}()

	if err := server.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
