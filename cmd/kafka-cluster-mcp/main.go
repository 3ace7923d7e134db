package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mark3labs/mcp-go/server"
	oauth "github.com/tuannvm/oauth-mcp-proxy"

	"github.com/nipunap/vscode-kafka-client-sub001/internal/config"
	"github.com/nipunap/vscode-kafka-client-sub001/internal/connection"
	"github.com/nipunap/vscode-kafka-client-sub001/internal/manager"
	"github.com/nipunap/vscode-kafka-client-sub001/internal/mcp"
	"github.com/nipunap/vscode-kafka-client-sub001/internal/pool"
)

// Version is set during build via -X ldflags
var Version = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	store := connection.NewFileStore(cfg.ClusterConfigPath)
	secrets := connection.NewMemorySecretStore()
	mgr := manager.New(store, secrets, manager.WithPool(pool.New(
		pool.WithIdleThreshold(cfg.PoolIdleThreshold),
		pool.WithSweepInterval(cfg.PoolSweepInterval),
	)))
	defer mgr.DisposeAll()

	// Restore persisted clusters; per-cluster failures are reported together
	// and never block startup.
	failures, err := mgr.LoadConfiguration(ctx)
	if err != nil {
		slog.Error("Failed to load cluster configuration", "error", err)
		os.Exit(1)
	}
	for _, failure := range failures {
		slog.Warn("Cluster could not be restored from configuration",
			"cluster", failure.Cluster, "code", failure.Code, "error", failure.Err)
	}

	var mux *http.ServeMux
	var oauthOption server.ServerOption
	var oauthServer *oauth.Server
	if cfg.Transport == "http" {
		mux = http.NewServeMux()
		oauthOption, oauthServer, err = mcp.CreateOAuthOption(cfg, mux)
		if err != nil {
			slog.Error("Failed to create OAuth option", "error", err)
			os.Exit(1)
		}
	}

	var s *server.MCPServer
	if oauthOption != nil {
		s = mcp.NewServer("kafka-cluster-mcp", Version, oauthOption)
	} else {
		s = mcp.NewServer("kafka-cluster-mcp", Version)
	}

	mcp.RegisterTools(s, mgr)
	mcp.RegisterResources(s, mgr)
	mcp.RegisterPrompts(s, mgr)

	if oauthServer != nil {
		oauthServer.LogStartup(false)
	}

	slog.Info("Starting kafka-cluster-mcp", "version", Version, "transport", cfg.Transport, "clusters", len(mgr.GetClusters()))
	if err := mcp.Start(ctx, s, cfg, mux); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	slog.Info("Server shutdown complete")
}

func setupLogging(cfg config.Config) {
	var handler slog.Handler
	switch cfg.LogFormat {
	case "text":
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      cfg.LogLevel,
			TimeFormat: time.Kitchen,
		})
	default:
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})
	}
	slog.SetDefault(slog.New(handler))
}
