// Command searchcore is the main entry point for the hybrid search core.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/workfloworchestrator/orchestrator-core-sub001/internal/app"
	"github.com/workfloworchestrator/orchestrator-core-sub001/internal/config"
	"github.com/workfloworchestrator/orchestrator-core-sub001/internal/observe"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/embed"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/embed/ollama"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/embed/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "searchcore: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "searchcore: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("search core starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── OTel providers ──────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "search-core"})
	if err != nil {
		slog.Error("failed to initialise telemetry providers", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Embedding provider ──────────────────────────────────────────────────
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		slog.Error("failed to build embedding provider", "err", err)
		return 1
	}

	// ── Application wiring ───────────────────────────────────────────────────
	application, err := app.New(ctx, cfg, embedder)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("search core ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildEmbedder constructs the embed.Embedder named by cfg.Embedding.Name
// via a name→factory registry, narrowed to the one collaborator the search
// core needs.
func buildEmbedder(cfg *config.Config) (embed.Embedder, error) {
	reg := config.NewRegistry()
	reg.RegisterEmbedder("openai", func(e config.ProviderEntry) (embed.Embedder, error) {
		return openai.New(e.APIKey, e.Model)
	})
	reg.RegisterEmbedder("ollama", func(e config.ProviderEntry) (embed.Embedder, error) {
		baseURL := e.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.New(baseURL, e.Model)
	})

	if cfg.Embedding.Name == "" {
		return nil, fmt.Errorf("embedding.name is required")
	}
	return reg.CreateEmbedder(cfg.Embedding)
}

// ── Logger ───────────────────────────────────────────────────────────────────

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
