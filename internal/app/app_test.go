package app_test

import (
	"context"
	"testing"

	"github.com/workfloworchestrator/orchestrator-core-sub001/internal/app"
	"github.com/workfloworchestrator/orchestrator-core-sub001/internal/config"
	mcpmock "github.com/workfloworchestrator/orchestrator-core-sub001/internal/mcp/mock"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/postgres"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			LogLevel: "info",
		},
		Database: config.DatabaseConfig{
			EmbeddingDimensions: 8,
		},
	}
}

func TestNew_WiresSubsystemsFromInjectedOptions(t *testing.T) {
	host := &mcpmock.Host{}
	store := &postgres.Store{}

	a, err := app.New(context.Background(), testConfig(), nil,
		app.WithStore(store),
		app.WithMCPHost(host),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if a.Store() != store {
		t.Error("Store() did not return the injected store")
	}
	if a.Engine() == nil {
		t.Error("Engine() is nil after New")
	}
	if a.MCPHost() != host {
		t.Error("MCPHost() did not return the injected host")
	}
	if host.CallCount("Calibrate") != 1 {
		t.Errorf("Calibrate called %d times, want 1", host.CallCount("Calibrate"))
	}
}

func TestNew_RequiresDSNWhenNoStoreInjected(t *testing.T) {
	_, err := app.New(context.Background(), testConfig(), nil)
	if err == nil {
		t.Fatal("expected an error when no store is injected and postgres_dsn is empty")
	}
}

func TestShutdown_IsIdempotent(t *testing.T) {
	host := &mcpmock.Host{}
	store := &postgres.Store{}

	a, err := app.New(context.Background(), testConfig(), nil,
		app.WithStore(store),
		app.WithMCPHost(host),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	if host.CallCount("Close") != 1 {
		t.Errorf("Close called %d times, want 1 (Shutdown must be idempotent)", host.CallCount("Close"))
	}
}

func TestNew_RegisterMCPServersFromConfig(t *testing.T) {
	host := &mcpmock.Host{}
	store := &postgres.Store{}

	cfg := testConfig()
	cfg.MCP.Servers = []config.MCPServerConfig{
		{Name: "external-tools", Transport: "streamable-http", URL: "https://tools.example.com/mcp"},
	}

	_, err := app.New(context.Background(), cfg, nil,
		app.WithStore(store),
		app.WithMCPHost(host),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if host.CallCount("RegisterServer") != 1 {
		t.Errorf("RegisterServer called %d times, want 1", host.CallCount("RegisterServer"))
	}
}
