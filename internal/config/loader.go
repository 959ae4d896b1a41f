package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/workfloworchestrator/orchestrator-core-sub001/internal/mcp"
)

// validLogLevels lists the recognised server.log_level values.
var validLogLevels = []string{"debug", "info", "warn", "error"}

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"embedding": {"openai", "ollama"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !slices.Contains(validLogLevels, cfg.Server.LogLevel) {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}

	// Database
	if cfg.Database.PostgresDSN == "" {
		errs = append(errs, errors.New("database.postgres_dsn is required"))
	}
	if cfg.Database.EmbeddingDimensions <= 0 {
		errs = append(errs, fmt.Errorf("database.embedding_dimensions must be positive, got %d", cfg.Database.EmbeddingDimensions))
	}

	// Embedding provider
	validateProviderName("embedding", cfg.Embedding.Name)
	if cfg.Embedding.Name == "" {
		errs = append(errs, errors.New("embedding.name is required"))
	}

	// Index tuning
	if cfg.Index.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("index.chunk_size must be non-negative, got %d", cfg.Index.ChunkSize))
	}
	if cfg.Index.MaxConcurrentChunks < 0 {
		errs = append(errs, fmt.Errorf("index.max_concurrent_chunks must be non-negative, got %d", cfg.Index.MaxConcurrentChunks))
	}

	// RRF tuning
	if cfg.RRF.K < 0 {
		errs = append(errs, fmt.Errorf("rrf.k must be non-negative, got %d", cfg.RRF.K))
	}
	if cfg.RRF.MarginFactor < 0 {
		errs = append(errs, fmt.Errorf("rrf.margin_factor must be non-negative, got %.4f", cfg.RRF.MarginFactor))
	}
	if cfg.RRF.PerfectThreshold < 0 || cfg.RRF.PerfectThreshold > 1 {
		errs = append(errs, fmt.Errorf("rrf.perfect_threshold %.4f is out of range [0, 1]", cfg.RRF.PerfectThreshold))
	}

	// MCP servers
	for i, srv := range cfg.MCP.Servers {
		prefix := fmt.Sprintf("mcp.servers[%d]", i)
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		if srv.Transport != "" && !srv.Transport.IsValid() {
			errs = append(errs, fmt.Errorf("%s.transport %q is invalid; valid values: stdio, streamable-http", prefix, srv.Transport))
		}
		if srv.Transport == mcp.TransportStdio && srv.Command == "" {
			errs = append(errs, fmt.Errorf("%s.command is required when transport is stdio", prefix))
		}
		if srv.Transport == mcp.TransportStreamableHTTP && srv.URL == "" {
			errs = append(errs, fmt.Errorf("%s.url is required when transport is streamable-http", prefix))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
