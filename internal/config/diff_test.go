package config_test

import (
	"testing"

	"github.com/workfloworchestrator/orchestrator-core-sub001/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server: config.ServerConfig{LogLevel: "info"},
		RRF:    config.RRFConfig{K: 60},
		Index:  config.IndexConfig{ChunkSize: 500},
	}
	d := config.Diff(cfg, cfg)
	if d.LogLevelChanged {
		t.Error("expected LogLevelChanged=false for identical configs")
	}
	if d.RRFChanged {
		t.Error("expected RRFChanged=false for identical configs")
	}
	if d.IndexChanged {
		t.Error("expected IndexChanged=false for identical configs")
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{LogLevel: "info"}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: "debug"}}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != "debug" {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
}

func TestDiff_RRFChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{RRF: config.RRFConfig{K: 60}}
	new := &config.Config{RRF: config.RRFConfig{K: 80}}

	d := config.Diff(old, new)
	if !d.RRFChanged {
		t.Error("expected RRFChanged=true")
	}
	if d.NewRRF.K != 80 {
		t.Errorf("expected NewRRF.K=80, got %d", d.NewRRF.K)
	}
}

func TestDiff_IndexChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Index: config.IndexConfig{ChunkSize: 500}}
	new := &config.Config{Index: config.IndexConfig{ChunkSize: 1000}}

	d := config.Diff(old, new)
	if !d.IndexChanged {
		t.Error("expected IndexChanged=true")
	}
	if d.NewIndex.ChunkSize != 1000 {
		t.Errorf("expected NewIndex.ChunkSize=1000, got %d", d.NewIndex.ChunkSize)
	}
}

func TestDiff_MultipleChanges(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Server: config.ServerConfig{LogLevel: "info"},
		RRF:    config.RRFConfig{K: 60},
	}
	new := &config.Config{
		Server: config.ServerConfig{LogLevel: "warn"},
		RRF:    config.RRFConfig{K: 80},
	}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if !d.RRFChanged {
		t.Error("expected RRFChanged=true")
	}
}
