package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked: server log level
// and the RRF/index tuning knobs. Database, embedding provider, and MCP
// server changes require a restart and are not diffed here.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     string

	RRFChanged bool
	NewRRF     RRFConfig

	IndexChanged bool
	NewIndex     IndexConfig
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.RRF != new.RRF {
		d.RRFChanged = true
		d.NewRRF = new.RRF
	}

	if old.Index != new.Index {
		d.IndexChanged = true
		d.NewIndex = new.Index
	}

	return d
}
