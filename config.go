package tether

import (
	"fmt"
	"path/filepath"
	"slices"
)

// Storage backends selectable in Config.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config is the user configuration for the tether command. Zero fields
// fall back to the agent's own defaults.
type Config struct {
	// StorageDir holds the session store: one JSON file per session, or
	// the SQLite database file sessions.db.
	StorageDir string `toml:"storage_dir"`
	Backend    string `toml:"backend"`

	Model              string         `toml:"model"`
	PermissionMode     PermissionMode `toml:"permission_mode"`
	AllowedTools       []string       `toml:"allowed_tools"`
	SystemPrompt       string         `toml:"system_prompt"`
	AppendSystemPrompt string         `toml:"append_system_prompt"`
	MaxTurns           int            `toml:"max_turns"`
	CLIPath            string         `toml:"cli_path"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig(home string) Config {
	return Config{
		StorageDir: filepath.Join(home, ".tether", "sessions"),
		Backend:    BackendJSON,
		LogLevel:   "warn",
		LogFormat:  "text",
	}
}

// Options returns the connection options described by c.
func (c Config) Options() Options {
	return Options{
		Model:              c.Model,
		PermissionMode:     c.PermissionMode,
		AllowedTools:       slices.Clone(c.AllowedTools),
		SystemPrompt:       c.SystemPrompt,
		AppendSystemPrompt: c.AppendSystemPrompt,
		MaxTurns:           c.MaxTurns,
		CLIPath:            c.CLIPath,
	}
}

// Validate checks c for values no component accepts.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q: %w", c.Backend, ErrValidation)
	}
	if c.StorageDir == "" {
		return fmt.Errorf("storage_dir is empty: %w", ErrValidation)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q: %w", c.LogLevel, ErrValidation)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q: %w", c.LogFormat, ErrValidation)
	}
	return c.Options().Validate()
}
