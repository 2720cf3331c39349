package toml_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/tether"
	"github.com/fwojciec/tether/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()
	home := "/home/dev"

	t.Run("missing file yields defaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := toml.Load(filepath.Join(t.TempDir(), "absent.toml"), home)
		require.NoError(t, err)
		assert.Equal(t, tether.DefaultConfig(home), cfg)
		assert.Equal(t, "/home/dev/.tether/sessions", cfg.StorageDir)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `
storage_dir = "~/sessions"
backend = "sqlite"
model = "claude-sonnet-4-5"
permission_mode = "acceptEdits"
allowed_tools = ["Read", "Grep"]
max_turns = 4
cli_path = "~/bin/claude"
log_level = "debug"
`)
		cfg, err := toml.Load(path, home)
		require.NoError(t, err)
		assert.Equal(t, tether.Config{
			StorageDir:     "/home/dev/sessions",
			Backend:        tether.BackendSQLite,
			Model:          "claude-sonnet-4-5",
			PermissionMode: tether.PermissionAcceptEdits,
			AllowedTools:   []string{"Read", "Grep"},
			MaxTurns:       4,
			CLIPath:        "/home/dev/bin/claude",
			LogLevel:       "debug",
			LogFormat:      "text",
		}, cfg)
	})

	t.Run("syntax error", func(t *testing.T) {
		t.Parallel()
		_, err := toml.Load(writeConfig(t, `model = `), home)
		assert.ErrorContains(t, err, "parse config")
	})

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()
		_, err := toml.Load(writeConfig(t, `modle = "x"`), home)
		assert.ErrorIs(t, err, tether.ErrValidation)
		assert.ErrorContains(t, err, "modle")
	})

	t.Run("invalid values", func(t *testing.T) {
		t.Parallel()
		for _, content := range []string{
			`backend = "postgres"`,
			`permission_mode = "yolo"`,
			`log_level = "loud"`,
			`log_format = "xml"`,
			`max_turns = -1`,
		} {
			_, err := toml.Load(writeConfig(t, content), home)
			assert.ErrorIs(t, err, tether.ErrValidation, content)
		}
	})
}

func TestExpandHome(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/h", toml.ExpandHome("~", "/h"))
	assert.Equal(t, "/h/x/y", toml.ExpandHome("~/x/y", "/h"))
	assert.Equal(t, "/abs", toml.ExpandHome("/abs", "/h"))
	assert.Equal(t, "~user/x", toml.ExpandHome("~user/x", "/h"))
	assert.Equal(t, "", toml.ExpandHome("", "/h"))
}

func TestConfig_Options(t *testing.T) {
	t.Parallel()
	cfg := tether.Config{Model: "m", AllowedTools: []string{"Read"}, MaxTurns: 2, CLIPath: "/bin/claude"}
	opts := cfg.Options()
	assert.Equal(t, "m", opts.Model)
	assert.Equal(t, 2, opts.MaxTurns)
	assert.Equal(t, "/bin/claude", opts.CLIPath)
	opts.AllowedTools[0] = "Bash"
	assert.Equal(t, "Read", cfg.AllowedTools[0])
}
