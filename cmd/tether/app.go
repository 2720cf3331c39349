package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fwojciec/tether"
	tetherjson "github.com/fwojciec/tether/json"
	"github.com/fwojciec/tether/sqlite"
	"github.com/fwojciec/tether/toml"
	"github.com/spf13/cobra"
)

// sqliteFile is the database file name inside the storage directory.
const sqliteFile = "sessions.db"

// app holds what every subcommand needs once flags and config are resolved.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	storageDir string
	backend    string
	logLevel   string

	cfg    tether.Config
	logger *slog.Logger
	store  tether.Store
	close  func() error
}

// execute runs the command line args and releases the store afterwards,
// whether or not the command succeeded.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if cerr := a.teardown(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "tether",
		Short:         "Persistent sessions for the Claude Code CLI",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "config file (default ~/.config/tether/config.toml)")
	f.StringVar(&a.storageDir, "storage-dir", "", "session storage directory (overrides config)")
	f.StringVar(&a.backend, "backend", "", "storage backend: json or sqlite (overrides config)")
	f.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	root.AddCommand(
		askCmd(a),
		chatCmd(a),
		listCmd(a),
		showCmd(a),
		deleteCmd(a),
		browseCmd(a),
	)
	return root
}

// setup loads the config, applies flag overrides and opens the store.
func (a *app) setup() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("locate home directory: %w", err)
	}
	path := a.configPath
	if path == "" {
		path = toml.DefaultPath(home)
	}
	cfg, err := toml.Load(path, home)
	if err != nil {
		return err
	}
	if a.storageDir != "" {
		cfg.StorageDir = toml.ExpandHome(a.storageDir, home)
	}
	if a.backend != "" {
		cfg.Backend = a.backend
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(a.stderr, cfg.LogLevel, cfg.LogFormat)

	store, closeFn, err := openStore(cfg, a.logger)
	if err != nil {
		return err
	}
	a.store = store
	a.close = closeFn
	a.logger.Debug("store opened", "backend", cfg.Backend, "dir", cfg.StorageDir)
	return nil
}

func (a *app) teardown() error {
	if a.close == nil {
		return nil
	}
	err := a.close()
	a.close = nil
	return err
}

func openStore(cfg tether.Config, logger *slog.Logger) (tether.Store, func() error, error) {
	switch cfg.Backend {
	case tether.BackendSQLite:
		s, err := sqlite.Open(filepath.Join(cfg.StorageDir, sqliteFile), sqlite.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("open session database: %w", err)
		}
		return s, s.Close, nil
	case tether.BackendJSON:
		s, err := tetherjson.NewFileStore(cfg.StorageDir, tetherjson.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("open session directory: %w", err)
		}
		return s, func() error { return nil }, nil
	default:
		return nil, nil, errors.New("unknown backend " + cfg.Backend)
	}
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
