// Package toml loads tether.Config from a TOML file.
package toml

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fwojciec/tether"
)

// DefaultPath returns the config file location under home.
func DefaultPath(home string) string {
	return filepath.Join(home, ".config", "tether", "config.toml")
}

// Load decodes the file at path over tether.DefaultConfig(home). A missing
// file yields the defaults. Paths starting with "~/" are expanded against
// home, and keys the file sets but Config does not know are rejected.
func Load(path, home string) (tether.Config, error) {
	cfg := tether.DefaultConfig(home)
	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = tether.DefaultConfig(home)
	case err != nil:
		return tether.Config{}, fmt.Errorf("parse config %s: %w", path, err)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return tether.Config{}, fmt.Errorf("config %s: unknown keys %s: %w",
				path, strings.Join(keys, ", "), tether.ErrValidation)
		}
	}
	cfg.StorageDir = ExpandHome(cfg.StorageDir, home)
	cfg.CLIPath = ExpandHome(cfg.CLIPath, home)
	if err := cfg.Validate(); err != nil {
		return tether.Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ExpandHome replaces a leading "~/" in path with home.
func ExpandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
