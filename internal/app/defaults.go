package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths locates the config file and the folio home directory, which
// config.NewConfig derives every other default from. FOLIO_CONFIG_PATH
// and FOLIO_HOME override the XDG locations ~/.config/folio.toml and
// ~/.local/share/folio.
type Paths struct {
	Config string
	Home   string
}

// DefaultPaths resolves Paths from the environment.
func DefaultPaths() (Paths, error) {
	var p Paths
	var err error
	if p.Config, err = envOrHome("FOLIO_CONFIG_PATH", ".config", "folio.toml"); err != nil {
		return Paths{}, err
	}
	if p.Home, err = envOrHome("FOLIO_HOME", ".local", "share", "folio"); err != nil {
		return Paths{}, err
	}
	return p, nil
}

func envOrHome(env string, rel ...string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{home}, rel...)...), nil
}
