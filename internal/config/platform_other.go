//go:build !darwin

package config

import (
	"os"
	"path/filepath"
)

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(append([]string{home}, fallback...)...)
	}
	return "."
}

func defaultDataDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "mentormirror")
}

// newPlatformBackend returns $XDG_CONFIG_HOME/mentormirror/config.json.
func newPlatformBackend() ConfigBackend {
	return newFileBackend(filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "mentormirror", "config.json"))
}

// newPlatformSecrets returns $XDG_DATA_HOME/mentormirror/secrets.json.
func newPlatformSecrets() secretStore {
	return newFileSecrets(filepath.Join(defaultDataDir(), "secrets.json"))
}
