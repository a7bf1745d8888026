// Package storage holds the persisted collaborator files: config,
// history, subscriptions, and the XDG path layout they live under.
package storage

import (
	"os"
	"path/filepath"
)

const appName = "ytchill"

// ConfigDir returns the app config directory, honoring XDG_CONFIG_HOME.
func ConfigDir() string {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, appName)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// CacheDir returns the app cache directory, honoring XDG_CACHE_HOME.
func CacheDir() string {
	if base := os.Getenv("XDG_CACHE_HOME"); base != "" {
		return filepath.Join(base, appName)
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(os.Getenv("HOME"), ".cache")
	}
	return filepath.Join(base, appName)
}

// StateDir returns the app state directory, honoring XDG_STATE_HOME.
func StateDir() string {
	if base := os.Getenv("XDG_STATE_HOME"); base != "" {
		return filepath.Join(base, appName)
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "state", appName)
}

// ConfigPath returns the config file location.
func ConfigPath() string { return filepath.Join(ConfigDir(), "config.json") }

// HistoryPath returns the watch history file location.
func HistoryPath() string { return filepath.Join(CacheDir(), "history.json") }

// SubscriptionsPath returns the subscriptions file location.
func SubscriptionsPath() string { return filepath.Join(ConfigDir(), "subscriptions.txt") }

// LogPath returns the debug log file location.
func LogPath() string { return filepath.Join(StateDir(), appName+".log") }

// EnsureAppDirs creates the directories the app writes into.
func EnsureAppDirs() error {
	for _, dir := range []string{ConfigDir(), CacheDir(), StateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
