package storage

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// Config is the user configuration, merged over defaults at load time.
type Config struct {
	Limit             int    `json:"limit"`
	VideoMode         bool   `json:"video_mode"`
	DownloadDir       string `json:"download_dir"`
	MaxHistoryEntries int    `json:"max_history_entries"`
	Editor            string `json:"editor"`
	Player            string `json:"player"`
	Selector          string `json:"selector"`
}

// DefaultConfig returns the built-in defaults. Audio-only playback is
// the default mode.
func DefaultConfig() Config {
	return Config{
		Limit:             15,
		MaxHistoryEntries: 100,
		Editor:            "nvim",
		Player:            "mpv",
		Selector:          "fzf",
	}
}

// LoadConfig reads the config file at path, merging user values over
// defaults. A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.DownloadDir = defaultDownloadDir()
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}

	if cfg.Limit <= 0 {
		cfg.Limit = DefaultConfig().Limit
	}
	if cfg.MaxHistoryEntries <= 0 {
		cfg.MaxHistoryEntries = DefaultConfig().MaxHistoryEntries
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = defaultDownloadDir()
	}
	return cfg, nil
}

// SaveConfig writes the config file atomically.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, append(raw, '\n'), 0o644)
}

// EditConfig opens the config file in the configured editor, creating it
// with defaults first when absent.
func EditConfig(path, editor string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := SaveConfig(path, DefaultConfig()); err != nil {
			return err
		}
	}
	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func defaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}
