// Package config loads the storycut configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all user-tunable settings.
type Config struct {
	// BackendURL is the base URL of the analysis backend used for
	// scene metadata and trim persistence.
	BackendURL string `toml:"backend_url"`
	// MpvSocket is the Unix socket path used for mpv IPC.
	MpvSocket string `toml:"mpv_socket"`
	// ListenAddr is the address of the HTTP listener that receives
	// story-graph events.
	ListenAddr string `toml:"listen_addr"`
	// DataDir is the directory for the sqlite database and thumbnails.
	DataDir string `toml:"data_dir"`
	// AutosaveDebounceMS is the quiet period after the last edit before
	// the timeline is written to disk.
	AutosaveDebounceMS int `toml:"autosave_debounce_ms"`
	// SnapThreshold is the magnetic snapping distance in seconds.
	SnapThreshold float64 `toml:"snap_threshold"`
	// Debug enables debug logging.
	Debug bool `toml:"debug"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		BackendURL:         "http://localhost:8000",
		MpvSocket:          "/tmp/storycut-mpv.sock",
		ListenAddr:         "127.0.0.1:7787",
		AutosaveDebounceMS: 2000,
		SnapThreshold:      0.5,
	}
}

// Load reads the config file, falling back to defaults when it is absent.
// Unset fields are filled with their default values.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	def := Default()
	if cfg.BackendURL == "" {
		cfg.BackendURL = def.BackendURL
	}
	if cfg.MpvSocket == "" {
		cfg.MpvSocket = def.MpvSocket
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = def.ListenAddr
	}
	if cfg.AutosaveDebounceMS <= 0 {
		cfg.AutosaveDebounceMS = def.AutosaveDebounceMS
	}
	if cfg.SnapThreshold <= 0 {
		cfg.SnapThreshold = def.SnapThreshold
	}
	return cfg, nil
}

// configPath returns the path to config.toml, honoring env overrides.
func configPath() (string, error) {
	if v := os.Getenv("STORYCUT_CONFIG_FILE"); v != "" {
		return v, nil
	}
	if v := os.Getenv("STORYCUT_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "config.toml"), nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "storycut", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "storycut", "config.toml"), nil
}
