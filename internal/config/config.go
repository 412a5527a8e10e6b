// Package config provides application configuration management for yomu.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the yomu configuration.
type Config struct {
	Library LibraryConfig `toml:"library"`
	Viewer  ViewerConfig  `toml:"viewer"`
	Fetch   FetchConfig   `toml:"fetch"`
	LogFile string        `toml:"log_file,omitempty"`
}

// LibraryConfig holds folder discovery settings.
type LibraryConfig struct {
	Root     string `toml:"root"`     // Explorer root directory
	Watch    bool   `toml:"watch"`    // Refresh the open folder on file changes
	Debounce string `toml:"debounce"` // Watch debounce duration (e.g. "500ms")
}

// ViewerConfig holds rendering and scrolling settings.
type ViewerConfig struct {
	EstimateHeight int     `toml:"estimate_height"` // Assumed pixel height of unmeasured pages
	Overscan       int     `toml:"overscan"`        // Extra pages rendered on each side of the viewport
	WidthFraction  float64 `toml:"width_fraction"`  // Page width as a fraction of the viewport
	SaveDebounce   string  `toml:"save_debounce"`   // Reading position write debounce
}

// FetchConfig holds the companion download queue settings.
type FetchConfig struct {
	Addr     string `toml:"addr"`     // Queue API listen address
	Parallel int    `toml:"parallel"` // Concurrent page downloads per job
}

// DebounceDuration returns the parsed watch debounce (default: 500ms).
func (c LibraryConfig) DebounceDuration() time.Duration {
	if c.Debounce != "" {
		if d, err := time.ParseDuration(c.Debounce); err == nil {
			return d
		}
	}
	return 500 * time.Millisecond
}

// SaveDebounceDuration returns the parsed position-save debounce
// (default: 500ms).
func (c ViewerConfig) SaveDebounceDuration() time.Duration {
	if c.SaveDebounce != "" {
		if d, err := time.ParseDuration(c.SaveDebounce); err == nil {
			return d
		}
	}
	return 500 * time.Millisecond
}

// Dir returns the path to the .yomu directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".yomu"), nil
}

// Path returns the path to the main config file.
func Path() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// StatePath returns the path to the state database.
func StatePath() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "state.duckdb"), nil
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Library: LibraryConfig{
			Root:  filepath.Join(home, "comics"),
			Watch: true,
		},
		Viewer: ViewerConfig{
			EstimateHeight: 800,
			Overscan:       3,
			WidthFraction:  0.9,
		},
		Fetch: FetchConfig{
			Addr:     "127.0.0.1:8780",
			Parallel: 4,
		},
	}
}

// Load loads the configuration from ~/.yomu/config.toml. A missing file
// yields defaults, which are persisted so the user has a file to edit.
func Load() (Config, error) {
	configPath, err := Path()
	if err != nil {
		return Config{}, err
	}

	// Start from defaults so missing keys keep working values.
	cfg := Default()
	_, err = toml.DecodeFile(configPath, &cfg)
	if os.IsNotExist(err) {
		if saveErr := Save(cfg); saveErr != nil {
			return cfg, nil // return defaults even if save fails
		}
		return cfg, nil
	}
	if err != nil {
		return Config{}, err
	}

	if cfg.Viewer.EstimateHeight <= 0 {
		cfg.Viewer.EstimateHeight = 800
	}
	if cfg.Viewer.Overscan < 0 {
		cfg.Viewer.Overscan = 3
	}
	if cfg.Viewer.WidthFraction <= 0 || cfg.Viewer.WidthFraction > 1 {
		cfg.Viewer.WidthFraction = 0.9
	}
	return cfg, nil
}

// Save writes the configuration to ~/.yomu/config.toml.
func Save(cfg Config) error {
	configPath, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}
	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
