package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsValid(t *testing.T) {
	cfg := Default()
	if cfg.Viewer.EstimateHeight <= 0 {
		t.Error("default estimate height must be positive")
	}
	if cfg.Viewer.WidthFraction <= 0 || cfg.Viewer.WidthFraction > 1 {
		t.Errorf("default width fraction = %v", cfg.Viewer.WidthFraction)
	}
	if cfg.Fetch.Addr == "" {
		t.Error("default fetch address missing")
	}
}

func TestDebounceDurations(t *testing.T) {
	lib := LibraryConfig{Debounce: "2s"}
	if got := lib.DebounceDuration(); got != 2*time.Second {
		t.Errorf("library debounce = %v", got)
	}
	lib.Debounce = "bogus"
	if got := lib.DebounceDuration(); got != 500*time.Millisecond {
		t.Errorf("invalid library debounce = %v, want default", got)
	}

	v := ViewerConfig{SaveDebounce: "250ms"}
	if got := v.SaveDebounceDuration(); got != 250*time.Millisecond {
		t.Errorf("save debounce = %v", got)
	}
	v.SaveDebounce = ""
	if got := v.SaveDebounceDuration(); got != 500*time.Millisecond {
		t.Errorf("empty save debounce = %v, want default", got)
	}
}

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Viewer.EstimateHeight != 800 {
		t.Errorf("estimate = %d", cfg.Viewer.EstimateHeight)
	}
	if _, err := os.Stat(filepath.Join(home, ".yomu", "config.toml")); err != nil {
		t.Errorf("defaults not persisted: %v", err)
	}
}

func TestLoadMergesPartialFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".yomu")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	partial := "[viewer]\noverscan = 5\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(partial), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Viewer.Overscan != 5 {
		t.Errorf("overscan = %d, want the file's value", cfg.Viewer.Overscan)
	}
	if cfg.Viewer.EstimateHeight != 800 {
		t.Errorf("estimate = %d, want the default for a missing key", cfg.Viewer.EstimateHeight)
	}
}

func TestLoadClampsInvalidValues(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".yomu")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	bad := "[viewer]\nestimate_height = -10\nwidth_fraction = 4.0\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Viewer.EstimateHeight != 800 || cfg.Viewer.WidthFraction != 0.9 {
		t.Errorf("invalid values not corrected: %+v", cfg.Viewer)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := Default()
	cfg.Library.Root = "/data/manga"
	cfg.Viewer.Overscan = 7
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Library.Root != "/data/manga" || got.Viewer.Overscan != 7 {
		t.Errorf("round trip = %+v", got)
	}
}
