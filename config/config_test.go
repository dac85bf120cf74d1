package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("STORYCUT_CONFIG_FILE", filepath.Join(t.TempDir(), "nope.toml"))

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	def := Default()
	if cfg.BackendURL != def.BackendURL || cfg.ListenAddr != def.ListenAddr {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
	if cfg.SnapThreshold != 0.5 || cfg.AutosaveDebounceMS != 2000 {
		t.Errorf("tuning defaults = %v/%v, want 0.5/2000", cfg.SnapThreshold, cfg.AutosaveDebounceMS)
	}
}

func TestLoadParsesFileAndFillsUnsetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
backend_url = "http://analysis.internal:9000"
snap_threshold = 0.25
debug = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STORYCUT_CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BackendURL != "http://analysis.internal:9000" {
		t.Errorf("BackendURL = %q", cfg.BackendURL)
	}
	if cfg.SnapThreshold != 0.25 {
		t.Errorf("SnapThreshold = %v, want 0.25", cfg.SnapThreshold)
	}
	if !cfg.Debug {
		t.Error("Debug should be set from the file")
	}
	// Unset fields fall back to defaults.
	if cfg.MpvSocket != Default().MpvSocket || cfg.AutosaveDebounceMS != 2000 {
		t.Errorf("unset fields not defaulted: %+v", cfg)
	}
}

func TestLoadReportsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("backend_url = ["), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STORYCUT_CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("malformed config should fail loudly, not fall back silently")
	}
}
