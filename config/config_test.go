package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaults verifies the stock knobs match the documented defaults.
func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.PLow != 0.80 || cfg.PHigh != 0.98 {
		t.Errorf("Unexpected default percentiles: (%v, %v)", cfg.PLow, cfg.PHigh)
	}
	if cfg.Gamma != 1.2 || cfg.AlphaMax != 0.6 {
		t.Errorf("Unexpected default gamma/alpha: (%v, %v)", cfg.Gamma, cfg.AlphaMax)
	}
	if cfg.AmbientC != 22 || cfg.MaxC != 120 {
		t.Errorf("Unexpected default temperature range: (%v, %v)", cfg.AmbientC, cfg.MaxC)
	}
}

// TestLoadMissingFile verifies a missing config path yields defaults, not
// an error.
func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PLow != 0.80 {
		t.Errorf("Expected defaults for missing file")
	}
}

// TestLoadYAMLOverrides verifies file values override defaults.
func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	doc := "pLow: 0.7\npHigh: 0.95\ngamma: 2.0\nstat: max\ndualPanel: true\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("cannot write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PLow != 0.7 || cfg.PHigh != 0.95 || cfg.Gamma != 2.0 {
		t.Errorf("YAML values not applied: %+v", cfg)
	}
	if cfg.Stat != "max" || !cfg.DualPanel {
		t.Errorf("YAML values not applied: %+v", cfg)
	}
	// Untouched keys keep their defaults.
	if cfg.AmbientC != 22 {
		t.Errorf("Expected default ambient, got %v", cfg.AmbientC)
	}
}

// TestNormalizeCorrects verifies every malformed knob is locally corrected
// rather than rejected.
func TestNormalizeCorrects(t *testing.T) {
	cfg := Default()
	cfg.PLow = 0.95
	cfg.PHigh = 0.2
	cfg.Gamma = 99
	cfg.AlphaMax = 2
	cfg.EMAAlpha = -0.5
	cfg.Stat = "median"
	cfg.Frames = 0
	cfg.MaskPoll = -1

	cfg.Normalize()

	if cfg.PLow != 0.2 || cfg.PHigh != 0.95 {
		t.Errorf("Expected swapped percentiles, got (%v, %v)", cfg.PLow, cfg.PHigh)
	}
	if cfg.Gamma != 6.0 {
		t.Errorf("Expected gamma clamped to 6, got %v", cfg.Gamma)
	}
	if cfg.AlphaMax != 1 {
		t.Errorf("Expected alpha clamped to 1, got %v", cfg.AlphaMax)
	}
	if cfg.EMAAlpha != 1 {
		t.Errorf("Expected EMA alpha corrected to 1, got %v", cfg.EMAAlpha)
	}
	if cfg.Stat != "avg" {
		t.Errorf("Expected unknown stat to fall back to avg, got %q", cfg.Stat)
	}
	if cfg.Frames != 1 || cfg.MaskPoll != 1 {
		t.Errorf("Expected frames/maskPoll floors, got (%d, %d)", cfg.Frames, cfg.MaskPoll)
	}
}

// TestSettingsConversion verifies the pipeline snapshot carries the video
// mode flag through.
func TestSettingsConversion(t *testing.T) {
	cfg := Default()
	cfg.EMAAlpha = 0.3
	s := cfg.Settings(true)
	if !s.UseEMA || s.EMAAlpha != 0.3 {
		t.Errorf("Expected EMA settings carried through, got %+v", s)
	}
}
