package calibration

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// TestGenericMapping verifies the ambient-to-max branch at the endpoints
// and midpoint with gamma 1.
func TestGenericMapping(t *testing.T) {
	m := NewTempMapper(nil, 22, 120, 1)
	if m.Calibrated() {
		t.Errorf("Expected generic mode without params")
	}
	if got := m.Temp(0); got != 22 {
		t.Errorf("Temp(0): expected 22, got %v", got)
	}
	if got := m.Temp(1); got != 120 {
		t.Errorf("Temp(1): expected 120, got %v", got)
	}
	if got := m.Temp(0.5); got != 71 {
		t.Errorf("Temp(0.5): expected 71, got %v", got)
	}
}

// TestAffineMapping verifies the calibrated branch overrides the generic
// one entirely.
func TestAffineMapping(t *testing.T) {
	m := NewTempMapper(&Params{Gain: 100, Offset: 20, Version: "v3"}, 22, 120, 1)
	if !m.Calibrated() {
		t.Errorf("Expected calibrated mode")
	}
	if m.Version() != "v3" {
		t.Errorf("Expected version v3, got %q", m.Version())
	}
	if got := m.Temp(0); got != 20 {
		t.Errorf("Temp(0): expected offset 20, got %v", got)
	}
	if got := m.Temp(1); got != 120 {
		t.Errorf("Temp(1): expected 120, got %v", got)
	}
}

// TestGammaShaping verifies gamma applies to the score before either
// branch's affine map.
func TestGammaShaping(t *testing.T) {
	m := NewTempMapper(nil, 0, 100, 2)
	want := 100 * math.Pow(0.5, 2)
	if got := m.Temp(0.5); math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

// TestTempClampsScore verifies out-of-range scores are clamped before
// mapping.
func TestTempClampsScore(t *testing.T) {
	m := NewTempMapper(nil, 22, 120, 1)
	if got := m.Temp(-3); got != 22 {
		t.Errorf("Temp(-3): expected 22, got %v", got)
	}
	if got := m.Temp(7); got != 120 {
		t.Errorf("Temp(7): expected 120, got %v", got)
	}
}

// TestLoadParams round-trips a calibration blob file.
func TestLoadParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calib.json")
	blob := `{"gain": 98.5, "offset": 21.5, "version": "bench-2"}`
	if err := os.WriteFile(path, []byte(blob), 0644); err != nil {
		t.Fatalf("cannot write fixture: %v", err)
	}

	p, err := LoadParams(path)
	if err != nil {
		t.Fatalf("LoadParams failed: %v", err)
	}
	if p.Gain != 98.5 || p.Offset != 21.5 || p.Version != "bench-2" {
		t.Errorf("Unexpected params: %+v", p)
	}
}

// TestLoadParamsMissing verifies a missing blob reports an error the
// caller can degrade on.
func TestLoadParamsMissing(t *testing.T) {
	if _, err := LoadParams(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Errorf("Expected error for missing calibration file")
	}
}
