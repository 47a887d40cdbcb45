package thermal

import (
	"math"
	"testing"
)

// TestHeatScoreGray verifies the formula on an achromatic pixel: with
// r=g=b the saturation and warm boost vanish and the score collapses to
// luma * (0.5 + 0.5*redDom).
func TestHeatScoreGray(t *testing.T) {
	const v = float32(0.5)
	luma := 0.2126*v + 0.7152*v + 0.0722*v
	redDom := v / (v + v + 1e-4)
	want := luma * 0.5 * (0.5 + 0.5*redDom)

	got := HeatScore(v, v, v)
	if math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("Expected score %v for gray 0.5, got %v", want, got)
	}
}

// TestHeatScoreBlack verifies the degenerate all-zero pixel scores zero.
func TestHeatScoreBlack(t *testing.T) {
	if got := HeatScore(0, 0, 0); got != 0 {
		t.Errorf("Expected score 0 for black, got %v", got)
	}
}

// TestHeatScorePureRed verifies a saturated red pixel clamps to 1: red
// dominance alone pushes the product far past the upper bound.
func TestHeatScorePureRed(t *testing.T) {
	if got := HeatScore(1, 0, 0); got != 1 {
		t.Errorf("Expected score 1 for pure red, got %v", got)
	}
}

// TestHeatScoreRange checks the output stays in [0,1] across a sweep.
func TestHeatScoreRange(t *testing.T) {
	for _, px := range [][3]float32{
		{0, 0, 1}, {0, 1, 0}, {1, 1, 1}, {0.9, 0.1, 0.1}, {0.2, 0.8, 0.4},
	} {
		got := HeatScore(px[0], px[1], px[2])
		if got < 0 || got > 1 {
			t.Errorf("Score for %v out of range: %v", px, got)
		}
	}
}

// TestHeatScoreWarmBoost verifies the boost only fires when red strictly
// dominates both other channels.
func TestHeatScoreWarmBoost(t *testing.T) {
	// Green dominates: no boost, score driven by luma terms only.
	green := HeatScore(0.1, 0.9, 0.1)
	// Red dominates by the same margin: boosted.
	red := HeatScore(0.9, 0.1, 0.1)
	if red <= green {
		t.Errorf("Expected red-dominant pixel (%v) to outscore green-dominant (%v)", red, green)
	}
}
