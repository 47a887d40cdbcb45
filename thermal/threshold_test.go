package thermal

import "testing"

// TestPercentileExactIndices verifies the round((n-1)*p) index policy on
// the canonical five-value input.
func TestPercentileExactIndices(t *testing.T) {
	values := []float32{5, 3, 1, 4, 2} // unsorted on purpose
	for _, tc := range []struct {
		p    float64
		want float32
	}{
		{0.0, 1},
		{0.5, 3},
		{1.0, 5},
	} {
		if got := Percentile(values, tc.p); got != tc.want {
			t.Errorf("percentile(%v): expected %v, got %v", tc.p, tc.want, got)
		}
	}
}

// TestPercentileEmptySentinel verifies empty input returns the 1.0
// sentinel instead of faulting.
func TestPercentileEmptySentinel(t *testing.T) {
	if got := Percentile(nil, 0.5); got != 1.0 {
		t.Errorf("Expected sentinel 1.0 for empty input, got %v", got)
	}
}

// TestThresholdsShareOneSort verifies Thresholds agrees with Percentile
// for both cutoffs.
func TestThresholdsShareOneSort(t *testing.T) {
	r := rasterFrom(t, 5, 1, []float32{1, 2, 3, 4, 5})
	lo, hi := Thresholds(r, 0.0, 1.0)
	if lo != 1 || hi != 5 {
		t.Errorf("Expected (1,5), got (%v,%v)", lo, hi)
	}
}

// TestNormalizePercentilesSwap verifies inverted pairs are swapped.
func TestNormalizePercentilesSwap(t *testing.T) {
	lo, hi := NormalizePercentiles(0.95, 0.2)
	if lo != 0.2 || hi != 0.95 {
		t.Errorf("Expected (0.2, 0.95), got (%v, %v)", lo, hi)
	}
}

// TestNormalizePercentilesWiden verifies equal pairs widen symmetrically
// and stay within [0, 0.999].
func TestNormalizePercentilesWiden(t *testing.T) {
	lo, hi := NormalizePercentiles(0.9, 0.9)
	if hi <= lo {
		t.Errorf("Expected pHigh > pLow, got (%v, %v)", lo, hi)
	}
	if lo < 0 || hi > 0.999 {
		t.Errorf("Result out of [0, 0.999]: (%v, %v)", lo, hi)
	}

	// Equal at the upper clamp still produces a window.
	lo, hi = NormalizePercentiles(0.999, 0.999)
	if hi <= lo || hi > 0.999 {
		t.Errorf("Expected widened window below 0.999, got (%v, %v)", lo, hi)
	}
}

// TestNormalizePercentilesClamp verifies out-of-range input is pulled into
// [0, 0.999] rather than rejected.
func TestNormalizePercentilesClamp(t *testing.T) {
	lo, hi := NormalizePercentiles(-0.5, 2.0)
	if lo != 0 || hi != 0.999 {
		t.Errorf("Expected (0, 0.999), got (%v, %v)", lo, hi)
	}
}
