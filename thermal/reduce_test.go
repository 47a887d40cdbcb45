package thermal

import (
	"math"
	"testing"
)

func rasterFrom(t *testing.T, w, h int, vals []float32) *ScoreRaster {
	t.Helper()
	r, err := NewScoreRaster(w, h)
	if err != nil {
		t.Fatalf("NewScoreRaster failed: %v", err)
	}
	copy(r.Pix, vals)
	return r
}

// TestReduceAvgIdentity verifies the identity law: avg over a single-frame
// set returns that frame's raster exactly.
func TestReduceAvgIdentity(t *testing.T) {
	a := rasterFrom(t, 2, 2, []float32{0.1, 0.2, 0.3, 0.4})
	got, err := Reduce([]*ScoreRaster{a}, ReduceAvg)
	if err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}
	for i := range a.Pix {
		if got.Pix[i] != a.Pix[i] {
			t.Errorf("Cell %d: expected %v, got %v", i, a.Pix[i], got.Pix[i])
		}
	}
}

// TestReduceMaxDominance verifies that when frame B is frame A plus a
// positive constant, max reduction equals B everywhere.
func TestReduceMaxDominance(t *testing.T) {
	a := rasterFrom(t, 2, 2, []float32{0.1, 0.2, 0.3, 0.4})
	b := rasterFrom(t, 2, 2, []float32{0.2, 0.3, 0.4, 0.5})
	got, err := Reduce([]*ScoreRaster{a, b}, ReduceMax)
	if err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}
	for i := range b.Pix {
		if got.Pix[i] != b.Pix[i] {
			t.Errorf("Cell %d: expected %v, got %v", i, b.Pix[i], got.Pix[i])
		}
	}
}

// TestReduceMaxSeedsFromFirstFrame verifies a true zero in the first frame
// survives as content rather than being overwritten by an implicit minimum.
func TestReduceMaxSeedsFromFirstFrame(t *testing.T) {
	a := rasterFrom(t, 2, 1, []float32{0, 0})
	got, err := Reduce([]*ScoreRaster{a}, ReduceMax)
	if err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}
	if got.Pix[0] != 0 || got.Pix[1] != 0 {
		t.Errorf("Expected zero raster, got %v", got.Pix)
	}
}

// TestReduceIntoEmptySet verifies the empty set yields an all-zero raster
// instead of a division by zero.
func TestReduceIntoEmptySet(t *testing.T) {
	dst := rasterFrom(t, 2, 2, []float32{0.9, 0.9, 0.9, 0.9})
	if err := ReduceInto(dst, nil, ReduceAvg); err != nil {
		t.Fatalf("ReduceInto failed: %v", err)
	}
	for i, v := range dst.Pix {
		if v != 0 {
			t.Errorf("Cell %d: expected 0, got %v", i, v)
		}
	}
}

// TestSampleTimesMidpoints verifies midpoint-of-bucket sampling stays
// strictly inside (0, T).
func TestSampleTimesMidpoints(t *testing.T) {
	got := SampleTimes(10, 4)
	want := []float64{1.25, 3.75, 6.25, 8.75}
	if len(got) != len(want) {
		t.Fatalf("Expected %d timestamps, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("Timestamp %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if got[0] <= 0 || got[len(got)-1] >= 10 {
		t.Errorf("Samples not strictly inside (0,T): %v", got)
	}
}

// TestSampleTimesDegenerate verifies zero/non-finite durations and N=1
// collapse to the single timestamp 0.
func TestSampleTimesDegenerate(t *testing.T) {
	for _, tc := range []struct {
		duration float64
		n        int
	}{
		{10, 1},
		{0, 5},
		{math.Inf(1), 5},
		{math.NaN(), 5},
		{-3, 5},
	} {
		got := SampleTimes(tc.duration, tc.n)
		if len(got) != 1 || got[0] != 0 {
			t.Errorf("SampleTimes(%v, %d): expected [0], got %v", tc.duration, tc.n, got)
		}
	}
}
