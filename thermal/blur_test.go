package thermal

import (
	"math"
	"testing"
)

// TestBoxBlur5Constant verifies a constant raster is unchanged: with edge
// replication every window averages five equal taps.
func TestBoxBlur5Constant(t *testing.T) {
	src := rasterFrom(t, 6, 4, make([]float32, 24))
	src.Fill(0.5)
	dst, _ := NewScoreRaster(6, 4)
	scratch, _ := NewScoreRaster(6, 4)

	BoxBlur5(dst, src, scratch)
	for i, v := range dst.Pix {
		if v != 0.5 {
			t.Errorf("Cell %d: expected 0.5, got %v", i, v)
		}
	}
}

// TestBoxBlur5EdgeReplication verifies the horizontal pass on a single row
// replicates the boundary value rather than zero-padding or wrapping.
func TestBoxBlur5EdgeReplication(t *testing.T) {
	src := rasterFrom(t, 3, 1, []float32{1, 0, 0})
	dst, _ := NewScoreRaster(3, 1)
	scratch, _ := NewScoreRaster(3, 1)

	BoxBlur5(dst, src, scratch)

	// x=0 sees taps [1,1,1,0,0] through replication; zero-padding would
	// give 1/5 and wraparound 3/5 at x=2.
	want := []float32{3.0 / 5, 2.0 / 5, 1.0 / 5}
	for i := range want {
		if math.Abs(float64(dst.Pix[i]-want[i])) > 1e-7 {
			t.Errorf("Cell %d: expected %v, got %v", i, want[i], dst.Pix[i])
		}
	}
}

// TestBoxBlur5Separable verifies the full blur equals the two 1D passes
// composed by hand on a small raster.
func TestBoxBlur5Separable(t *testing.T) {
	w, h := 5, 5
	vals := make([]float32, w*h)
	vals[2*w+2] = 1 // single hot center
	src := rasterFrom(t, w, h, vals)
	dst, _ := NewScoreRaster(w, h)
	scratch, _ := NewScoreRaster(w, h)

	BoxBlur5(dst, src, scratch)

	// A centered impulse reaches every cell of a 5x5 raster: each 1D pass
	// spreads it across the full extent, so the product 1/25 lands
	// everywhere.
	for i, v := range dst.Pix {
		if math.Abs(float64(v)-1.0/25) > 1e-7 {
			t.Errorf("Cell %d: expected 0.04, got %v", i, v)
		}
	}
}

// TestBoxBlur5ScratchReuse verifies a reused scratch buffer with stale
// contents does not leak into the output.
func TestBoxBlur5ScratchReuse(t *testing.T) {
	src := rasterFrom(t, 3, 1, []float32{1, 0, 0})
	dst, _ := NewScoreRaster(3, 1)
	scratch, _ := NewScoreRaster(3, 1)
	scratch.Fill(123)

	BoxBlur5(dst, src, scratch)
	if math.Abs(float64(dst.Pix[0]-3.0/5)) > 1e-7 {
		t.Errorf("Stale scratch leaked into output: got %v", dst.Pix[0])
	}
}
