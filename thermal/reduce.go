package thermal

import (
	"fmt"
	"math"
)

// ReduceMode selects how per-frame score rasters are combined across a
// sample set.
type ReduceMode string

const (
	ReduceAvg ReduceMode = "avg"
	ReduceMax ReduceMode = "max"
)

// ParseReduceMode whitelists a stat name, falling back to avg for anything
// unrecognized. Malformed configuration is corrected, never rejected.
func ParseReduceMode(s string) ReduceMode {
	if ReduceMode(s) == ReduceMax {
		return ReduceMax
	}
	return ReduceAvg
}

// Reduce combines an ordered set of same-sized rasters into one.
//
// avg takes the arithmetic mean per cell; an empty set yields an all-zero
// raster rather than a division by zero. max folds an elementwise maximum
// seeded from the first frame's values, so a genuine zero in frame 0
// survives as content instead of being treated as an implicit minimum.
func Reduce(frames []*ScoreRaster, mode ReduceMode) (*ScoreRaster, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("reduce: empty frame set")
	}
	for i := 1; i < len(frames); i++ {
		if !frames[0].SameSize(frames[i]) {
			return nil, fmt.Errorf("reduce: frame %d size mismatch", i)
		}
	}

	out := frames[0].Clone()
	switch mode {
	case ReduceMax:
		for _, f := range frames[1:] {
			for i, v := range f.Pix {
				if v > out.Pix[i] {
					out.Pix[i] = v
				}
			}
		}
	default:
		for _, f := range frames[1:] {
			for i, v := range f.Pix {
				out.Pix[i] += v
			}
		}
		inv := float32(1) / float32(len(frames))
		for i := range out.Pix {
			out.Pix[i] *= inv
		}
	}
	return out, nil
}

// ReduceInto is Reduce with an empty-set fallback: when no frames were
// sampled it fills dst with zeros instead of failing the run.
func ReduceInto(dst *ScoreRaster, frames []*ScoreRaster, mode ReduceMode) error {
	if len(frames) == 0 {
		dst.Fill(0)
		return nil
	}
	combined, err := Reduce(frames, mode)
	if err != nil {
		return err
	}
	return dst.CopyFrom(combined)
}

// SampleTimes returns N midpoint-of-bucket timestamps inside (0, duration):
// duration*(i+0.5)/N. A zero or non-finite duration, or N==1, collapses to
// the single timestamp 0.
func SampleTimes(duration float64, n int) []float64 {
	if n < 1 {
		n = 1
	}
	if n == 1 || duration <= 0 || math.IsInf(duration, 0) || math.IsNaN(duration) {
		return []float64{0}
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = duration * (float64(i) + 0.5) / float64(n)
	}
	return out
}
