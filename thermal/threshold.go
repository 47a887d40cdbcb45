package thermal

import (
	"math"
	"sort"
)

// Percentile returns the value at percentile p (in [0,1]) of the raster's
// cells: sort ascending, pick index round((n-1)*p) clamped to range. An
// empty input returns the sentinel 1.0 so downstream normalization stays
// finite instead of faulting.
func Percentile(values []float32, p float64) float32 {
	n := len(values)
	if n == 0 {
		return 1.0
	}
	sorted := make([]float32, n)
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(math.Round(float64(n-1) * p))
	if idx < 0 {
		idx = 0
	} else if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

// Thresholds computes the low and high score cutoffs of a raster at the
// given percentiles, sorting once for both lookups.
func Thresholds(r *ScoreRaster, pLow, pHigh float64) (thrLow, thrHigh float32) {
	n := len(r.Pix)
	if n == 0 {
		return 0, 1.0
	}
	sorted := make([]float32, n)
	copy(sorted, r.Pix)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	pick := func(p float64) float32 {
		idx := int(math.Round(float64(n-1) * p))
		if idx < 0 {
			idx = 0
		} else if idx > n-1 {
			idx = n - 1
		}
		return sorted[idx]
	}
	return pick(pLow), pick(pHigh)
}

// NormalizePercentiles enforces pLow < pHigh within [0, 0.999]. Inverted
// pairs are swapped; equal pairs are widened symmetrically by 0.05 each
// way. Bad input is corrected rather than rejected so a run always has a
// usable normalization window.
func NormalizePercentiles(pLow, pHigh float64) (float64, float64) {
	clamp := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		if v > 0.999 {
			return 0.999
		}
		return v
	}
	pLow = clamp(pLow)
	pHigh = clamp(pHigh)

	if pHigh < pLow {
		pLow, pHigh = pHigh, pLow
	} else if pHigh == pLow {
		pLow = clamp(pLow - 0.05)
		pHigh = clamp(pHigh + 0.05)
	}
	return pLow, pHigh
}
