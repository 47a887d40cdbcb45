package thermal

import "math"

// RampRGB maps a gamma-shaped normalized score in [0,1] onto the
// blue -> cyan -> yellow -> red palette. Three linear segments; the exact
// breakpoints and slopes are part of the visual contract.
func RampRGB(tg float64) (r, g, b float64) {
	switch {
	case tg < 0.33:
		return 0, tg / 0.33, 1
	case tg < 0.66:
		u := (tg - 0.33) / 0.33
		return u, 1, 1 - u
	default:
		u := (tg - 0.66) / 0.34
		return 1, 1 - u, 0
	}
}

// MapOverlay converts a smoothed score raster into a premultiplied RGBA
// overlay. Per cell: normalize against [thrLow, thrHigh], apply gamma to
// the normalized value (gamma before the ramp, never after), look up the
// ramp color, derive alpha from alphaMax*tg, then premultiply.
//
// dst is fully overwritten so the buffer can be reused across frames.
func MapOverlay(dst *OverlayRaster, src *ScoreRaster, thrLow, thrHigh float32, gamma, alphaMax float64) {
	span := float64(thrHigh - thrLow)
	if span < 1e-6 {
		span = 1e-6
	}

	for i, s := range src.Pix {
		t := (float64(s) - float64(thrLow)) / span
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
		tg := math.Pow(t, gamma)

		r, g, b := RampRGB(tg)
		alpha := math.Round(255 * alphaMax * tg)
		if alpha < 0 {
			alpha = 0
		} else if alpha > 255 {
			alpha = 255
		}

		base := i * 4
		dst.Pix[base+0] = premul(r, alpha)
		dst.Pix[base+1] = premul(g, alpha)
		dst.Pix[base+2] = premul(b, alpha)
		dst.Pix[base+3] = uint8(alpha)
	}
}

func premul(channel, alpha float64) uint8 {
	return uint8(math.Round(channel * 255 * alpha / 255))
}
