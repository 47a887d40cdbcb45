package thermal

// BoxBlur5 smooths a raster with a separable 5-tap box blur: a horizontal
// pass followed by a vertical pass, each output cell the mean of up to five
// taps clamped to the raster edge (edge replication). The two 1D passes are
// deliberate; a single 2D convolution would change both cost and rounding.
//
// scratch holds the intermediate horizontal pass and is fully overwritten,
// so it can be reused frame to frame. src and dst may alias.
func BoxBlur5(dst, src, scratch *ScoreRaster) {
	w, h := src.Width, src.Height

	// Horizontal pass into scratch.
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			var sum float32
			for dx := -2; dx <= 2; dx++ {
				sx := x + dx
				if sx < 0 {
					sx = 0
				} else if sx >= w {
					sx = w - 1
				}
				sum += src.Pix[row+sx]
			}
			scratch.Pix[row+x] = sum / 5
		}
	}

	// Vertical pass into dst.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float32
			for dy := -2; dy <= 2; dy++ {
				sy := y + dy
				if sy < 0 {
					sy = 0
				} else if sy >= h {
					sy = h - 1
				}
				sum += scratch.Pix[sy*w+x]
			}
			dst.Pix[y*w+x] = sum / 5
		}
	}
}
