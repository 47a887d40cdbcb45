package thermal

// HeatScore computes the warmth score of one RGB pixel, components in [0,1].
// The heuristic combines luma, saturation and red dominance, plus a boost
// when red strictly exceeds both other channels. The exact constants are
// load-bearing: every scoring backend must reproduce them so results match
// regardless of execution strategy.
func HeatScore(r, g, b float32) float32 {
	luma := 0.2126*r + 0.7152*g + 0.0722*b
	redDom := r / (g + b + 1e-4)

	warmBoost := r - g
	if b > g {
		warmBoost = r - b
	}
	if warmBoost < 0 {
		warmBoost = 0
	}

	cmax := r
	if g > cmax {
		cmax = g
	}
	if b > cmax {
		cmax = b
	}
	cmin := r
	if g < cmin {
		cmin = g
	}
	if b < cmin {
		cmin = b
	}
	sat := (cmax - cmin) / (cmax + 1e-6)

	score := luma*(0.5+0.5*sat)*(0.5+0.5*redDom) + warmBoost
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
