package thermal

// EMATracker holds the per-pixel exponential moving average across a frame
// stream. Single-writer: exactly one update per processed frame, in frame
// arrival order. The tracker lives for one run and dies with it.
type EMATracker struct {
	Alpha float64
	ema   *ScoreRaster
}

// NewEMATracker creates a tracker with the given smoothing factor,
// clamped into (0,1]. Zero or negative alpha degenerates to 1 (no memory),
// which keeps the recurrence well defined rather than rejecting the run.
func NewEMATracker(alpha float64) *EMATracker {
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	return &EMATracker{Alpha: alpha}
}

// Update folds the current frame's smoothed scores into the EMA state and
// returns the state raster. The first call seeds the state with a copy of
// the frame; later calls apply ema = alpha*cur + (1-alpha)*ema in place.
// The returned raster is owned by the tracker; callers must not hold it
// across a subsequent Update.
func (t *EMATracker) Update(current *ScoreRaster) *ScoreRaster {
	if t.ema == nil || !t.ema.SameSize(current) {
		t.ema = current.Clone()
		return t.ema
	}
	a := float32(t.Alpha)
	inv := 1 - a
	for i, v := range current.Pix {
		t.ema.Pix[i] = a*v + inv*t.ema.Pix[i]
	}
	return t.ema
}

// State exposes the current EMA raster, or nil before the first update.
func (t *EMATracker) State() *ScoreRaster {
	return t.ema
}
