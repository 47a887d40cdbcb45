package thermal

import "fmt"

// Settings is the immutable per-run parameter snapshot the pipeline works
// from. Values are assumed already normalized by the configuration layer.
type Settings struct {
	PLow     float64
	PHigh    float64
	Gamma    float64
	AlphaMax float64
	MinPix   int  // 0 selects DefaultMinHotspotPix
	UseEMA   bool // video mode: temporally smooth scores before thresholding
	EMAAlpha float64
}

// FrameResult is the per-frame output of the pipeline. Smoothed and Overlay
// point at buffers owned by the Pipeline and reused on the next call;
// consumers must finish with them (or copy) before processing another frame.
type FrameResult struct {
	Smoothed *ScoreRaster
	ThrLow   float32
	ThrHigh  float32
	Hotspots []Hotspot
	Overlay  *OverlayRaster
}

// Pipeline is the explicit, externally owned processing state for one run:
// blur scratch, smoothing output, overlay buffer and optional EMA tracker.
// It is single-writer across the ordered frame sequence and must not be
// fed two frames concurrently. Per-frame stage work is pure with respect
// to the frame's own data.
type Pipeline struct {
	settings Settings
	width    int
	height   int
	minPix   int

	scratch  *ScoreRaster
	smoothed *ScoreRaster
	overlay  *OverlayRaster
	tracker  *EMATracker
}

// NewPipeline allocates the run state for fixed frame dimensions.
func NewPipeline(width, height int, s Settings) (*Pipeline, error) {
	scratch, err := NewScoreRaster(width, height)
	if err != nil {
		return nil, fmt.Errorf("cannot allocate pipeline rasters: %v", err)
	}
	smoothed, err := NewScoreRaster(width, height)
	if err != nil {
		return nil, fmt.Errorf("cannot allocate pipeline rasters: %v", err)
	}

	s.PLow, s.PHigh = NormalizePercentiles(s.PLow, s.PHigh)
	if s.Gamma <= 0 {
		s.Gamma = 1
	}
	if s.AlphaMax < 0 {
		s.AlphaMax = 0
	} else if s.AlphaMax > 1 {
		s.AlphaMax = 1
	}

	minPix := s.MinPix
	if minPix <= 0 {
		minPix = DefaultMinHotspotPix(width, height)
	}

	p := &Pipeline{
		settings: s,
		width:    width,
		height:   height,
		minPix:   minPix,
		scratch:  scratch,
		smoothed: smoothed,
		overlay:  NewOverlayRaster(width, height),
	}
	if s.UseEMA {
		p.tracker = NewEMATracker(s.EMAAlpha)
	}
	return p, nil
}

// Settings returns the normalized parameter snapshot in effect.
func (p *Pipeline) Settings() Settings { return p.settings }

// MinPix returns the effective minimum hotspot size.
func (p *Pipeline) MinPix() int { return p.minPix }

// ProcessScored runs one scored frame through smoothing, optional temporal
// EMA, adaptive thresholding, segmentation and color mapping. The input
// raster must match the pipeline's dimensions.
func (p *Pipeline) ProcessScored(scores *ScoreRaster) (*FrameResult, error) {
	if scores.Width != p.width || scores.Height != p.height {
		return nil, fmt.Errorf("frame size %dx%d does not match pipeline %dx%d",
			scores.Width, scores.Height, p.width, p.height)
	}

	BoxBlur5(p.smoothed, scores, p.scratch)

	working := p.smoothed
	if p.tracker != nil {
		working = p.tracker.Update(p.smoothed)
	}

	thrLow, thrHigh := Thresholds(working, p.settings.PLow, p.settings.PHigh)
	if thrHigh <= thrLow {
		thrHigh = thrLow + 1e-6
	}

	hotspots := FindHotspots(working, thrHigh, p.minPix)
	MapOverlay(p.overlay, working, thrLow, thrHigh, p.settings.Gamma, p.settings.AlphaMax)

	return &FrameResult{
		Smoothed: working,
		ThrLow:   thrLow,
		ThrHigh:  thrHigh,
		Hotspots: hotspots,
		Overlay:  p.overlay,
	}, nil
}
