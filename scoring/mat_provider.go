package scoring

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"heatcam/thermal"
)

// MatProvider scores frames with whole-image OpenCV Mat arithmetic. OpenCV
// dispatches these ops to its optimized (SIMD/OpenCL) kernels, so this is
// the preferred backend; the scalar loop exists as its reference and
// fallback. Both paths evaluate the identical formula.
type MatProvider struct {
	mu sync.Mutex
}

// Initialize probes the substrate with a throwaway allocation.
func (mp *MatProvider) Initialize() error {
	probe := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV32F)
	defer probe.Close()
	if probe.Empty() {
		return fmt.Errorf("mat allocation failed")
	}
	return nil
}

// Score evaluates the warmth formula channel-plane-wise over the frame.
func (mp *MatProvider) Score(frame gocv.Mat, dst *thermal.ScoreRaster) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if frame.Cols() != dst.Width || frame.Rows() != dst.Height {
		return fmt.Errorf("frame size %dx%d does not match raster %dx%d",
			frame.Cols(), frame.Rows(), dst.Width, dst.Height)
	}
	if frame.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("unsupported frame type %v, want 8UC3", frame.Type())
	}

	f := gocv.NewMat()
	defer f.Close()
	frame.ConvertToWithParams(&f, gocv.MatTypeCV32FC3, 1.0/255.0, 0)

	channels := gocv.Split(f)
	if len(channels) != 3 {
		for _, c := range channels {
			c.Close()
		}
		return fmt.Errorf("expected 3 channels, got %d", len(channels))
	}
	b, g, r := channels[0], channels[1], channels[2]
	defer b.Close()
	defer g.Close()
	defer r.Close()

	// luma = 0.2126r + 0.7152g + 0.0722b
	luma := gocv.NewMat()
	defer luma.Close()
	gocv.AddWeighted(r, 0.2126, g, 0.7152, 0, &luma)
	gocv.AddWeighted(luma, 1, b, 0.0722, 0, &luma)

	// redDom = r / (g + b + 1e-4)
	den := gocv.NewMat()
	defer den.Close()
	gocv.Add(g, b, &den)
	den.AddFloat(1e-4)
	redDom := gocv.NewMat()
	defer redDom.Close()
	gocv.Divide(r, den, &redDom)

	// warmBoost = max(r - max(g, b), 0)
	gbMax := gocv.NewMat()
	defer gbMax.Close()
	gocv.Max(g, b, &gbMax)
	warmBoost := gocv.NewMat()
	defer warmBoost.Close()
	gocv.Subtract(r, gbMax, &warmBoost)
	gocv.Threshold(warmBoost, &warmBoost, 0, 0, gocv.ThresholdToZero)

	// sat = (cmax - cmin) / (cmax + 1e-6)
	cmax := gocv.NewMat()
	defer cmax.Close()
	gocv.Max(r, gbMax, &cmax)
	cmin := gocv.NewMat()
	defer cmin.Close()
	gocv.Min(g, b, &cmin)
	gocv.Min(r, cmin, &cmin)
	sat := gocv.NewMat()
	defer sat.Close()
	gocv.Subtract(cmax, cmin, &sat)
	cmax.AddFloat(1e-6)
	gocv.Divide(sat, cmax, &sat)

	// score = luma * (0.5 + 0.5*sat) * (0.5 + 0.5*redDom) + warmBoost
	sat.MultiplyFloat(0.5)
	sat.AddFloat(0.5)
	redDom.MultiplyFloat(0.5)
	redDom.AddFloat(0.5)

	score := gocv.NewMat()
	defer score.Close()
	gocv.Multiply(luma, sat, &score)
	gocv.Multiply(score, redDom, &score)
	gocv.Add(score, warmBoost, &score)

	// clamp to [0,1]
	gocv.Threshold(score, &score, 0, 0, gocv.ThresholdToZero)
	gocv.Threshold(score, &score, 1, 0, gocv.ThresholdTrunc)

	data, err := score.DataPtrFloat32()
	if err != nil {
		return fmt.Errorf("cannot read back scores: %v", err)
	}
	copy(dst.Pix, data)
	return nil
}

// Close releases resources used by the mat provider
func (mp *MatProvider) Close() error {
	return nil
}

// GetProviderInfo returns information about the mat provider
func (mp *MatProvider) GetProviderInfo() ProviderInfo {
	return ProviderInfo{
		Type:    "VECTOR",
		Backend: "OpenCV Mat ops",
	}
}
