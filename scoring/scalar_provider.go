package scoring

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"heatcam/thermal"
)

// ScalarProvider scores frames with a plain per-pixel loop in Go. It is the
// reference implementation of the warmth formula and the fallback when the
// vectorized backend is unavailable or fails verification.
type ScalarProvider struct {
	mu sync.Mutex
}

// Initialize is a no-op; the scalar path has no substrate to probe.
func (sp *ScalarProvider) Initialize() error {
	return nil
}

// Score computes thermal.HeatScore for every pixel of an 8-bit BGR frame.
func (sp *ScalarProvider) Score(frame gocv.Mat, dst *thermal.ScoreRaster) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if frame.Cols() != dst.Width || frame.Rows() != dst.Height {
		return fmt.Errorf("frame size %dx%d does not match raster %dx%d",
			frame.Cols(), frame.Rows(), dst.Width, dst.Height)
	}
	if frame.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("unsupported frame type %v, want 8UC3", frame.Type())
	}

	data, err := frame.DataPtrUint8()
	if err != nil {
		return fmt.Errorf("cannot access frame data: %v", err)
	}

	// BGR byte order, three bytes per pixel.
	for i := 0; i < len(dst.Pix); i++ {
		b := float32(data[i*3+0]) / 255
		g := float32(data[i*3+1]) / 255
		r := float32(data[i*3+2]) / 255
		dst.Pix[i] = thermal.HeatScore(r, g, b)
	}
	return nil
}

// Close releases resources used by the scalar provider
func (sp *ScalarProvider) Close() error {
	return nil
}

// GetProviderInfo returns information about the scalar provider
func (sp *ScalarProvider) GetProviderInfo() ProviderInfo {
	return ProviderInfo{
		Type:    "SCALAR",
		Backend: "Pure Go",
	}
}
