package scoring

import (
	"fmt"
	"math"
	"time"

	"gocv.io/x/gocv"

	"heatcam/thermal"
)

// Global debug function for scoring package
var debugMsgFunc func(string, string)

// SetDebugFunction allows main package to provide debug function
func SetDebugFunction(fn func(string, string)) {
	debugMsgFunc = fn
}

// debugMsg is a wrapper that handles nil checks
func debugMsg(component, message string) {
	if debugMsgFunc != nil {
		debugMsgFunc(component, message)
	}
}

// ScoreProvider is the capability interface for per-pixel warmth scoring.
// Implementations must produce numerically comparable results; callers
// never branch on which backend is active.
type ScoreProvider interface {
	Initialize() error
	// Score fills dst with the warmth score of every pixel in frame.
	// frame is an 8-bit BGR Mat; dst must match its dimensions.
	Score(frame gocv.Mat, dst *thermal.ScoreRaster) error
	Close() error
	GetProviderInfo() ProviderInfo
}

// ProviderInfo describes the active scoring backend.
type ProviderInfo struct {
	Type     string        // "VECTOR" or "SCALAR"
	Backend  string        // "OpenCV Mat ops", "Pure Go"
	InitTime time.Duration // Time taken to initialize
}

// ProviderManager handles automatic backend selection and fallback.
type ProviderManager struct {
	currentProvider ScoreProvider
	providerInfo    ProviderInfo
}

// NewProviderManager creates a new provider manager with auto-detection
func NewProviderManager() *ProviderManager {
	return &ProviderManager{}
}

// Initialize tries the vectorized OpenCV backend first and verifies it
// against the scalar reference on a small test frame. Any failure is
// recoverable: the manager falls back to the always-available scalar path.
func (pm *ProviderManager) Initialize() error {
	vector := &MatProvider{}
	startTime := time.Now()
	if err := vector.Initialize(); err == nil {
		if testProvider(vector) {
			pm.currentProvider = vector
			pm.providerInfo = vector.GetProviderInfo()
			pm.providerInfo.InitTime = time.Since(startTime)
			debugMsg("PROVIDER", fmt.Sprintf("vectorized scoring backend ready (%v)", pm.providerInfo.InitTime))
			return nil
		}
		debugMsg("PROVIDER", "vectorized backend failed verification, falling back to scalar")
		vector.Close()
	} else {
		debugMsg("PROVIDER", fmt.Sprintf("vectorized backend unavailable: %v, falling back to scalar", err))
	}

	scalar := &ScalarProvider{}
	startTime = time.Now()
	if err := scalar.Initialize(); err != nil {
		return fmt.Errorf("both scoring backends failed: %v", err)
	}
	pm.currentProvider = scalar
	pm.providerInfo = scalar.GetProviderInfo()
	pm.providerInfo.InitTime = time.Since(startTime)
	debugMsg("PROVIDER", fmt.Sprintf("scalar scoring backend ready (%v)", pm.providerInfo.InitTime))
	return nil
}

// GetProvider returns the current active provider
func (pm *ProviderManager) GetProvider() ScoreProvider {
	return pm.currentProvider
}

// GetProviderInfo returns information about the current provider
func (pm *ProviderManager) GetProviderInfo() ProviderInfo {
	return pm.providerInfo
}

// Close closes the current provider
func (pm *ProviderManager) Close() error {
	if pm.currentProvider != nil {
		return pm.currentProvider.Close()
	}
	return nil
}

// testProvider scores a small synthetic frame and checks the candidate
// against the scalar reference to floating-point tolerance.
func testProvider(candidate ScoreProvider) bool {
	const size = 16
	testFrame := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8UC3)
	defer testFrame.Close()

	data, err := testFrame.DataPtrUint8()
	if err != nil {
		return false
	}
	// Gradient fill so every formula term is exercised.
	for i := range data {
		data[i] = uint8((i * 7) % 256)
	}

	got, err := thermal.NewScoreRaster(size, size)
	if err != nil {
		return false
	}
	if err := candidate.Score(testFrame, got); err != nil {
		return false
	}

	want, _ := thermal.NewScoreRaster(size, size)
	ref := &ScalarProvider{}
	if err := ref.Score(testFrame, want); err != nil {
		return false
	}

	for i := range got.Pix {
		if math.Abs(float64(got.Pix[i]-want.Pix[i])) > 1e-4 {
			return false
		}
	}
	return true
}
