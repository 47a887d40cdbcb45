// Package config provides run configuration loading and normalization for
// heatcam. Parameters come from a YAML file, overridden by CLI flags, and
// are locally corrected into valid ranges: a run always produces some
// visual output instead of being rejected over a bad knob.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"heatcam/thermal"
)

// RunConfig is the immutable configuration snapshot for one processing run.
type RunConfig struct {
	// Sampling
	Frames int    `yaml:"frames"` // still mode: number of sampled timestamps
	Stat   string `yaml:"stat"`   // "avg" or "max"

	// Normalization
	PLow     float64 `yaml:"pLow"`
	PHigh    float64 `yaml:"pHigh"`
	Gamma    float64 `yaml:"gamma"`
	AlphaMax float64 `yaml:"alpha"`

	// Temperature mapping (generic mode)
	AmbientC float64 `yaml:"ambientC"`
	MaxC     float64 `yaml:"maxC"`

	// Temporal smoothing (video mode)
	EMAAlpha float64 `yaml:"ema"`

	// Segmentation
	MinHotspotPix int `yaml:"minHotspotPix"` // 0 selects the size-derived default

	// Rendering
	Preview   bool `yaml:"preview"`   // draw hotspot boxes and labels
	NoOverlay bool `yaml:"noOverlay"` // keep raw video, boxes only
	DualPanel bool `yaml:"dualPanel"` // side-by-side base + negative EMA view

	// External mask polling cadence, in frames
	MaskPoll int `yaml:"maskPoll"`
}

// Default returns the stock configuration.
func Default() *RunConfig {
	return &RunConfig{
		Frames:   1,
		Stat:     "avg",
		PLow:     0.80,
		PHigh:    0.98,
		Gamma:    1.2,
		AlphaMax: 0.6,
		AmbientC: 22.0,
		MaxC:     120.0,
		EMAAlpha: 1.0,
		MaskPoll: 5,
	}
}

// Load reads a YAML config file over the defaults. A missing file is not
// an error; the defaults are returned as-is.
func Load(path string) (*RunConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %v", err)
	}
	return cfg, nil
}

// Normalize applies the local-correction policy in place: clamp and repair
// every parameter rather than rejecting any of them.
func (c *RunConfig) Normalize() {
	if c.Frames < 1 {
		c.Frames = 1
	}
	c.Stat = string(thermal.ParseReduceMode(c.Stat))
	c.PLow, c.PHigh = thermal.NormalizePercentiles(c.PLow, c.PHigh)

	if c.Gamma < 0.1 {
		c.Gamma = 0.1
	} else if c.Gamma > 6.0 {
		c.Gamma = 6.0
	}
	if c.AlphaMax < 0 {
		c.AlphaMax = 0
	} else if c.AlphaMax > 1 {
		c.AlphaMax = 1
	}
	if c.EMAAlpha <= 0 || c.EMAAlpha > 1 {
		c.EMAAlpha = 1
	}
	if c.MinHotspotPix < 0 {
		c.MinHotspotPix = 0
	}
	if c.MaskPoll < 1 {
		c.MaskPoll = 1
	}
}

// Settings converts the run config into the pipeline parameter snapshot.
func (c *RunConfig) Settings(useEMA bool) thermal.Settings {
	return thermal.Settings{
		PLow:     c.PLow,
		PHigh:    c.PHigh,
		Gamma:    c.Gamma,
		AlphaMax: c.AlphaMax,
		MinPix:   c.MinHotspotPix,
		UseEMA:   useEMA,
		EMAAlpha: c.EMAAlpha,
	}
}
