// Package calibration maps normalized warmth scores to the temperature-like
// display values shown in legends, hotspot labels and exports. Exactly one
// mapping mode is active per run: an affine gain/offset blob supplied by an
// external calibration source, or the generic ambient-to-max mapping used
// when no blob is available.
package calibration

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Params is the decoded calibration blob. Transport is out of scope; by the
// time it reaches the engine it is just the numeric triple.
type Params struct {
	Gain    float64 `json:"gain"`
	Offset  float64 `json:"offset"`
	Version string  `json:"version"`
}

// LoadParams reads a JSON calibration blob from disk.
func LoadParams(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration file: %v", err)
	}
	var p Params
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse calibration file: %v", err)
	}
	return &p, nil
}

// TempMapper converts a normalized warmth score into a temperature value.
type TempMapper struct {
	params   *Params // nil selects the generic branch
	ambientC float64
	maxC     float64
	gamma    float64
}

// NewTempMapper builds a mapper. params may be nil, in which case the
// generic ambient-to-max mapping is used; a missing calibration input is a
// degraded mode, never a failure.
func NewTempMapper(params *Params, ambientC, maxC, gamma float64) *TempMapper {
	if gamma <= 0 {
		gamma = 1
	}
	return &TempMapper{params: params, ambientC: ambientC, maxC: maxC, gamma: gamma}
}

// Calibrated reports whether the affine branch is active.
func (m *TempMapper) Calibrated() bool {
	return m.params != nil
}

// Version returns the calibration blob version, or "" in generic mode.
func (m *TempMapper) Version() string {
	if m.params == nil {
		return ""
	}
	return m.params.Version
}

// Temp maps a normalized score in [0,1] to a temperature. The gamma shaping
// happens here (tg = score^gamma) so both branches see the same curve.
func (m *TempMapper) Temp(score float64) float64 {
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}
	tg := math.Pow(score, m.gamma)
	if m.params != nil {
		return m.params.Gain*tg + m.params.Offset
	}
	return m.ambientC + (m.maxC-m.ambientC)*tg
}

// Range returns the temperatures at score 0 and score 1, used for legend
// tick labeling.
func (m *TempMapper) Range() (lo, hi float64) {
	return m.Temp(0), m.Temp(1)
}
