// Package export emits the structured run outputs: the per-run JSON
// summary and the optional per-frame metrics CSV.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"heatcam/thermal"
)

// summaryHotspotCap bounds how many hotspots the summary carries.
const summaryHotspotCap = 40

// FrameHotspot is a hotspot observation tagged with when it was seen.
type FrameHotspot struct {
	thermal.Hotspot
	FrameIdx int     `json:"frameIdx"`
	TSec     float64 `json:"tSec"`
}

// Summary is the per-run record: configuration echo, dimensions, frame
// count and the final hotspot list.
type Summary struct {
	File           string         `json:"file"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	FramesUsed     int            `json:"framesUsed"`
	DurationSec    float64        `json:"durationSec"`
	Stat           string         `json:"stat"`
	PercentileLow  float64        `json:"percentileLow"`
	PercentileHigh float64        `json:"percentileHigh"`
	AmbientC       float64        `json:"ambientC"`
	MaxC           float64        `json:"maxC"`
	Gamma          float64        `json:"gamma"`
	Calibrated     bool           `json:"calibrated"`
	CalibVersion   string         `json:"calibVersion,omitempty"`
	MinHotspotTemp *float64       `json:"minHotspotTempC"`
	MaxHotspotTemp *float64       `json:"maxHotspotTempC"`
	Hotspots       []FrameHotspot `json:"hotspots"`
}

// BuildSummary assembles the summary record from the run's accumulated
// hotspot observations: largest first, capped, with the temperature range
// computed over every observation (not only the kept ones).
func BuildSummary(base Summary, all []FrameHotspot) Summary {
	if len(all) > 0 {
		minT, maxT := all[0].TempC, all[0].TempC
		for _, h := range all[1:] {
			if h.TempC < minT {
				minT = h.TempC
			}
			if h.TempC > maxT {
				maxT = h.TempC
			}
		}
		base.MinHotspotTemp = &minT
		base.MaxHotspotTemp = &maxT
	}

	sorted := make([]FrameHotspot, len(all))
	copy(sorted, all)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PixelCount > sorted[j].PixelCount
	})
	if len(sorted) > summaryHotspotCap {
		sorted = sorted[:summaryHotspotCap]
	}
	base.Hotspots = sorted
	return base
}

// WriteSummary serializes the summary as indented JSON, creating parent
// directories as needed.
func WriteSummary(path string, s Summary) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create summary directory: %v", err)
		}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode summary: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write summary: %v", err)
	}
	return nil
}
