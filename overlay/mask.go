package overlay

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"os"

	"gocv.io/x/gocv"

	"heatcam/thermal"
)

// PolygonSource supplies the current silhouette polygon in pixel
// coordinates of the frame. How it detects the polygon is out of scope;
// a nil polygon means "nothing known for this frame".
type PolygonSource interface {
	Polygon(frameIndex, width, height int) ([]image.Point, error)
}

// MaskProvider hands the pipeline a spatial-restriction mask per frame.
// The pipeline calls NextMask unconditionally every frame; a nil result
// means "unrestricted".
type MaskProvider interface {
	NextMask(frameIndex int) *thermal.Mask
}

// polygonMaskProvider polls its source every pollInterval frames and
// caches the last successful scan conversion between polls. Poll failures
// keep the previous mask rather than dropping the restriction mid-run.
type polygonMaskProvider struct {
	source       PolygonSource
	pollInterval int
	width        int
	height       int
	cached       *thermal.Mask
}

// NewPolygonMaskProvider wraps a PolygonSource with poll caching.
// pollInterval is in frames; values below 1 poll every frame.
func NewPolygonMaskProvider(source PolygonSource, pollInterval, width, height int) MaskProvider {
	if pollInterval < 1 {
		pollInterval = 1
	}
	return &polygonMaskProvider{
		source:       source,
		pollInterval: pollInterval,
		width:        width,
		height:       height,
	}
}

func (p *polygonMaskProvider) NextMask(frameIndex int) *thermal.Mask {
	if frameIndex%p.pollInterval == 0 {
		poly, err := p.source.Polygon(frameIndex, p.width, p.height)
		if err != nil {
			debugMsg("MASK", fmt.Sprintf("polygon poll failed at frame %d: %v", frameIndex, err))
		} else if len(poly) >= 3 {
			if m, err := RasterizePolygon(poly, p.width, p.height); err == nil {
				p.cached = m
			} else {
				debugMsg("MASK", fmt.Sprintf("polygon rasterization failed: %v", err))
			}
		}
	}
	return p.cached
}

// RasterizePolygon scan-converts an ordered vertex list into a mask,
// 255 inside the polygon and 0 outside.
func RasterizePolygon(poly []image.Point, width, height int) (*thermal.Mask, error) {
	if len(poly) < 3 {
		return nil, fmt.Errorf("polygon needs at least 3 vertices, got %d", len(poly))
	}
	canvas := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC1)
	defer canvas.Close()

	pts := gocv.NewPointsVectorFromPoints([][]image.Point{poly})
	defer pts.Close()
	gocv.FillPoly(&canvas, pts, color.RGBA{255, 255, 255, 255})

	data, err := canvas.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("cannot read mask data: %v", err)
	}
	mask := thermal.NewMask(width, height)
	copy(mask.Pix, data)
	return mask, nil
}

// StaticPolygonSource serves one fixed polygon loaded from a JSON file of
// [x, y] vertex pairs. It stands in for a live landmark provider when the
// silhouette does not move.
type StaticPolygonSource struct {
	poly []image.Point
}

// LoadStaticPolygon reads a polygon JSON file ([[x,y], ...]).
func LoadStaticPolygon(path string) (*StaticPolygonSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read polygon file: %v", err)
	}
	var pairs [][2]int
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("failed to parse polygon file: %v", err)
	}
	src := &StaticPolygonSource{}
	for _, p := range pairs {
		src.poly = append(src.poly, image.Pt(p[0], p[1]))
	}
	return src, nil
}

// Polygon returns the fixed vertex list regardless of frame index.
func (s *StaticPolygonSource) Polygon(frameIndex, width, height int) ([]image.Point, error) {
	return s.poly, nil
}
