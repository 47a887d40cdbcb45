package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"heatcam/calibration"
	"heatcam/thermal"
)

// debugMsgFunc is a function that will be set by main package to use unified logging
var debugMsgFunc func(component, message string)

// SetDebugFunction allows main package to provide the debug logger
func SetDebugFunction(fn func(component, message string)) {
	debugMsgFunc = fn
}

// debugMsg is a wrapper that handles nil checks
func debugMsg(component, message string) {
	if debugMsgFunc != nil {
		debugMsgFunc(component, message)
	}
}

// maxLabeledHotspots bounds how many hotspot boxes are drawn per frame.
const maxLabeledHotspots = 5

// Renderer composites the premultiplied heat overlay onto base frames and
// draws the legend, hotspot boxes and labels.
type Renderer struct {
	legendWidth  int
	legendMargin int
	labelColor   color.RGBA
}

// NewRenderer creates a renderer with the standard legend geometry.
func NewRenderer() *Renderer {
	return &Renderer{
		legendWidth:  18,
		legendMargin: 12,
		labelColor:   color.RGBA{255, 255, 255, 255},
	}
}

// ComposeFrame alpha-composites ov over the BGR frame in place using
// premultiplied source-over semantics: out = src + dst*(1-a). When a mask
// is supplied the overlay is first multiplied through by mask/255 on all
// four channels.
func (r *Renderer) ComposeFrame(img *gocv.Mat, ov *thermal.OverlayRaster, mask *thermal.Mask) error {
	if img.Cols() != ov.Width || img.Rows() != ov.Height {
		return fmt.Errorf("overlay size %dx%d does not match frame %dx%d",
			ov.Width, ov.Height, img.Cols(), img.Rows())
	}
	ov.ApplyMask(mask)

	data, err := img.DataPtrUint8()
	if err != nil {
		return fmt.Errorf("cannot access frame data: %v", err)
	}

	n := ov.Width * ov.Height
	for i := 0; i < n; i++ {
		a := uint16(ov.Pix[i*4+3])
		if a == 0 {
			continue
		}
		inv := 255 - a
		// Overlay is RGBA, the frame is BGR.
		data[i*3+0] = uint8(uint16(ov.Pix[i*4+2]) + uint16(data[i*3+0])*inv/255)
		data[i*3+1] = uint8(uint16(ov.Pix[i*4+1]) + uint16(data[i*3+1])*inv/255)
		data[i*3+2] = uint8(uint16(ov.Pix[i*4+0]) + uint16(data[i*3+2])*inv/255)
	}
	return nil
}

// DrawHotspots outlines up to the top five hotspots with a box colored by
// mapped temperature and a rank/temperature label above each box.
func (r *Renderer) DrawHotspots(img *gocv.Mat, hotspots []thermal.Hotspot, mapper *calibration.TempMapper) {
	count := len(hotspots)
	if count > maxLabeledHotspots {
		count = maxLabeledHotspots
	}
	lo, hi := mapper.Range()

	for i := 0; i < count; i++ {
		h := hotspots[i]
		boxColor := tempColor(h.TempC, lo, hi)
		gocv.Rectangle(img, h.Box, boxColor, 2)

		label := fmt.Sprintf("#%d %.1fC", i+1, h.TempC)
		labelY := h.Box.Min.Y - 5
		if labelY < 10 {
			labelY = 10
		}
		gocv.PutText(img, label, image.Pt(h.Box.Min.X, labelY),
			gocv.FontHersheySimplex, 0.4, boxColor, 1)
	}
}

// DrawLegend renders a vertical color-ramp bar on the right edge with
// temperature tick labels derived from the active calibration mapping.
func (r *Renderer) DrawLegend(img *gocv.Mat, mapper *calibration.TempMapper, gamma float64) {
	w, h := img.Cols(), img.Rows()
	barHeight := h - 2*r.legendMargin
	if barHeight < 40 {
		return
	}
	barX := w - r.legendMargin - r.legendWidth
	if barX < 0 {
		return
	}

	data, err := img.DataPtrUint8()
	if err != nil {
		debugMsg("LEGEND", fmt.Sprintf("cannot access frame data: %v", err))
		return
	}

	for row := 0; row < barHeight; row++ {
		// Top of the bar is the hottest.
		t := 1 - float64(row)/float64(barHeight-1)
		tg := math.Pow(t, gamma)
		cr, cg, cb := thermal.RampRGB(tg)
		y := r.legendMargin + row
		for x := barX; x < barX+r.legendWidth; x++ {
			base := (y*w + x) * 3
			data[base+0] = uint8(cb * 255)
			data[base+1] = uint8(cg * 255)
			data[base+2] = uint8(cr * 255)
		}
	}

	border := image.Rect(barX, r.legendMargin, barX+r.legendWidth, r.legendMargin+barHeight)
	gocv.Rectangle(img, border, r.labelColor, 1)

	for _, tick := range []float64{0, 0.5, 1} {
		y := r.legendMargin + int(float64(barHeight-1)*(1-tick))
		label := fmt.Sprintf("%.0fC", mapper.Temp(tick))
		gocv.PutText(img, label, image.Pt(barX-42, y+4),
			gocv.FontHersheySimplex, 0.35, r.labelColor, 1)
	}
}

// RenderDualPanel lays two independently composited panels side by side
// into a double-width canvas: the base view on the left, the EMA/negative
// view on the right. The caller owns the returned Mat.
func (r *Renderer) RenderDualPanel(left, right gocv.Mat) gocv.Mat {
	h, w := left.Rows(), left.Cols()
	canvas := gocv.NewMatWithSize(h, 2*w, gocv.MatTypeCV8UC3)

	leftRegion := canvas.Region(image.Rect(0, 0, w, h))
	left.CopyTo(&leftRegion)
	leftRegion.Close()

	rightRegion := canvas.Region(image.Rect(w, 0, 2*w, h))
	right.CopyTo(&rightRegion)
	rightRegion.Close()

	return canvas
}

// tempColor maps a temperature onto the green-to-red gradient used for
// hotspot boxes: ambient is green, the maximum is red.
func tempColor(tempC, lo, hi float64) color.RGBA {
	frac := 1.0
	if hi > lo {
		frac = (tempC - lo) / (hi - lo)
	}
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}
	return color.RGBA{uint8(255 * frac), uint8(255 * (1 - frac)), 0, 255}
}
