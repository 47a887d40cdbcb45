package thermal

import "fmt"

// ScoreRaster is a dense row-major grid of per-pixel warmth scores.
// Values are nominally in [0,1] but are not clamped until mapping time.
// A raster is owned by the stage that produced it until handed to the
// next stage; it is never mutated concurrently.
type ScoreRaster struct {
	Width  int
	Height int
	Pix    []float32
}

// NewScoreRaster allocates a zeroed raster of the given dimensions.
func NewScoreRaster(width, height int) (*ScoreRaster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid raster dimensions %dx%d", width, height)
	}
	return &ScoreRaster{
		Width:  width,
		Height: height,
		Pix:    make([]float32, width*height),
	}, nil
}

// At returns the score at (x, y). No bounds checking beyond the slice's own.
func (r *ScoreRaster) At(x, y int) float32 {
	return r.Pix[y*r.Width+x]
}

// Set stores a score at (x, y).
func (r *ScoreRaster) Set(x, y int, v float32) {
	r.Pix[y*r.Width+x] = v
}

// Clone returns an independent copy of the raster.
func (r *ScoreRaster) Clone() *ScoreRaster {
	out := &ScoreRaster{Width: r.Width, Height: r.Height, Pix: make([]float32, len(r.Pix))}
	copy(out.Pix, r.Pix)
	return out
}

// Fill sets every cell to v.
func (r *ScoreRaster) Fill(v float32) {
	for i := range r.Pix {
		r.Pix[i] = v
	}
}

// SameSize reports whether two rasters share dimensions.
func (r *ScoreRaster) SameSize(o *ScoreRaster) bool {
	return o != nil && r.Width == o.Width && r.Height == o.Height
}

// CopyFrom overwrites every cell of r with the contents of src.
// Rasters must share dimensions.
func (r *ScoreRaster) CopyFrom(src *ScoreRaster) error {
	if !r.SameSize(src) {
		return fmt.Errorf("raster size mismatch: %dx%d vs %dx%d", r.Width, r.Height, src.Width, src.Height)
	}
	copy(r.Pix, src.Pix)
	return nil
}

// Mask is an optional single-channel restriction raster. 255 means fully
// inside the masked region, 0 fully outside. A nil Mask means unrestricted.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask allocates a zeroed (fully outside) mask.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// OverlayRaster is a dense premultiplied-alpha RGBA buffer, 4 bytes per
// pixel, row-major, same dimensions as the ScoreRaster that produced it.
type OverlayRaster struct {
	Width  int
	Height int
	Pix    []uint8 // R, G, B, A interleaved, channels premultiplied by A
}

// NewOverlayRaster allocates a fully transparent overlay.
func NewOverlayRaster(width, height int) *OverlayRaster {
	return &OverlayRaster{Width: width, Height: height, Pix: make([]uint8, width*height*4)}
}

// ApplyMask scales every channel, alpha included, by mask/255. A nil mask
// leaves the overlay unrestricted.
func (o *OverlayRaster) ApplyMask(m *Mask) {
	if m == nil {
		return
	}
	for i, mv := range m.Pix {
		if mv == 255 {
			continue
		}
		base := i * 4
		o.Pix[base+0] = uint8(uint16(o.Pix[base+0]) * uint16(mv) / 255)
		o.Pix[base+1] = uint8(uint16(o.Pix[base+1]) * uint16(mv) / 255)
		o.Pix[base+2] = uint8(uint16(o.Pix[base+2]) * uint16(mv) / 255)
		o.Pix[base+3] = uint8(uint16(o.Pix[base+3]) * uint16(mv) / 255)
	}
}

// Invert flips each premultiplied color channel against its alpha
// (channel' = alpha - channel) leaving alpha untouched. Used for the
// negative second panel in dual-panel rendering. The formula is kept
// exactly as the legacy renderer computed it, partial-alpha quirks and all.
func (o *OverlayRaster) Invert() {
	for i := 0; i < len(o.Pix); i += 4 {
		a := o.Pix[i+3]
		o.Pix[i+0] = a - o.Pix[i+0]
		o.Pix[i+1] = a - o.Pix[i+1]
		o.Pix[i+2] = a - o.Pix[i+2]
	}
}
