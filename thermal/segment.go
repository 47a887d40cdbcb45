package thermal

import (
	"image"
	"sort"
)

// Hotspot is a connected region of cells whose smoothed score reached the
// high threshold. TempC is attached later from the active calibration
// mapping; it is a derived display value, not part of segmentation.
type Hotspot struct {
	Box        image.Rectangle `json:"box"`
	PixelCount int             `json:"pixels"`
	MeanScore  float64         `json:"meanScore"`
	TempC      float64         `json:"tempC"`
}

// DefaultMinHotspotPix is the minimum component size used when the run
// config does not override it.
func DefaultMinHotspotPix(width, height int) int {
	min := width * height / 2000
	if min < 48 {
		min = 48
	}
	return min
}

// FindHotspots binarizes the smoothed raster at thrHigh (cell is hot iff
// score >= thrHigh) and labels 4-connected components with an iterative
// flood fill. Components smaller than minPix are dropped. Survivors are
// sorted by pixel count descending; ties keep scan order.
//
// The fill uses an explicit index stack rather than recursion so a single
// large hot region cannot blow the call stack.
func FindHotspots(r *ScoreRaster, thrHigh float32, minPix int) []Hotspot {
	w, h := r.Width, r.Height
	if minPix < 1 {
		minPix = 1
	}

	visited := make([]bool, w*h)
	var stack []int
	var spots []Hotspot

	for start := 0; start < w*h; start++ {
		if visited[start] || r.Pix[start] < thrHigh {
			continue
		}

		// Flood one component.
		minX, minY := start%w, start/w
		maxX, maxY := minX, minY
		count := 0
		var sum float64

		visited[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			x, y := idx%w, idx/w
			count++
			sum += float64(r.Pix[idx])
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}

			if x > 0 {
				push(r, visited, &stack, idx-1, thrHigh)
			}
			if x < w-1 {
				push(r, visited, &stack, idx+1, thrHigh)
			}
			if y > 0 {
				push(r, visited, &stack, idx-w, thrHigh)
			}
			if y < h-1 {
				push(r, visited, &stack, idx+w, thrHigh)
			}
		}

		if count < minPix {
			continue
		}
		spots = append(spots, Hotspot{
			Box:        image.Rect(minX, minY, maxX+1, maxY+1),
			PixelCount: count,
			MeanScore:  sum / float64(count),
		})
	}

	sort.SliceStable(spots, func(i, j int) bool {
		return spots[i].PixelCount > spots[j].PixelCount
	})
	return spots
}

func push(r *ScoreRaster, visited []bool, stack *[]int, idx int, thr float32) {
	if !visited[idx] && r.Pix[idx] >= thr {
		visited[idx] = true
		*stack = append(*stack, idx)
	}
}
