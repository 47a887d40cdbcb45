package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"heatcam/calibration"
	"heatcam/thermal"
)

// MetricsWriter streams one CSV row per sampled frame with statistics of
// the smoothed scores inside the external landmark mask.
type MetricsWriter struct {
	f *os.File
	w *csv.Writer
}

// NewMetricsWriter opens the CSV file and writes the header row.
func NewMetricsWriter(path string) (*MetricsWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("cannot create metrics file: %v", err)
	}
	w := csv.NewWriter(f)
	header := []string{"frameIdx", "tSec", "maskedPixels", "meanScore", "stddevScore", "tempC"}
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("cannot write metrics header: %v", err)
	}
	return &MetricsWriter{f: f, w: w}, nil
}

// WriteFrame measures the smoothed raster under the mask and appends a
// row. A nil mask measures the whole frame. An empty masked region writes
// zeros rather than failing the run.
func (m *MetricsWriter) WriteFrame(frameIdx int, tSec float64, smoothed *thermal.ScoreRaster, mask *thermal.Mask, mapper *calibration.TempMapper) error {
	var masked []float64
	if mask == nil {
		masked = make([]float64, 0, len(smoothed.Pix))
		for _, v := range smoothed.Pix {
			masked = append(masked, float64(v))
		}
	} else {
		for i, v := range smoothed.Pix {
			if mask.Pix[i] > 0 {
				masked = append(masked, float64(v))
			}
		}
	}

	var mean, stddev, tempC float64
	if len(masked) > 0 {
		mean = stat.Mean(masked, nil)
		if len(masked) > 1 {
			stddev = stat.StdDev(masked, nil)
		}
		tempC = mapper.Temp(mean)
	}

	row := []string{
		strconv.Itoa(frameIdx),
		strconv.FormatFloat(tSec, 'f', 3, 64),
		strconv.Itoa(len(masked)),
		strconv.FormatFloat(mean, 'f', 6, 64),
		strconv.FormatFloat(stddev, 'f', 6, 64),
		strconv.FormatFloat(tempC, 'f', 2, 64),
	}
	if err := m.w.Write(row); err != nil {
		return fmt.Errorf("cannot write metrics row: %v", err)
	}
	return nil
}

// Close flushes and closes the CSV file.
func (m *MetricsWriter) Close() error {
	m.w.Flush()
	if err := m.w.Error(); err != nil {
		m.f.Close()
		return err
	}
	return m.f.Close()
}
