package temporal

import (
	"math"

	"github.com/RyanBlaney/sonido-beat/algorithms/spectral"
	"github.com/RyanBlaney/sonido-beat/algorithms/windowing"
)

// Default tempogram geometry, 384 and 4 frames of a 512-sample hop at 22050 Hz
const (
	DefaultTempogramWindow = 384 * 512 / 22050.0
	DefaultTempogramStride = 4 * 512 / 22050.0
)

// Tempogram computes the local autocorrelation tempogram of an onset envelope.
// Window and stride are in seconds so the lag range they cover does not
// depend on the envelope frame rate.
type Tempogram struct {
	fft *spectral.FFT

	// WindowSeconds is the analysis window length
	WindowSeconds float64
	// StrideSeconds is the step between tempogram columns
	StrideSeconds float64
}

// NewTempogram creates a tempogram with the default window and stride
func NewTempogram() *Tempogram {
	return &Tempogram{
		fft:           spectral.NewFFT(),
		WindowSeconds: DefaultTempogramWindow,
		StrideSeconds: DefaultTempogramStride,
	}
}

// Frames returns the window and stride in envelope frames at fps
func (tg *Tempogram) Frames(fps float64) (window, stride int) {
	if fps <= 0 || tg.WindowSeconds <= 0 {
		return 0, 0
	}
	window = int(math.Round(tg.WindowSeconds * fps))
	stride = max(1, int(math.Round(tg.StrideSeconds*fps)))
	return window, stride
}

// Compute returns one column per stride. Column c is the autocorrelation,
// lags 0..window-1, of the Hann-windowed envelope centered on frame
// c*stride, normalized so lag 0 equals 1. Columns over silent regions are
// all zero.
func (tg *Tempogram) Compute(envelope []float64, fps float64) [][]float64 {
	window, stride := tg.Frames(fps)
	if len(envelope) == 0 || window <= 0 {
		return nil
	}

	win := windowing.NewHann(window)
	half := window / 2
	segment := make([]float64, window)

	var columns [][]float64
	for center := 0; center < len(envelope); center += stride {
		for i := range segment {
			idx := center - half + i
			if idx >= 0 && idx < len(envelope) {
				segment[i] = envelope[idx]
			} else {
				segment[i] = 0
			}
		}
		// sizes match by construction
		_ = win.ApplyInPlace(segment)

		column := tg.fft.Autocorrelate(segment, window-1)
		if column[0] > 1e-12 {
			norm := column[0]
			for k := range column {
				column[k] /= norm
			}
		} else {
			clear(column)
		}
		columns = append(columns, column)
	}

	return columns
}

// Mean returns the tempogram averaged over time
func (tg *Tempogram) Mean(envelope []float64, fps float64) []float64 {
	columns := tg.Compute(envelope, fps)
	if len(columns) == 0 {
		return nil
	}

	mean := make([]float64, len(columns[0]))
	for _, column := range columns {
		for k, v := range column {
			mean[k] += v
		}
	}
	for k := range mean {
		mean[k] /= float64(len(columns))
	}

	return mean
}
