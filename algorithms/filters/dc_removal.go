// Package filters holds sample-domain filters applied before analysis.
package filters

import (
	"math"
)

// DefaultDCCutoff is the -3 dB point of the DC blocker in Hz
const DefaultDCCutoff = 10.0

// DCRemoval is a one-pole DC blocking filter:
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// See https://ccrma.stanford.edu/~jos/filters/DC_Blocker.html. It keeps
// state between samples, so one instance serves one signal at a time.
type DCRemoval struct {
	poleLocation float64

	x1 float64
	y1 float64
}

// NewDCRemoval creates a DC blocker with the standard R = 0.995
func NewDCRemoval() *DCRemoval {
	return &DCRemoval{poleLocation: 0.995}
}

// NewDCRemovalWithCutoff creates a DC blocker with a -3 dB point near
// cutoffFreq, using R = 1 - 2*pi*fc/fs
func NewDCRemovalWithCutoff(sampleRate int, cutoffFreq float64) *DCRemoval {
	dc := NewDCRemoval()
	if sampleRate > 0 && cutoffFreq > 0 {
		r := 1.0 - 2.0*math.Pi*cutoffFreq/float64(sampleRate)
		dc.poleLocation = math.Min(math.Max(r, 0.001), 0.999)
	}
	return dc
}

// Process filters a single sample
func (dc *DCRemoval) Process(input float64) float64 {
	output := input - dc.x1 + dc.poleLocation*dc.y1
	dc.x1 = input
	dc.y1 = output
	return output
}

// ProcessBuffer filters a whole signal into a new slice
func (dc *DCRemoval) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = dc.Process(sample)
	}
	return output
}

// Reset clears the filter state
func (dc *DCRemoval) Reset() {
	dc.x1 = 0
	dc.y1 = 0
}

// PoleLocation returns R
func (dc *DCRemoval) PoleLocation() float64 {
	return dc.poleLocation
}

// CutoffFrequency returns the approximate -3 dB point, (1-R)*fs/(2*pi)
func (dc *DCRemoval) CutoffFrequency(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return (1.0 - dc.poleLocation) * float64(sampleRate) / (2.0 * math.Pi)
}
