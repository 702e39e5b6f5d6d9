package temporal

import (
	"math"

	"github.com/RyanBlaney/sonido-beat/algorithms/common"
)

// Envelope provides amplitude envelope extraction
type Envelope struct {
	// No state needed - stateless calculation
}

// NewEnvelope creates a new envelope extractor
func NewEnvelope() *Envelope {
	return &Envelope{}
}

// ComputeRMS computes the RMS of consecutive blocks of hopSize samples.
// The final partial block is included.
func (e *Envelope) ComputeRMS(signal []float64, hopSize int) []float64 {
	if len(signal) == 0 || hopSize <= 0 {
		return []float64{}
	}

	numBlocks := (len(signal) + hopSize - 1) / hopSize
	envelope := make([]float64, numBlocks)

	for i := range numBlocks {
		start := i * hopSize
		end := min(start+hopSize, len(signal))
		envelope[i] = common.RMS(signal[start:end])
	}

	return envelope
}

// ComputeSignedPeak keeps, for each block of hopSize samples, the sample with
// the largest magnitude, sign included. Its length is ceil(len(signal)/hopSize).
func (e *Envelope) ComputeSignedPeak(signal []float64, hopSize int) []float64 {
	if len(signal) == 0 || hopSize <= 0 {
		return []float64{}
	}

	numBlocks := (len(signal) + hopSize - 1) / hopSize
	envelope := make([]float64, numBlocks)

	for i := range numBlocks {
		start := i * hopSize
		end := min(start+hopSize, len(signal))

		peak := 0.0
		for _, v := range signal[start:end] {
			if math.Abs(v) > math.Abs(peak) {
				peak = v
			}
		}
		envelope[i] = peak
	}

	return envelope
}

// Preview returns the downsampled waveform used for visualization: the
// signed block peaks, peak-normalized to [-1, 1]
func (e *Envelope) Preview(signal []float64, hopSize int) []float64 {
	return common.PeakNormalize(e.ComputeSignedPeak(signal, hopSize))
}
