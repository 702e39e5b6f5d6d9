package temporal

import (
	"fmt"

	"github.com/RyanBlaney/sonido-beat/algorithms/common"
	"github.com/RyanBlaney/sonido-beat/algorithms/spectral"
	"github.com/RyanBlaney/sonido-beat/algorithms/windowing"
)

// OnsetDetection computes onset-strength envelopes from audio signals
type OnsetDetection struct {
	spectralFlux *spectral.SpectralFlux
	stft         *spectral.STFT

	WindowSize int
	HopSize    int
	Window     windowing.Kind
}

// NewOnsetDetection creates a new onset detector
func NewOnsetDetection(windowSize, hopSize int) *OnsetDetection {
	return &OnsetDetection{
		spectralFlux: spectral.NewSpectralFlux(),
		stft:         spectral.NewSTFT(),
		WindowSize:   windowSize,
		HopSize:      hopSize,
		Window:       windowing.KindHann,
	}
}

// Envelope computes the onset envelope of signal. The envelope has one
// non-negative value per STFT frame, spectral.FrameCount(len(signal), HopSize).
func (od *OnsetDetection) Envelope(signal []float64, sampleRate int) ([]float64, error) {
	win, err := windowing.New(od.Window, od.WindowSize)
	if err != nil {
		return nil, err
	}

	stftResult, err := od.stft.ComputeWithWindow(signal, od.WindowSize, od.HopSize, sampleRate, win)
	if err != nil {
		return nil, fmt.Errorf("compute stft: %w", err)
	}

	return od.EnvelopeFromSTFT(stftResult), nil
}

// EnvelopeFromSTFT computes the onset envelope from an existing spectrogram
func (od *OnsetDetection) EnvelopeFromSTFT(spec *spectral.STFTResult) []float64 {
	return od.spectralFlux.Compute(spec.Magnitude)
}

// DetectOnsets returns the frames of envelope peaks that reach threshold and
// are at least minIntervalFrames apart
func (od *OnsetDetection) DetectOnsets(envelope []float64, threshold float64, minIntervalFrames int) []int {
	var peaks []int
	last := -minIntervalFrames

	for _, i := range common.LocalMaxima(envelope) {
		if envelope[i] >= threshold && i-last >= minIntervalFrames {
			peaks = append(peaks, i)
			last = i
		}
	}

	return peaks
}

// AdaptiveThreshold returns mean + 2 standard deviations of the envelope
func (od *OnsetDetection) AdaptiveThreshold(envelope []float64) float64 {
	if len(envelope) == 0 {
		return 0.0
	}
	return common.Mean(envelope) + 2.0*common.StandardDeviation(envelope)
}

// IsSilent reports whether the envelope carries no onset energy
func IsSilent(envelope []float64) bool {
	return common.MaxAbs(envelope) < 1e-9
}
