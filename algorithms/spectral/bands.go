package spectral

import (
	"fmt"

	"github.com/RyanBlaney/sonido-beat/algorithms/common"
	"github.com/RyanBlaney/sonido-beat/algorithms/windowing"
)

// Default band edges in Hz
const (
	DefaultLowCutoff = 250.0
	DefaultMidCutoff = 2000.0
)

// FrequencyBands holds per-frame band energy, each series peak-normalized to [-1, 1].
// All three series have the same length.
type FrequencyBands struct {
	Low  []float64 `json:"low" yaml:"low"`
	Mid  []float64 `json:"mid" yaml:"mid"`
	High []float64 `json:"high" yaml:"high"`
}

// Frames returns the frame count shared by the three bands
func (b FrequencyBands) Frames() int {
	return len(b.Low)
}

// BandAnalyzer reduces a magnitude spectrogram to low/mid/high energy series.
// Bin f belongs to low when freq <= LowCutoff, mid when
// LowCutoff < freq <= MidCutoff, and high otherwise.
type BandAnalyzer struct {
	LowCutoff  float64
	MidCutoff  float64
	WindowSize int
	HopSize    int
	Window     windowing.Kind
}

// NewBandAnalyzer creates a band analyzer with the default 250/2000 Hz edges
func NewBandAnalyzer(windowSize, hopSize int) *BandAnalyzer {
	return &BandAnalyzer{
		LowCutoff:  DefaultLowCutoff,
		MidCutoff:  DefaultMidCutoff,
		WindowSize: windowSize,
		HopSize:    hopSize,
		Window:     windowing.KindHann,
	}
}

// Analyze computes the STFT of signal and reduces it to frequency bands
func (ba *BandAnalyzer) Analyze(signal []float64, sampleRate int) (*FrequencyBands, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive: %d", sampleRate)
	}
	win, err := windowing.New(ba.Window, ba.WindowSize)
	if err != nil {
		return nil, err
	}
	spec, err := NewSTFT().ComputeWithWindow(signal, ba.WindowSize, ba.HopSize, sampleRate, win)
	if err != nil {
		return nil, fmt.Errorf("compute stft: %w", err)
	}
	return ba.FromSTFT(spec), nil
}

// FromSTFT reduces an existing magnitude spectrogram to frequency bands.
// A band with no bins or no energy normalizes to all zeros.
func (ba *BandAnalyzer) FromSTFT(spec *STFTResult) *FrequencyBands {
	raw := ba.RawEnergies(spec)
	return &FrequencyBands{
		Low:  common.PeakNormalize(raw.Low),
		Mid:  common.PeakNormalize(raw.Mid),
		High: common.PeakNormalize(raw.High),
	}
}

// RawEnergies returns the unnormalized mean magnitude of each band per frame
func (ba *BandAnalyzer) RawEnergies(spec *STFTResult) *FrequencyBands {
	low := make([]float64, spec.TimeFrames)
	mid := make([]float64, spec.TimeFrames)
	high := make([]float64, spec.TimeFrames)

	for t, frame := range spec.Magnitude {
		var lowSum, midSum, highSum float64
		var lowN, midN, highN int

		for k, m := range frame {
			freq := BinFrequency(k, spec.WindowSize, spec.SampleRate)
			switch {
			case freq <= ba.LowCutoff:
				lowSum += m
				lowN++
			case freq <= ba.MidCutoff:
				midSum += m
				midN++
			default:
				highSum += m
				highN++
			}
		}

		low[t] = meanOrZero(lowSum, lowN)
		mid[t] = meanOrZero(midSum, midN)
		high[t] = meanOrZero(highSum, highN)
	}

	return &FrequencyBands{Low: low, Mid: mid, High: high}
}

func meanOrZero(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
