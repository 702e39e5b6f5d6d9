package temporal

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-beat/algorithms/common"
	"github.com/RyanBlaney/sonido-beat/algorithms/spectral"
	sonidoerrors "github.com/RyanBlaney/sonido-beat/errors"
)

// Valid tempo range for a reported estimate, inclusive on both ends
const (
	MinValidBPM = 40.0
	MaxValidBPM = 220.0
)

// TempoWeights are the fusion weights of the three tempo candidates
type TempoWeights struct {
	BeatTracking    float64 `json:"beat_tracking" yaml:"beat_tracking" mapstructure:"beat_tracking"`
	Autocorrelation float64 `json:"autocorrelation" yaml:"autocorrelation" mapstructure:"autocorrelation"`
	Tempogram       float64 `json:"tempogram" yaml:"tempogram" mapstructure:"tempogram"`
}

// DefaultTempoWeights weights direct beat tracking highest
func DefaultTempoWeights() TempoWeights {
	return TempoWeights{
		BeatTracking:    0.4,
		Autocorrelation: 0.3,
		Tempogram:       0.3,
	}
}

// Sum returns the total weight
func (w TempoWeights) Sum() float64 {
	return w.BeatTracking + w.Autocorrelation + w.Tempogram
}

// TempoCandidates holds the independent BPM estimates of the signal path
type TempoCandidates struct {
	BeatTracking    float64 `json:"beat_tracking" yaml:"beat_tracking"`
	Autocorrelation float64 `json:"autocorrelation" yaml:"autocorrelation"`
	Tempogram       float64 `json:"tempogram" yaml:"tempogram"`
}

// FuseTempo combines the candidates by weighted average, rounds to two
// decimals, then validates the rounded value against [MinValidBPM, MaxValidBPM]
func FuseTempo(c TempoCandidates, w TempoWeights) (float64, error) {
	total := w.Sum()
	if total <= 0 || math.IsNaN(total) {
		return 0, fmt.Errorf("%w: tempo weights must sum to a positive value", sonidoerrors.ErrInvalidConfig)
	}

	bpm := (c.BeatTracking*w.BeatTracking +
		c.Autocorrelation*w.Autocorrelation +
		c.Tempogram*w.Tempogram) / total

	return ValidateTempo(common.RoundTo(bpm, 2))
}

// ValidateTempo returns bpm unchanged when it is finite and within the valid
// range and ErrNoReliableTempo otherwise. Out-of-range values are never clamped.
func ValidateTempo(bpm float64) (float64, error) {
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) || bpm < MinValidBPM || bpm > MaxValidBPM {
		return 0, fmt.Errorf("%w: %.2f BPM outside [%.0f, %.0f]", sonidoerrors.ErrNoReliableTempo, bpm, MinValidBPM, MaxValidBPM)
	}
	return bpm, nil
}

// TempoEstimation estimates tempo from an onset envelope by periodicity analysis.
//
// Candidate periods are weighted by a log-normal prior centered on StartBPM
// with a standard deviation of PriorOctaves octaves, which resolves the
// half/double tempo ambiguity of a pulse train toward the common range.
type TempoEstimation struct {
	fft       *spectral.FFT
	tempogram *Tempogram

	StartBPM     float64
	PriorOctaves float64
	MinBPM       float64
	MaxBPM       float64
}

// NewTempoEstimation creates a new tempo estimator searching 30-300 BPM
func NewTempoEstimation() *TempoEstimation {
	return &TempoEstimation{
		fft:          spectral.NewFFT(),
		tempogram:    NewTempogram(),
		StartBPM:     120.0,
		PriorOctaves: 1.0,
		MinBPM:       30.0,
		MaxBPM:       300.0,
	}
}

// FramesPerSecond returns the envelope frame rate
func FramesPerSecond(sampleRate, hopSize int) float64 {
	return float64(sampleRate) / float64(hopSize)
}

// EstimateAutocorrelation estimates tempo from the global autocorrelation of
// the onset envelope
func (te *TempoEstimation) EstimateAutocorrelation(envelope []float64, fps float64) (float64, error) {
	if IsSilent(envelope) {
		return 0, fmt.Errorf("%w: silent onset envelope", sonidoerrors.ErrInsufficientSignal)
	}

	maxLag := te.lagFor(te.MinBPM, fps) + 1
	autocorr := te.fft.Autocorrelate(envelope, maxLag)

	return te.pickTempo(autocorr, fps)
}

// EstimateTempogram estimates tempo from the mean of the local tempogram
func (te *TempoEstimation) EstimateTempogram(envelope []float64, fps float64) (float64, error) {
	if IsSilent(envelope) {
		return 0, fmt.Errorf("%w: silent onset envelope", sonidoerrors.ErrInsufficientSignal)
	}

	if window, _ := te.tempogram.Frames(fps); window < te.lagFor(te.MinBPM, fps)+2 {
		return 0, fmt.Errorf("%w: tempogram window of %d frames cannot resolve %.0f BPM",
			sonidoerrors.ErrInvalidConfig, window, te.MinBPM)
	}

	return te.pickTempo(te.tempogram.Mean(envelope, fps), fps)
}

// pickTempo returns the BPM of the prior-weighted strongest lag in strength
func (te *TempoEstimation) pickTempo(strength []float64, fps float64) (float64, error) {
	minLag := max(1, int(math.Floor(60*fps/te.MaxBPM)))
	maxLag := min(len(strength)-2, te.lagFor(te.MinBPM, fps))
	if minLag > maxLag {
		return 0, fmt.Errorf("%w: envelope of %d frames too short for periodicity analysis",
			sonidoerrors.ErrInsufficientSignal, len(strength))
	}

	weighted := make([]float64, len(strength))
	for lag := minLag; lag <= maxLag; lag++ {
		weighted[lag] = strength[lag] * te.prior(60*fps/float64(lag))
	}

	best := common.ArgMaxRange(weighted, minLag, maxLag+1)
	if best < 0 || weighted[best] <= 0 {
		return 0, fmt.Errorf("%w: no periodicity in onset envelope", sonidoerrors.ErrInsufficientSignal)
	}

	lag := common.ParabolicPeak(strength, best)
	return 60 * fps / lag, nil
}

func (te *TempoEstimation) lagFor(bpm, fps float64) int {
	return int(math.Ceil(60 * fps / bpm))
}

// prior is the log-normal tempo prior, 1 at StartBPM
func (te *TempoEstimation) prior(bpm float64) float64 {
	octaves := math.Log2(bpm/te.StartBPM) / te.PriorOctaves
	return math.Exp(-0.5 * octaves * octaves)
}

// Candidates computes the autocorrelation and tempogram candidates and
// combines them with the tempo measured by the beat tracker
func (te *TempoEstimation) Candidates(envelope []float64, fps float64, beats *BeatResult) (TempoCandidates, error) {
	if beats == nil || beats.Tempo <= 0 {
		return TempoCandidates{}, fmt.Errorf("%w: fewer than two beats tracked", sonidoerrors.ErrInsufficientSignal)
	}

	autocorr, err := te.EstimateAutocorrelation(envelope, fps)
	if err != nil {
		return TempoCandidates{}, fmt.Errorf("autocorrelation tempo: %w", err)
	}

	tempogram, err := te.EstimateTempogram(envelope, fps)
	if err != nil {
		return TempoCandidates{}, fmt.Errorf("tempogram tempo: %w", err)
	}

	return TempoCandidates{
		BeatTracking:    beats.Tempo,
		Autocorrelation: autocorr,
		Tempogram:       tempogram,
	}, nil
}

// ClassifyTempoCategory classifies tempo into broad categories
func ClassifyTempoCategory(tempo float64) string {
	switch {
	case tempo < 60:
		return "very_slow"
	case tempo < 90:
		return "slow"
	case tempo < 120:
		return "moderate"
	case tempo < 150:
		return "fast"
	default:
		return "very_fast"
	}
}
