package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// NormalizationType defines normalization method
type NormalizationType int

const (
	// Peak divides by the largest absolute value, mapping into [-1, 1]
	Peak NormalizationType = iota
	// ZScore shifts to zero mean and unit sample standard deviation
	ZScore
	// StdScale divides by the sample standard deviation without centering
	StdScale
)

// silenceFloor is the magnitude below which a series is treated as silent
const silenceFloor = 1e-12

// Normalizer provides signal normalization methods. Normalize never returns
// NaN: a silent or constant input normalizes to zeros.
type Normalizer struct {
	method NormalizationType
}

// NewNormalizer creates a new normalizer
func NewNormalizer(method NormalizationType) *Normalizer {
	return &Normalizer{
		method: method,
	}
}

// Normalize returns a normalized copy of signal
func (n *Normalizer) Normalize(signal []float64) []float64 {
	switch n.method {
	case ZScore:
		return n.zScoreNormalize(signal)
	case StdScale:
		return n.stdScale(signal)
	default:
		return PeakNormalize(signal)
	}
}

// PeakNormalize divides signal by its maximum absolute value. An all-zero
// (or empty) signal yields zeros of the same length.
func PeakNormalize(signal []float64) []float64 {
	normalized := make([]float64, len(signal))
	peak := MaxAbs(signal)
	if peak < silenceFloor || math.IsNaN(peak) || math.IsInf(peak, 0) {
		return normalized
	}
	for i, v := range signal {
		normalized[i] = v / peak
	}
	return normalized
}

// zScoreNormalize normalizes to zero mean and unit variance
func (n *Normalizer) zScoreNormalize(signal []float64) []float64 {
	normalized := make([]float64, len(signal))
	if len(signal) == 0 {
		return normalized
	}

	mean := Mean(signal)
	std := StandardDeviation(signal)

	for i, val := range signal {
		if std < silenceFloor {
			normalized[i] = val - mean
		} else {
			normalized[i] = (val - mean) / std
		}
	}
	return normalized
}

// stdScale divides by the standard deviation, keeping the sign and offset of the input
func (n *Normalizer) stdScale(signal []float64) []float64 {
	normalized := make([]float64, len(signal))
	std := StandardDeviation(signal)
	if std < silenceFloor {
		return normalized
	}
	copy(normalized, signal)
	floats.Scale(1/std, normalized)
	return normalized
}
