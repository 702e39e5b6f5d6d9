package spectral

import (
	"math"
)

// SpectralFlux computes the half-wave rectified log-spectral flux used as the
// onset-strength measure
type SpectralFlux struct {
	// TopDB floors the log spectrogram at this many dB below its peak
	TopDB float64
}

// NewSpectralFlux creates a spectral flux calculator with an 80 dB range
func NewSpectralFlux() *SpectralFlux {
	return &SpectralFlux{TopDB: 80}
}

// Compute returns one flux value per spectrogram frame. Frame 0 has no
// predecessor and is always 0, so len(result) == len(spectrogram).
//
// Each frame is converted to power in dB relative to the loudest bin of the
// whole spectrogram, floored at -TopDB. The flux of frame t is the mean over
// bins of max(0, S[t][f] - S[t-1][f]).
func (sf *SpectralFlux) Compute(spectrogram [][]float64) []float64 {
	flux := make([]float64, len(spectrogram))
	if len(spectrogram) < 2 {
		return flux
	}

	refDB, ok := peakDB(spectrogram)
	if !ok {
		return flux
	}

	// only the previous frame is kept in dB
	prev := sf.rowDB(nil, spectrogram[0], refDB)
	var cur []float64
	for t := 1; t < len(spectrogram); t++ {
		cur = sf.rowDB(cur, spectrogram[t], refDB)
		sum := 0.0
		for f := range min(len(cur), len(prev)) {
			if diff := cur[f] - prev[f]; diff > 0 {
				sum += diff
			}
		}
		if len(cur) > 0 {
			flux[t] = sum / float64(len(cur))
		}
		prev, cur = cur, prev
	}

	return flux
}

const minPower = 1e-10

// peakDB returns the power of the loudest bin in dB. ok is false when the
// spectrogram carries no energy.
func peakDB(spectrogram [][]float64) (float64, bool) {
	peak := 0.0
	for _, frame := range spectrogram {
		for _, m := range frame {
			peak = math.Max(peak, m*m)
		}
	}
	if peak < minPower {
		return 0, false
	}
	return 10 * math.Log10(peak), true
}

// rowDB writes frame as power dB relative to refDB, floored at -TopDB, into
// dst and returns it
func (sf *SpectralFlux) rowDB(dst, frame []float64, refDB float64) []float64 {
	dst = dst[:0]
	floor := -sf.TopDB
	for _, m := range frame {
		db := 10*math.Log10(math.Max(m*m, minPower)) - refDB
		dst = append(dst, math.Max(db, floor))
	}
	return dst
}
