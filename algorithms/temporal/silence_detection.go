package temporal

// DefaultSilenceThreshold is the block RMS below which a block counts as
// silent, -80 dBFS
const DefaultSilenceThreshold = 1e-4

// SilenceDetection classifies fixed-size blocks of a signal by RMS level
type SilenceDetection struct {
	envelopeExtractor *Envelope
	Threshold         float64
}

// NewSilenceDetection creates a silence detector with the default threshold
func NewSilenceDetection() *SilenceDetection {
	return &SilenceDetection{
		envelopeExtractor: NewEnvelope(),
		Threshold:         DefaultSilenceThreshold,
	}
}

// SilenceRatio returns the fraction of hopSize blocks below the threshold.
// An empty signal is entirely silent.
func (sd *SilenceDetection) SilenceRatio(signal []float64, hopSize int) float64 {
	energies := sd.envelopeExtractor.ComputeRMS(signal, hopSize)
	if len(energies) == 0 {
		return 1
	}

	silentFrames := 0
	for _, energy := range energies {
		if energy < sd.Threshold {
			silentFrames++
		}
	}

	return float64(silentFrames) / float64(len(energies))
}

// IsSilent reports whether every block of the signal is below the threshold
func (sd *SilenceDetection) IsSilent(signal []float64, hopSize int) bool {
	return sd.SilenceRatio(signal, hopSize) == 1
}

// DetectSilence returns [start, end) sample ranges of silence lasting at
// least minSilenceDuration seconds
func (sd *SilenceDetection) DetectSilence(signal []float64, sampleRate, hopSize int, minSilenceDuration float64) [][2]int {
	energies := sd.envelopeExtractor.ComputeRMS(signal, hopSize)
	if len(energies) == 0 || sampleRate <= 0 {
		return nil
	}

	minSilenceFrames := max(1, int(minSilenceDuration*float64(sampleRate)/float64(hopSize)))

	var segments [][2]int
	currentStart := -1
	for i := 0; i <= len(energies); i++ {
		silent := i < len(energies) && energies[i] < sd.Threshold
		switch {
		case silent && currentStart == -1:
			currentStart = i
		case !silent && currentStart != -1:
			if i-currentStart >= minSilenceFrames {
				segments = append(segments, [2]int{currentStart * hopSize, min(i*hopSize, len(signal))})
			}
			currentStart = -1
		}
	}

	return segments
}
