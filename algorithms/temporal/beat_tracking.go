package temporal

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-beat/algorithms/common"
	sonidoerrors "github.com/RyanBlaney/sonido-beat/errors"
)

// BeatResult is the output of the beat tracker
type BeatResult struct {
	// Frames are the beat positions in envelope frames, strictly increasing
	Frames []int
	// Times are the beat positions in seconds, strictly increasing and
	// below the clip duration
	Times []float64
	// Tempo is 60 over the mean inter-beat interval, 0 with fewer than two beats
	Tempo float64
	// TrackingTempo is the internal tempo estimate that set the beat period
	TrackingTempo float64
}

// BeatTracker locates beats by dynamic programming over the onset envelope.
//
// Each frame's score is the Gaussian-smoothed onset strength plus the best
// score of a predecessor between 1/2 and 2 beat periods back, penalized by
// Tightness times the squared log ratio of the gap to the period.
type BeatTracker struct {
	estimator *TempoEstimation

	Tightness float64
}

// NewBeatTracker creates a beat tracker with its own tempo estimator
func NewBeatTracker() *BeatTracker {
	return &BeatTracker{
		estimator: NewTempoEstimation(),
		Tightness: 100,
	}
}

// Track returns the beats of envelope. hopSize and sampleRate convert frames
// to seconds; beats at or beyond duration are dropped.
func (bt *BeatTracker) Track(envelope []float64, sampleRate, hopSize int, duration float64) (*BeatResult, error) {
	if sampleRate <= 0 || hopSize <= 0 {
		return nil, fmt.Errorf("invalid frame rate: sample rate %d, hop %d", sampleRate, hopSize)
	}
	fps := FramesPerSecond(sampleRate, hopSize)

	tempo, err := bt.estimator.EstimateAutocorrelation(envelope, fps)
	if err != nil {
		return nil, err
	}
	period := 60 * fps / tempo

	localScore := bt.localScore(envelope, period)
	frames := bt.dynamicProgram(localScore, period)
	frames = trimBeats(localScore, frames)

	result := &BeatResult{TrackingTempo: tempo}
	for _, f := range frames {
		t := float64(f) * float64(hopSize) / float64(sampleRate)
		if t >= duration {
			break
		}
		result.Frames = append(result.Frames, f)
		result.Times = append(result.Times, t)
	}

	if n := len(result.Times); n >= 2 {
		interval := (result.Times[n-1] - result.Times[0]) / float64(n-1)
		result.Tempo = 60 / interval
	}

	return result, nil
}

// localScore scales the envelope to unit standard deviation and smooths it
// with a Gaussian of width period/32
func (bt *BeatTracker) localScore(envelope []float64, period float64) []float64 {
	norm := common.NewNormalizer(common.StdScale).Normalize(envelope)

	radius := int(math.Round(period))
	kernel := make([]float64, 2*radius+1)
	for k := -radius; k <= radius; k++ {
		x := float64(k) * 32 / period
		kernel[k+radius] = math.Exp(-0.5 * x * x)
	}

	score := make([]float64, len(norm))
	for i := range score {
		sum := 0.0
		for k := -radius; k <= radius; k++ {
			if j := i + k; j >= 0 && j < len(norm) {
				sum += norm[j] * kernel[k+radius]
			}
		}
		score[i] = sum
	}

	return score
}

// dynamicProgram accumulates beat scores and backtracks from the last
// confident peak
func (bt *BeatTracker) dynamicProgram(localScore []float64, period float64) []int {
	n := len(localScore)
	if n == 0 {
		return nil
	}

	cumScore := make([]float64, n)
	backlink := make([]int, n)

	far := int(math.Round(2 * period))
	near := max(1, int(math.Round(period/2)))

	for i := range n {
		bestIdx := -1
		bestScore := math.Inf(-1)

		for j := max(0, i-far); j <= i-near; j++ {
			gap := math.Log(float64(i-j) / period)
			candidate := cumScore[j] - bt.Tightness*gap*gap
			if candidate > bestScore {
				bestScore = candidate
				bestIdx = j
			}
		}

		cumScore[i] = localScore[i]
		backlink[i] = -1
		if bestIdx >= 0 && bestScore > 0 {
			cumScore[i] += bestScore
			backlink[i] = bestIdx
		}
	}

	last := lastBeat(cumScore)
	if last < 0 {
		return nil
	}

	var beats []int
	for b := last; b >= 0; b = backlink[b] {
		beats = append(beats, b)
	}
	for i, j := 0, len(beats)-1; i < j; i, j = i+1, j-1 {
		beats[i], beats[j] = beats[j], beats[i]
	}

	return beats
}

// lastBeat returns the last local maximum of cumScore that exceeds half the
// median local-maximum score, or -1
func lastBeat(cumScore []float64) int {
	peaks := common.LocalMaxima(cumScore)
	if len(peaks) == 0 {
		return -1
	}

	values := make([]float64, len(peaks))
	for i, p := range peaks {
		values[i] = cumScore[p]
	}
	threshold := 0.5 * common.Median(values)

	for i := len(peaks) - 1; i >= 0; i-- {
		if cumScore[peaks[i]] > threshold {
			return peaks[i]
		}
	}
	return -1
}

// trimBeats drops weak beats at both ends, where the envelope fades in or out
func trimBeats(localScore []float64, beats []int) []int {
	if len(beats) == 0 {
		return beats
	}

	scores := make([]float64, len(beats))
	for i, b := range beats {
		scores[i] = localScore[b]
	}
	threshold := 0.5 * common.RMS(scores)

	start, end := 0, len(beats)
	for start < end && localScore[beats[start]] <= threshold {
		start++
	}
	for end > start && localScore[beats[end-1]] <= threshold {
		end--
	}

	return beats[start:end]
}

// EnsureBeats returns ErrInsufficientSignal when fewer than two beats were found
func (r *BeatResult) EnsureBeats() error {
	if r == nil || len(r.Times) < 2 {
		return fmt.Errorf("%w: fewer than two beats tracked", sonidoerrors.ErrInsufficientSignal)
	}
	return nil
}
