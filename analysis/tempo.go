package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-beat/algorithms/temporal"
	sonidoerrors "github.com/RyanBlaney/sonido-beat/errors"
	"github.com/RyanBlaney/sonido-beat/logging"
	"github.com/RyanBlaney/sonido-beat/tags"
)

// TempoSource records where a BPM value came from
type TempoSource string

const (
	TempoSourceNone   TempoSource = ""
	TempoSourceTag    TempoSource = "tag"
	TempoSourceSignal TempoSource = "signal"
)

// TempoResult is a validated tempo and its provenance
type TempoResult struct {
	BPM        float64
	Source     TempoSource
	Candidates *temporal.TempoCandidates
}

// TagReader reads embedded tempo tags
type TagReader interface {
	ReadBPM(path string) (tags.BPMTag, bool, error)
}

// SignalEstimator estimates tempo by analyzing the audio itself
type SignalEstimator interface {
	EstimateTempo(ctx context.Context, path string) (TempoResult, error)
}

// SignalEstimatorFunc adapts a function to SignalEstimator
type SignalEstimatorFunc func(ctx context.Context, path string) (TempoResult, error)

// EstimateTempo calls f(ctx, path)
func (f SignalEstimatorFunc) EstimateTempo(ctx context.Context, path string) (TempoResult, error) {
	return f(ctx, path)
}

// TempoEstimator is the single tag-first tempo entry point: a valid embedded
// tempo tag wins and the signal path is never run; otherwise the signal
// estimator decides.
type TempoEstimator struct {
	tags   TagReader
	signal SignalEstimator
	logger logging.Logger
}

// NewTempoEstimator creates a tag-first tempo estimator
func NewTempoEstimator(tagReader TagReader, signal SignalEstimator) *TempoEstimator {
	return &TempoEstimator{
		tags:   tagReader,
		signal: signal,
		logger: logging.WithFields(logging.Fields{
			"component": "tempo_estimator",
		}),
	}
}

// DetectTempoFromTags returns the embedded tempo of path when it is a finite
// number within the valid range. ok is false otherwise.
func (te *TempoEstimator) DetectTempoFromTags(path string) (bpm float64, ok bool, err error) {
	if te.tags == nil {
		return 0, false, nil
	}

	tag, found, err := te.tags.ReadBPM(path)
	if err != nil || !found {
		return 0, false, err
	}

	bpm, err = temporal.ValidateTempo(tag.Value)
	if err != nil {
		te.logger.Debug("Rejecting implausible tempo tag", logging.Fields{
			"function": "DetectTempoFromTags",
			"path":     path,
			"key":      tag.Key,
			"value":    tag.Value,
		})
		return 0, false, nil
	}
	return bpm, true, nil
}

// Estimate returns the tag tempo when valid and the signal tempo otherwise.
// Unknown tempo outcomes are returned as errors matching
// sonidoerrors.IsUnknownTempo.
func (te *TempoEstimator) Estimate(ctx context.Context, path string) (TempoResult, error) {
	logger := te.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Estimate",
		"path":     path,
	})

	bpm, ok, err := te.DetectTempoFromTags(path)
	if err != nil {
		if errors.Is(err, sonidoerrors.ErrNotFound) {
			return TempoResult{}, err
		}
		logger.Warn("Tag read failed, falling back to signal analysis", logging.Fields{
			"error": err.Error(),
		})
	}
	if ok {
		logger.Debug("Tempo taken from tag", logging.Fields{"bpm": bpm})
		return TempoResult{BPM: bpm, Source: TempoSourceTag}, nil
	}

	if te.signal == nil {
		return TempoResult{}, fmt.Errorf("%w: no signal estimator configured", sonidoerrors.ErrInsufficientSignal)
	}

	result, err := te.signal.EstimateTempo(ctx, path)
	if err != nil {
		if sonidoerrors.IsUnknownTempo(err) {
			logger.Warn("Tempo unknown", logging.Fields{"reason": err.Error()})
		}
		return TempoResult{}, err
	}

	result.Source = TempoSourceSignal
	return result, nil
}

// DetectTempoFromTags reads the tempo tag of path with the default tag reader
func DetectTempoFromTags(path string) (float64, bool, error) {
	return NewTempoEstimator(tags.NewReader(), nil).DetectTempoFromTags(path)
}
