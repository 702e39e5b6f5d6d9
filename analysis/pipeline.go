// Package analysis runs the tempo and spectral analysis pipeline over an
// audio file and assembles the serializable result.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-beat/algorithms/filters"
	"github.com/RyanBlaney/sonido-beat/algorithms/spectral"
	"github.com/RyanBlaney/sonido-beat/algorithms/temporal"
	"github.com/RyanBlaney/sonido-beat/algorithms/windowing"
	sonidoerrors "github.com/RyanBlaney/sonido-beat/errors"
	"github.com/RyanBlaney/sonido-beat/logging"
	"github.com/RyanBlaney/sonido-beat/tags"
	"github.com/RyanBlaney/sonido-beat/transcode"
)

// Analyzer runs the analysis pipeline. It holds no per-run state and is
// safe for concurrent use; every run decodes into its own buffers.
type Analyzer struct {
	config    Config
	loader    *transcode.Loader
	tags      TagReader
	onset     *temporal.OnsetDetection
	tracker   *temporal.BeatTracker
	tempo     *temporal.TempoEstimation
	bands     *spectral.BandAnalyzer
	silence   *temporal.SilenceDetection
	assembler *Assembler
	logger    logging.Logger
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithTagReader replaces the embedded tag reader
func WithTagReader(r TagReader) Option {
	return func(a *Analyzer) { a.tags = r }
}

// WithLoader replaces the sample loader
func WithLoader(l *transcode.Loader) Option {
	return func(a *Analyzer) { a.loader = l }
}

// WithLogger sets the logger used for pipeline events
func WithLogger(l logging.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithClock sets the clock stamping CreatedAt on results
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.assembler.now = now }
}

// NewAnalyzer validates config and creates an analyzer
func NewAnalyzer(config Config, opts ...Option) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	kind, _ := windowing.ParseKind(config.Window)

	onset := temporal.NewOnsetDetection(config.FFTSize, config.HopLength)
	onset.Window = kind
	bands := spectral.NewBandAnalyzer(config.FFTSize, config.HopLength)
	bands.Window = kind

	loaderConfig := config.LoaderConfig()
	a := &Analyzer{
		config:    config,
		loader:    transcode.NewLoader(loaderConfig, transcode.DefaultTranscoders(loaderConfig, config.FFmpegPath, config.TranscodeTimeout)...),
		tags:      tags.NewReader(),
		onset:     onset,
		tracker:   temporal.NewBeatTracker(),
		tempo:     temporal.NewTempoEstimation(),
		bands:     bands,
		silence:   temporal.NewSilenceDetection(),
		assembler: NewAssembler(config.WaveformHop),
		logger: logging.WithFields(logging.Fields{
			"component": "analysis",
		}),
	}

	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Config returns the analyzer configuration
func (a *Analyzer) Config() Config {
	return a.config
}

// signalAnalysis holds the tempo-side products of one run
type signalAnalysis struct {
	spec     *spectral.STFTResult
	envelope []float64
	beats    *temporal.BeatResult
	tempo    TempoResult
	tempoErr error
}

// Analyze runs the full pipeline on path. Decode, transcode and
// configuration failures are returned as errors; an unknown tempo is
// reported as a result without BPM.
func (a *Analyzer) Analyze(ctx context.Context, path string) (*AnalysisResult, error) {
	logger := a.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Analyze",
		"path":     path,
	})

	buffer, err := a.loader.Load(ctx, path)
	if err != nil {
		logger.Error(err, "Failed to load audio")
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	sig, err := a.analyzeSignal(ctx, buffer)
	if err != nil {
		return nil, err
	}

	estimator := NewTempoEstimator(a.tags, SignalEstimatorFunc(func(context.Context, string) (TempoResult, error) {
		return sig.tempo, sig.tempoErr
	}))

	var tempo *TempoResult
	result, err := estimator.Estimate(ctx, path)
	switch {
	case err == nil:
		tempo = &result
	case sonidoerrors.IsUnknownTempo(err):
		logger.Warn("BPM unknown", logging.Fields{"reason": err.Error()})
	default:
		return nil, err
	}

	bands := a.bands.FromSTFT(sig.spec)

	var beatTimes []float64
	if sig.beats != nil {
		beatTimes = sig.beats.Times
	}

	analysis := a.assembler.Assemble(buffer, tempo, beatTimes, bands)

	logger.Info("Analysis completed", logging.Fields{
		"duration":     analysis.Duration(),
		"beats":        len(beatTimes),
		"bpm":          tempoField(tempo),
		"tempo_source": string(analysis.TempoSource()),
	})

	return analysis, nil
}

// EstimateTempo loads path and estimates its tempo from the signal alone
func (a *Analyzer) EstimateTempo(ctx context.Context, path string) (TempoResult, error) {
	buffer, err := a.loader.Load(ctx, path)
	if err != nil {
		return TempoResult{}, fmt.Errorf("load %s: %w", path, err)
	}

	sig, err := a.analyzeSignal(ctx, buffer)
	if err != nil {
		return TempoResult{}, err
	}
	return sig.tempo, sig.tempoErr
}

// DetectTempo returns the canonical tempo of path: a valid tag first,
// signal analysis otherwise
func (a *Analyzer) DetectTempo(ctx context.Context, path string) (TempoResult, error) {
	return NewTempoEstimator(a.tags, a).Estimate(ctx, path)
}

// analyzeSignal computes the spectrogram, onset envelope, beats and fused
// signal tempo of buffer. Only cancellation and STFT failures are errors;
// tempo outcomes are stored in tempoErr.
func (a *Analyzer) analyzeSignal(ctx context.Context, buffer *transcode.SampleBuffer) (*signalAnalysis, error) {
	win, err := windowing.New(a.onset.Window, a.config.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sonidoerrors.ErrInvalidConfig, err)
	}

	// the DC blocker is stateful, so each run gets its own
	samples := filters.NewDCRemovalWithCutoff(buffer.SampleRate, filters.DefaultDCCutoff).ProcessBuffer(buffer.Samples)

	spec, err := spectral.NewSTFT().ComputeWithWindow(samples, a.config.FFTSize, a.config.HopLength, buffer.SampleRate, win)
	if err != nil {
		return nil, fmt.Errorf("compute stft: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sig := &signalAnalysis{
		spec:     spec,
		envelope: a.onset.EnvelopeFromSTFT(spec),
	}

	if err := a.checkSignal(buffer, sig.envelope); err != nil {
		sig.tempoErr = err
		return sig, nil
	}

	beats, err := a.tracker.Track(sig.envelope, buffer.SampleRate, a.config.HopLength, buffer.Duration)
	if err != nil {
		sig.tempoErr = err
		return sig, nil
	}
	sig.beats = beats

	if err := beats.EnsureBeats(); err != nil {
		sig.tempoErr = err
		return sig, nil
	}

	fps := temporal.FramesPerSecond(buffer.SampleRate, a.config.HopLength)
	candidates, err := a.tempo.Candidates(sig.envelope, fps, beats)
	if err != nil {
		sig.tempoErr = err
		return sig, nil
	}

	bpm, err := temporal.FuseTempo(candidates, a.config.TempoWeights)
	if err != nil {
		sig.tempoErr = err
		return sig, nil
	}

	a.logger.Debug("Signal tempo estimated", logging.Fields{
		"function":        "analyzeSignal",
		"beat_tracking":   candidates.BeatTracking,
		"autocorrelation": candidates.Autocorrelation,
		"tempogram":       candidates.Tempogram,
		"bpm":             bpm,
		"category":        temporal.ClassifyTempoCategory(bpm),
	})

	sig.tempo = TempoResult{BPM: bpm, Source: TempoSourceSignal, Candidates: &candidates}
	return sig, nil
}

// checkSignal rejects clips too short, too quiet or too sparse in onsets
// for periodicity analysis
func (a *Analyzer) checkSignal(buffer *transcode.SampleBuffer, envelope []float64) error {
	if buffer.Duration < a.config.MinSignalSeconds {
		return fmt.Errorf("%w: clip of %.2fs is shorter than %.2fs",
			sonidoerrors.ErrInsufficientSignal, buffer.Duration, a.config.MinSignalSeconds)
	}

	if a.silence.IsSilent(buffer.Samples, a.config.HopLength) || temporal.IsSilent(envelope) {
		return fmt.Errorf("%w: clip is silent", sonidoerrors.ErrInsufficientSignal)
	}

	minInterval := int(0.05 * temporal.FramesPerSecond(buffer.SampleRate, a.config.HopLength))
	onsets := a.onset.DetectOnsets(envelope, a.onset.AdaptiveThreshold(envelope), minInterval)
	if len(onsets) < 2 {
		return fmt.Errorf("%w: %d onsets detected", sonidoerrors.ErrInsufficientSignal, len(onsets))
	}

	return nil
}

func tempoField(tempo *TempoResult) any {
	if tempo == nil {
		return nil
	}
	return tempo.BPM
}
