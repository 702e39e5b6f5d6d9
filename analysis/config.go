package analysis

import (
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-beat/algorithms/temporal"
	"github.com/RyanBlaney/sonido-beat/algorithms/windowing"
	sonidoerrors "github.com/RyanBlaney/sonido-beat/errors"
	"github.com/RyanBlaney/sonido-beat/transcode"
)

// Config is the analysis configuration bundle
type Config struct {
	// SampleRate is the rate the clip is resampled to before analysis
	SampleRate int `json:"sample_rate" yaml:"sample_rate" mapstructure:"sample_rate"`
	// MaxDurationSeconds caps the decoded clip, 0 for no cap
	MaxDurationSeconds float64 `json:"max_duration_seconds" yaml:"max_duration_seconds" mapstructure:"max_duration_seconds"`
	FFTSize            int     `json:"fft_size" yaml:"fft_size" mapstructure:"fft_size"`
	HopLength          int     `json:"hop_length" yaml:"hop_length" mapstructure:"hop_length"`
	// WaveformHop is the decimation factor of the waveform preview
	WaveformHop int `json:"waveform_hop" yaml:"waveform_hop" mapstructure:"waveform_hop"`
	// MinSignalSeconds is the shortest clip the tempo estimator will analyze
	MinSignalSeconds float64 `json:"min_signal_seconds" yaml:"min_signal_seconds" mapstructure:"min_signal_seconds"`
	Window           string  `json:"window" yaml:"window" mapstructure:"window"`

	FFmpegPath       string        `json:"ffmpeg_path" yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	TranscodeTimeout time.Duration `json:"transcode_timeout" yaml:"transcode_timeout" mapstructure:"transcode_timeout"`
	TempDir          string        `json:"temp_dir" yaml:"temp_dir" mapstructure:"temp_dir"`

	TempoWeights temporal.TempoWeights `json:"tempo_weights" yaml:"tempo_weights" mapstructure:"tempo_weights"`
}

// FullAnalysisConfig is the interactive profile: 44100 Hz with no duration cap
func FullAnalysisConfig() Config {
	return Config{
		SampleRate:         44100,
		MaxDurationSeconds: 0,
		FFTSize:            2048,
		HopLength:          512,
		WaveformHop:        512,
		MinSignalSeconds:   3,
		Window:             string(windowing.KindHann),
		FFmpegPath:         "ffmpeg",
		TranscodeTimeout:   60 * time.Second,
		TempoWeights:       temporal.DefaultTempoWeights(),
	}
}

// FastTempoConfig is the bulk tempo profile: 22050 Hz capped at 30 seconds
func FastTempoConfig() Config {
	config := FullAnalysisConfig()
	config.SampleRate = 22050
	config.MaxDurationSeconds = 30
	return config
}

// DefaultConfig returns the full analysis profile
func DefaultConfig() Config {
	return FullAnalysisConfig()
}

// Validate checks the configuration for values the pipeline cannot run with
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return invalid("sample_rate must be positive: %d", c.SampleRate)
	case c.FFTSize <= 0:
		return invalid("fft_size must be positive: %d", c.FFTSize)
	case c.HopLength <= 0:
		return invalid("hop_length must be positive: %d", c.HopLength)
	case c.HopLength > c.FFTSize:
		return invalid("hop_length %d exceeds fft_size %d", c.HopLength, c.FFTSize)
	case c.WaveformHop <= 0:
		return invalid("waveform_hop must be positive: %d", c.WaveformHop)
	case c.MaxDurationSeconds < 0:
		return invalid("max_duration_seconds must not be negative: %v", c.MaxDurationSeconds)
	case c.MinSignalSeconds < 0:
		return invalid("min_signal_seconds must not be negative: %v", c.MinSignalSeconds)
	case c.TranscodeTimeout < 0:
		return invalid("transcode_timeout must not be negative: %v", c.TranscodeTimeout)
	}

	if _, err := windowing.ParseKind(c.Window); err != nil {
		return invalid("%v", err)
	}

	w := c.TempoWeights
	if w.BeatTracking < 0 || w.Autocorrelation < 0 || w.Tempogram < 0 || w.Sum() <= 0 {
		return invalid("tempo_weights must be non-negative with a positive sum: %+v", w)
	}

	return nil
}

// LoaderConfig returns the sample loader settings of c
func (c Config) LoaderConfig() transcode.LoaderConfig {
	return transcode.LoaderConfig{
		SampleRate:  c.SampleRate,
		MaxDuration: c.MaxDurationSeconds,
		TempDir:     c.TempDir,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", sonidoerrors.ErrInvalidConfig, fmt.Sprintf(format, args...))
}
