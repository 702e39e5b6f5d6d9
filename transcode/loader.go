package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-beat/algorithms/common"
	sonidoerrors "github.com/RyanBlaney/sonido-beat/errors"
	"github.com/RyanBlaney/sonido-beat/logging"
)

// SampleBuffer is a decoded mono clip at the loader's target rate. It is
// owned by a single analysis run and never shared.
type SampleBuffer struct {
	Samples    []float64 // mono, normalized to [-1, 1]
	SampleRate int
	Duration   float64 // seconds, len(Samples) / SampleRate

	SourceSampleRate int
	SourceChannels   int
	Format           string // "wav" or the transcoder that produced the intermediate
}

// Transcoder converts a container the loader cannot decode natively into a
// WAV intermediate
type Transcoder interface {
	Name() string
	// CanTranscode inspects the path and the first bytes of the file
	CanTranscode(path string, header []byte) bool
	Transcode(ctx context.Context, src, dst string) error
}

// LoaderConfig holds the sample loader configuration
type LoaderConfig struct {
	SampleRate  int     // target rate in Hz
	MaxDuration float64 // seconds, 0 for no cap
	TempDir     string  // directory for intermediates, "" for os.TempDir
}

// Loader decodes audio files into SampleBuffers
type Loader struct {
	config      LoaderConfig
	transcoders []Transcoder
	resampler   *common.Interpolator
	logger      logging.Logger
}

// NewLoader creates a loader. Transcoders are tried in order for files that
// are not WAV.
func NewLoader(config LoaderConfig, transcoders ...Transcoder) *Loader {
	return &Loader{
		config:      config,
		transcoders: transcoders,
		resampler:   common.NewInterpolator(common.Linear),
		logger: logging.WithFields(logging.Fields{
			"component": "sample_loader",
		}),
	}
}

// DefaultTranscoders returns the pure-Go MP3 transcoder followed by ffmpeg
func DefaultTranscoders(config LoaderConfig, ffmpegPath string, timeout time.Duration) []Transcoder {
	ffmpeg := DefaultFFmpegConfig()
	ffmpeg.TargetSampleRate = config.SampleRate
	ffmpeg.ResampleQuality = ""
	ffmpeg.MaxDuration = time.Duration(config.MaxDuration * float64(time.Second))
	ffmpeg.Timeout = timeout
	if ffmpegPath != "" {
		ffmpeg.FFmpegPath = ffmpegPath
		ffmpeg.FFprobePath = filepath.Join(filepath.Dir(ffmpegPath), strings.Replace(filepath.Base(ffmpegPath), "ffmpeg", "ffprobe", 1))
	}

	return []Transcoder{
		NewMP3Transcoder(config.MaxDuration),
		NewFFmpegTranscoder(ffmpeg),
	}
}

// Load decodes path into a mono SampleBuffer at the configured rate.
//
// PCM and 32-bit float WAV files are decoded natively. Other WAV encodings
// and other containers are transcoded to a temporary WAV first; the
// temporary file is removed on every return path.
func (l *Loader) Load(ctx context.Context, path string) (*SampleBuffer, error) {
	logger := l.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Load",
		"path":     path,
	})

	if l.config.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive: %d", sonidoerrors.ErrInvalidConfig, l.config.SampleRate)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, sonidoerrors.NewNotFoundError(path, err)
	}
	if info.IsDir() {
		return nil, sonidoerrors.NewNotFoundError(path, fmt.Errorf("is a directory"))
	}
	if info.Size() == 0 {
		return nil, sonidoerrors.NewDecodeError(path, "unknown", fmt.Errorf("empty file"))
	}

	header, err := readHeader(path)
	if err != nil {
		return nil, sonidoerrors.NewNotFoundError(path, err)
	}

	var pcm *pcmData
	format := "wav"

	native := isWAVHeader(header) || strings.EqualFold(filepath.Ext(path), ".wav")
	if native {
		pcm, err = readWAV(path)
		if err != nil && !errors.Is(err, errUnsupportedEncoding) {
			logger.Error(err, "Failed to decode WAV file")
			return nil, sonidoerrors.NewDecodeError(path, "wav", err)
		}
	}

	if pcm == nil {
		transcoder := l.transcoderFor(path, header)
		if transcoder == nil {
			if err == nil {
				err = fmt.Errorf("unrecognized container")
				format = "unknown"
			}
			decodeErr := sonidoerrors.NewDecodeError(path, format, err)
			logger.Error(decodeErr, "No decoder for file")
			return nil, decodeErr
		}
		if native {
			logger.Debug("WAV encoding not decoded natively, transcoding", logging.Fields{
				"reason": err.Error(),
			})
		}
		format = transcoder.Name()

		pcm, err = l.transcodeAndDecode(ctx, transcoder, path)
		if err != nil {
			logger.Error(err, "Failed to transcode audio file", logging.Fields{
				"transcoder": format,
			})
			return nil, err
		}
	}

	buffer, err := l.toSampleBuffer(pcm)
	if err != nil {
		return nil, sonidoerrors.NewDecodeError(path, format, err)
	}
	buffer.Format = format

	logger.Debug("Audio loaded", logging.Fields{
		"source_sample_rate": buffer.SourceSampleRate,
		"source_channels":    buffer.SourceChannels,
		"format":             format,
		"sample_rate":        buffer.SampleRate,
		"duration":           buffer.Duration,
	})

	return buffer, nil
}

// transcodeAndDecode runs transcoder into a scoped temporary WAV and decodes it
func (l *Loader) transcodeAndDecode(ctx context.Context, transcoder Transcoder, path string) (*pcmData, error) {
	tmp, err := os.CreateTemp(l.config.TempDir, "sonido-*.wav")
	if err != nil {
		return nil, sonidoerrors.NewProcessError(transcoder.Name(), "tempfile", -1, "", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := transcoder.Transcode(ctx, path, tmpPath); err != nil {
		if errors.Is(err, sonidoerrors.ErrDecode) || errors.Is(err, sonidoerrors.ErrTranscode) {
			return nil, err
		}
		return nil, sonidoerrors.NewProcessError(transcoder.Name(), "transcode", -1, "", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pcm, err := readWAV(tmpPath)
	if err != nil {
		return nil, sonidoerrors.NewDecodeError(path, transcoder.Name(), err)
	}
	return pcm, nil
}

func (l *Loader) transcoderFor(path string, header []byte) Transcoder {
	for _, t := range l.transcoders {
		if t.CanTranscode(path, header) {
			return t
		}
	}
	return nil
}

// toSampleBuffer caps, downmixes and resamples decoded PCM
func (l *Loader) toSampleBuffer(pcm *pcmData) (*SampleBuffer, error) {
	if pcm.sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", pcm.sampleRate)
	}

	if l.config.MaxDuration > 0 {
		pcm.truncate(int(l.config.MaxDuration * float64(pcm.sampleRate)))
	}

	samples := pcm.mono()
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio samples decoded")
	}

	samples = l.resampler.ResampleSignal(samples, pcm.sampleRate, l.config.SampleRate)

	return &SampleBuffer{
		Samples:          samples,
		SampleRate:       l.config.SampleRate,
		Duration:         float64(len(samples)) / float64(l.config.SampleRate),
		SourceSampleRate: pcm.sampleRate,
		SourceChannels:   pcm.channels,
	}, nil
}

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, 12)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return header[:n], nil
}

// IsAudioFile reports whether path has an extension the loader can usually
// decode with the default transcoders
func IsAudioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".mp3", ".flac", ".ogg", ".opus", ".m4a", ".aac", ".wma", ".aiff", ".aif":
		return true
	default:
		return false
	}
}
