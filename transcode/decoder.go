package transcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	sonidoerrors "github.com/RyanBlaney/sonido-beat/errors"
	"github.com/RyanBlaney/sonido-beat/logging"
)

// FFmpegConfig holds the ffmpeg transcoder configuration
type FFmpegConfig struct {
	TargetSampleRate int           `json:"target_sample_rate"`
	TargetChannels   int           `json:"target_channels"`
	MaxDuration      time.Duration `json:"max_duration"`
	ResampleQuality  string        `json:"resample_quality"` // "fast", "medium", "high"
	FFmpegPath       string        `json:"ffmpeg_path"`      // Path to ffmpeg binary
	FFprobePath      string        `json:"ffprobe_path"`     // Path to ffprobe binary
	Timeout          time.Duration `json:"timeout"`          // Timeout for ffmpeg operations
}

// DefaultFFmpegConfig returns default ffmpeg configuration
func DefaultFFmpegConfig() *FFmpegConfig {
	return &FFmpegConfig{
		TargetSampleRate: 44100,
		TargetChannels:   1,
		MaxDuration:      0, // No limit
		ResampleQuality:  "medium",
		FFmpegPath:       "ffmpeg",  // Assume in PATH
		FFprobePath:      "ffprobe", // Assume in PATH
		Timeout:          60 * time.Second,
	}
}

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// FFmpegTranscoder converts any container ffmpeg understands into a 16-bit
// PCM WAV intermediate at the target rate and channel count
type FFmpegTranscoder struct {
	config *FFmpegConfig
}

// NewFFmpegTranscoder creates a new ffmpeg transcoder
func NewFFmpegTranscoder(config *FFmpegConfig) *FFmpegTranscoder {
	if config == nil {
		config = DefaultFFmpegConfig()
	}
	return &FFmpegTranscoder{config: config}
}

// Name identifies the transcoder in errors and logs
func (d *FFmpegTranscoder) Name() string {
	return "ffmpeg"
}

// CanTranscode reports whether the ffmpeg binary is available. ffmpeg
// sniffs the container itself, so the header is not inspected.
func (d *FFmpegTranscoder) CanTranscode(path string, header []byte) bool {
	_, err := exec.LookPath(d.config.FFmpegPath)
	return err == nil
}

// Transcode runs ffmpeg to write src as a WAV file at dst
func (d *FFmpegTranscoder) Transcode(ctx context.Context, src, dst string) error {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "Transcode",
		"filename":  src,
	})

	if metadata, err := d.Probe(ctx, src); err != nil {
		// The probe is informational; ffmpeg reports the real failure below
		logger.Debug("FFprobe failed, transcoding without metadata", logging.Fields{
			"error": err.Error(),
		})
	} else {
		logger.Debug("Audio metadata detected", logging.Fields{
			"input_sample_rate": metadata.SampleRate,
			"input_channels":    metadata.Channels,
			"input_codec":       metadata.Codec,
			"input_duration":    metadata.Duration,
			"input_bitrate":     metadata.Bitrate,
		})
	}

	args := d.buildFFmpegArgs(src, dst)

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, d.config.FFmpegPath, args...)

	logger.Debug("Running ffmpeg command", logging.Fields{
		"args": strings.Join(args, " "),
	})

	startTime := time.Now()
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return sonidoerrors.NewProcessError(d.Name(), "transcode", -1, "", ctxErr)
		}
		exitCode := -1
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			exitCode = exitError.ExitCode()
		}
		stderr := strings.TrimSpace(string(output))
		logger.Error(err, "Ffmpeg transcode failed", logging.Fields{
			"stderr": stderr,
		})
		return sonidoerrors.NewProcessError(d.Name(), "transcode", exitCode, stderr, err)
	}

	logger.Debug("FFmpeg transcode completed", logging.Fields{
		"transcode_time": time.Since(startTime).Seconds(),
	})

	return nil
}

// Probe uses ffprobe to get audio information from a file
func (d *FFmpegTranscoder) Probe(ctx context.Context, filename string) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet", // Suppress verbose output
		"-print_format", "json", // JSON output
		"-show_streams",          // Show stream info
		"-select_streams", "a:0", // First audio stream only
		filename,
	}

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	output, err := exec.CommandContext(ctx, d.config.FFprobePath, args...).Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, sonidoerrors.NewProcessError("ffprobe", "probe", exitError.ExitCode(), string(exitError.Stderr), err)
		}
		return nil, sonidoerrors.NewProcessError("ffprobe", "probe", -1, "", err)
	}

	return parseFFprobeOutput(output)
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found")
	}

	stream := probe.Streams[0]

	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil {
		sampleRate = 0
	}

	duration, err := strconv.ParseFloat(stream.Duration, 64)
	if err != nil {
		duration = 0
	}

	bitrate, err := strconv.Atoi(stream.BitRate)
	if err != nil {
		bitrate = 0
	}

	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

// buildFFmpegArgs builds the ffmpeg arguments for a WAV intermediate
func (d *FFmpegTranscoder) buildFFmpegArgs(src, dst string) []string {
	args := []string{
		"-v", "error", // Suppress ffmpeg output
		"-y",
		"-i", src,
		"-vn",
		"-map", "0:a:0",
	}

	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.2f", d.config.MaxDuration.Seconds()))
	}

	if d.config.TargetChannels > 0 {
		args = append(args, "-ac", strconv.Itoa(d.config.TargetChannels))
	}

	if d.config.TargetSampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(d.config.TargetSampleRate))
		switch d.config.ResampleQuality {
		case "fast":
			args = append(args, "-af", "aresample=resampler=soxr:precision=16")
		case "medium":
			args = append(args, "-af", "aresample=resampler=soxr:precision=20")
		case "high":
			args = append(args, "-af", "aresample=resampler=soxr:precision=28")
		}
	}

	return append(args, "-acodec", "pcm_s16le", "-f", "wav", dst)
}

// CheckAvailability checks if ffmpeg and ffprobe are available
func (d *FFmpegTranscoder) CheckAvailability() error {
	if err := exec.Command(d.config.FFmpegPath, "-version").Run(); err != nil {
		return fmt.Errorf("ffmpeg not found at %s: %w", d.config.FFmpegPath, err)
	}

	if err := exec.Command(d.config.FFprobePath, "-version").Run(); err != nil {
		return fmt.Errorf("ffprobe not found at %s: %w", d.config.FFprobePath, err)
	}

	return nil
}
