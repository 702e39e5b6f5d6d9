// Command sonido analyzes audio files for tempo, beats, frequency bands
// and a waveform preview.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-beat/analysis"
	"github.com/RyanBlaney/sonido-beat/logging"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "sonido",
	Short: "Tempo, beat and spectral analysis for audio files",
	Long: `sonido decodes an audio file, estimates its tempo, tracks beats and
summarizes its low/mid/high frequency energy.

Configuration is read from flags, SONIDO_* environment variables and an
optional YAML file, in that order of precedence.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "YAML configuration file")
	flags.String("profile", "full", "Analysis profile: full or fast")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text or json)")
	flags.Int("sample-rate", 0, "Analysis sample rate in Hz (overrides the profile)")
	flags.Float64("max-duration", 0, "Analyze at most this many seconds (overrides the profile)")
	flags.String("ffmpeg", "", "Path to the ffmpeg binary")
	flags.String("temp-dir", "", "Directory for transcoding intermediates")

	for key, flag := range map[string]string{
		"config":               "config",
		"profile":              "profile",
		"log_level":            "log-level",
		"log_format":           "log-format",
		"sample_rate":          "sample-rate",
		"max_duration_seconds": "max-duration",
		"ffmpeg_path":          "ffmpeg",
		"temp_dir":             "temp-dir",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("SONIDO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(analyzeCmd, bpmCmd, scanCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup reads the configuration file and installs the logrus logger
func setup(cmd *cobra.Command, args []string) error {
	if path := viper.GetString("config"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if viper.GetString("log_format") == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	appLogger := logging.LoggerFromAppLogger(logger)
	appLogger.SetLevel(logging.ParseLevel(viper.GetString("log_level")))
	logging.SetGlobalLogger(appLogger)

	if path := viper.ConfigFileUsed(); path != "" {
		logging.Debug("Configuration file loaded", logging.Fields{"path": path})
	}
	return nil
}

// loadConfig resolves the analysis configuration: profile defaults, then
// the YAML file, environment and flags through viper
func loadConfig(profile string) (analysis.Config, error) {
	var base analysis.Config
	switch profile {
	case "", "full":
		base = analysis.FullAnalysisConfig()
	case "fast":
		base = analysis.FastTempoConfig()
	default:
		return analysis.Config{}, fmt.Errorf("unknown profile %q (want full or fast)", profile)
	}

	v := viper.GetViper()
	setDefaults(v, base)

	config := base
	if err := v.Unmarshal(&config); err != nil {
		return analysis.Config{}, fmt.Errorf("decode configuration: %w", err)
	}

	return config, config.Validate()
}

// setDefaults installs c beneath every other source. Viper prefers these
// defaults over the zero defaults of unchanged flags.
func setDefaults(v *viper.Viper, c analysis.Config) {
	v.SetDefault("sample_rate", c.SampleRate)
	v.SetDefault("max_duration_seconds", c.MaxDurationSeconds)
	v.SetDefault("ffmpeg_path", c.FFmpegPath)
	v.SetDefault("temp_dir", c.TempDir)
	v.SetDefault("fft_size", c.FFTSize)
	v.SetDefault("hop_length", c.HopLength)
	v.SetDefault("waveform_hop", c.WaveformHop)
	v.SetDefault("min_signal_seconds", c.MinSignalSeconds)
	v.SetDefault("window", c.Window)
	v.SetDefault("transcode_timeout", c.TranscodeTimeout)
	v.SetDefault("tempo_weights.beat_tracking", c.TempoWeights.BeatTracking)
	v.SetDefault("tempo_weights.autocorrelation", c.TempoWeights.Autocorrelation)
	v.SetDefault("tempo_weights.tempogram", c.TempoWeights.Tempogram)
}
