package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-beat/analysis"
	"github.com/RyanBlaney/sonido-beat/logging"
	"github.com/RyanBlaney/sonido-beat/store"
	"github.com/RyanBlaney/sonido-beat/transcode"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Run the full analysis on an audio file",
	Long: `Analyze decodes the file and prints its waveform preview, frequency
bands, beat positions, tempo and duration.

Examples:
  sonido analyze track.wav
  sonido analyze track.mp3 --format yaml
  sonido analyze track.flac --store ~/.cache/sonido`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringP("format", "f", "json", "Output format (json or yaml)")
	analyzeCmd.Flags().String("store", "", "Result store directory; cached results are reused")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	format, _ := cmd.Flags().GetString("format")
	storeDir, _ := cmd.Flags().GetString("store")

	config, err := loadConfig(viper.GetString("profile"))
	if err != nil {
		return err
	}
	warnMissingFFmpeg(config)

	var results *store.Store
	var key store.Key
	if storeDir != "" {
		if results, err = store.Open(storeDir); err != nil {
			return err
		}
		defer results.Close()

		if key, err = store.KeyFor(path, config); err != nil {
			return fmt.Errorf("hash %s: %w", path, err)
		}
		rec, ok, err := results.Get(key)
		if err != nil {
			return err
		}
		if ok {
			logging.Debug("Using stored result", logging.Fields{"path": path, "key": key.String()})
			var cached analysis.AnalysisResult
			if err := json.Unmarshal(rec.Result, &cached); err != nil {
				return fmt.Errorf("decode stored result: %w", err)
			}
			return writeOutput(cmd.OutOrStdout(), format, &cached)
		}
	}

	analyzer, err := analysis.NewAnalyzer(config)
	if err != nil {
		return err
	}

	result, err := analyzer.Analyze(cmd.Context(), path)
	if err != nil {
		return err
	}

	if results != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return err
		}
		if err := results.Put(key, path, data); err != nil {
			return err
		}
	}

	return writeOutput(cmd.OutOrStdout(), format, result)
}

// warnMissingFFmpeg logs once when non-WAV, non-MP3 input cannot be decoded
func warnMissingFFmpeg(config analysis.Config) {
	for _, t := range transcode.DefaultTranscoders(config.LoaderConfig(), config.FFmpegPath, config.TranscodeTimeout) {
		if ff, ok := t.(*transcode.FFmpegTranscoder); ok {
			if err := ff.CheckAvailability(); err != nil {
				logging.Warn("ffmpeg unavailable; only WAV and MP3 input can be decoded", logging.Fields{
					"ffmpeg": config.FFmpegPath,
					"error":  err.Error(),
				})
			}
			return
		}
	}
}
