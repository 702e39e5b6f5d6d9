package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-beat/analysis"
	sonidoerrors "github.com/RyanBlaney/sonido-beat/errors"
	"github.com/RyanBlaney/sonido-beat/logging"
)

var bpmCmd = &cobra.Command{
	Use:   "bpm <file>...",
	Short: "Print the tempo of audio files",
	Long: `Bpm prints the tempo of each file: the embedded tempo tag when it is
plausible, signal analysis otherwise. Files default to the fast profile.

Examples:
  sonido bpm track.mp3
  sonido bpm --tags-only *.mp3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBPM,
}

func init() {
	bpmCmd.Flags().Bool("tags-only", false, "Only read embedded tempo tags")
	bpmCmd.Flags().StringP("format", "f", "text", "Output format (text, json or yaml)")
}

// tempoLine is one row of bpm output
type tempoLine struct {
	Path   string   `json:"path" yaml:"path"`
	BPM    *float64 `json:"bpm" yaml:"bpm"`
	Source string   `json:"source,omitempty" yaml:"source,omitempty"`
	Error  string   `json:"error,omitempty" yaml:"error,omitempty"`
}

func runBPM(cmd *cobra.Command, args []string) error {
	tagsOnly, _ := cmd.Flags().GetBool("tags-only")
	format, _ := cmd.Flags().GetString("format")

	profile := "fast"
	if viper.IsSet("profile") {
		profile = viper.GetString("profile")
	}
	config, err := loadConfig(profile)
	if err != nil {
		return err
	}

	analyzer, err := analysis.NewAnalyzer(config)
	if err != nil {
		return err
	}

	var failed int
	lines := make([]tempoLine, 0, len(args))
	for _, path := range args {
		line := tempoLine{Path: path}

		if tagsOnly {
			bpm, ok, err := analysis.DetectTempoFromTags(path)
			switch {
			case err != nil:
				line.Error = err.Error()
				failed++
			case ok:
				line.BPM, line.Source = &bpm, string(analysis.TempoSourceTag)
			}
		} else {
			tempo, err := analyzer.DetectTempo(cmd.Context(), path)
			switch {
			case err == nil:
				line.BPM, line.Source = &tempo.BPM, string(tempo.Source)
			case sonidoerrors.IsUnknownTempo(err):
			default:
				logging.Error(err, "Tempo detection failed", logging.Fields{"path": path})
				line.Error = err.Error()
				failed++
			}
		}

		if format == "text" {
			printTempo(cmd, line)
		}
		lines = append(lines, line)
	}

	if format != "text" {
		if err := writeOutput(cmd.OutOrStdout(), format, lines); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

func printTempo(cmd *cobra.Command, line tempoLine) {
	out := cmd.OutOrStdout()
	switch {
	case line.Error != "":
		fmt.Fprintf(out, "%s\terror\t%s\n", line.Path, line.Error)
	case line.BPM == nil:
		fmt.Fprintf(out, "%s\tunknown\n", line.Path)
	default:
		fmt.Fprintf(out, "%s\t%.2f\t%s\n", line.Path, *line.BPM, line.Source)
	}
}
