package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"sync/atomic"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-beat/analysis"
	"github.com/RyanBlaney/sonido-beat/logging"
	"github.com/RyanBlaney/sonido-beat/store"
	"github.com/RyanBlaney/sonido-beat/transcode"
)

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Analyze every audio file under a directory into a result store",
	Long: `Scan walks a directory, analyzes each audio file with the fast profile
and writes the results to a badger store. Files whose content and
configuration are unchanged since the last scan are skipped.

Examples:
  sonido scan ~/Music --store ~/.cache/sonido
  sonido scan ./samples --store ./db --workers 4 --list`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().String("store", "sonido.db", "Result store directory")
	scanCmd.Flags().IntP("workers", "w", 0, "Concurrent analyses (default: number of CPUs)")
	scanCmd.Flags().Bool("force", false, "Re-analyze files already in the store")
	scanCmd.Flags().Bool("list", false, "Print the stored tempo of every file after scanning")
	scanCmd.Flags().Bool("no-progress", false, "Disable the progress bar")
}

type scanStats struct {
	analyzed atomic.Int64
	skipped  atomic.Int64
	unknown  atomic.Int64
	failed   atomic.Int64
}

func runScan(cmd *cobra.Command, args []string) error {
	root := args[0]
	flags := cmd.Flags()
	storeDir, _ := flags.GetString("store")
	workers, _ := flags.GetInt("workers")
	force, _ := flags.GetBool("force")
	list, _ := flags.GetBool("list")
	noProgress, _ := flags.GetBool("no-progress")

	profile := "fast"
	if viper.IsSet("profile") {
		profile = viper.GetString("profile")
	}
	config, err := loadConfig(profile)
	if err != nil {
		return err
	}
	warnMissingFFmpeg(config)

	files, err := collectAudioFiles(root)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no audio files under %s", root)
	}

	results, err := store.Open(storeDir)
	if err != nil {
		return err
	}
	defer results.Close()

	analyzer, err := analysis.NewAnalyzer(config)
	if err != nil {
		return err
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	logger := logging.WithFields(logging.Fields{
		"component": "scan",
		"root":      root,
	})
	logger.Info("Scanning", logging.Fields{"files": len(files), "workers": workers})

	output := cmd.ErrOrStderr()
	if noProgress {
		output = nil
	}
	progress := mpb.NewWithContext(cmd.Context(), mpb.WithWidth(64), mpb.WithOutput(output))
	bar := progress.AddBar(int64(len(files)),
		mpb.PrependDecorators(
			decor.Name("Scanning: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)

	var stats scanStats
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(workers)

	for _, path := range files {
		g.Go(func() error {
			defer bar.Increment()
			return scanFile(ctx, analyzer, results, config, path, force, &stats, logger)
		})
	}

	err = g.Wait()
	if err != nil {
		bar.Abort(false)
	}
	progress.Wait()
	if err != nil {
		return err
	}

	logger.Info("Scan complete", logging.Fields{
		"analyzed": stats.analyzed.Load(),
		"skipped":  stats.skipped.Load(),
		"unknown":  stats.unknown.Load(),
		"failed":   stats.failed.Load(),
	})

	if list {
		return listStore(cmd, results)
	}
	return nil
}

// scanFile analyzes one file into the store. Per-file failures are logged
// and counted; only cancellation and store errors stop the scan.
func scanFile(ctx context.Context, analyzer *analysis.Analyzer, results *store.Store, config analysis.Config,
	path string, force bool, stats *scanStats, logger logging.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := store.KeyFor(path, config)
	if err != nil {
		logger.Error(err, "Failed to hash file", logging.Fields{"path": path})
		stats.failed.Add(1)
		return nil
	}

	if !force {
		ok, err := results.Has(key)
		if err != nil {
			return err
		}
		if ok {
			stats.skipped.Add(1)
			return nil
		}
	}

	result, err := analyzer.Analyze(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stats.failed.Add(1)
		return nil
	}

	if _, ok := result.BPM(); !ok {
		stats.unknown.Add(1)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if err := results.Put(key, path, data); err != nil {
		return err
	}
	stats.analyzed.Add(1)
	return nil
}

func collectAudioFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && transcode.IsAudioFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func listStore(cmd *cobra.Command, results *store.Store) error {
	var lines []tempoLine
	err := results.Each(func(rec store.Record) error {
		var result analysis.AnalysisResult
		if err := json.Unmarshal(rec.Result, &result); err != nil {
			return fmt.Errorf("decode %s: %w", rec.Key, err)
		}
		line := tempoLine{Path: rec.Path, Source: string(result.TempoSource())}
		if bpm, ok := result.BPM(); ok {
			line.BPM = &bpm
		}
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].Path < lines[j].Path })
	for _, line := range lines {
		printTempo(cmd, line)
	}
	return nil
}
