package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ppiankov/fiscalia/internal/archive"
	"github.com/ppiankov/fiscalia/internal/extract"
	"github.com/ppiankov/fiscalia/internal/model"
	"github.com/ppiankov/fiscalia/internal/store"
	"github.com/ppiankov/fiscalia/internal/worker"
)

// SummaryFileName is written into the output directory after a batch
const SummaryFileName = worker.SummaryFileName

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	noProgress   bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [input-dir]",
	Short: "Classify and archive every NF-e in a folder",
	Long: `Batch processes a folder of NF-e documents concurrently:
- Every .xml and .json file directly inside the folder is classified
- Successes are copied to <output>/<sector>/<YYYY-MM>/<file>
- Failures are reported and the original file is left untouched
- Originals are never moved or deleted

The input folder defaults to batch.input_dir from the configuration.

Example:
  fiscalia batch entrada
  fiscalia batch entrada --output-dir arquivo --workers 4
  fiscalia batch --timeout 5m`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "workers", 0, "number of concurrent workers (default batch.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "archive root (default batch.output_dir)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 0, "total timeout for batch processing (default batch.timeout)")
	batchCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	batchCmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record results in the history database")

	addLLMFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyLLMFlags(cmd, cfg)

	if len(args) == 1 {
		cfg.Batch.InputDir = args[0]
	}
	if cmd.Flags().Changed("workers") {
		cfg.Batch.Workers = concurrency
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.Batch.OutputDir = outputDir
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Batch.Timeout = batchTimeout
	}

	ctx := cmd.Context()
	if cfg.Batch.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Batch.Timeout)
		defer cancel()
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  Fiscalia Batch Processing\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Input dir:    %s\n", cfg.Batch.InputDir)
	fmt.Fprintf(stderr, "  Workers:      %d\n", cfg.Batch.Workers)
	fmt.Fprintf(stderr, "  Output dir:   %s\n", cfg.Batch.OutputDir)
	fmt.Fprintf(stderr, "  Timeout:      %v\n", cfg.Batch.Timeout)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(stderr, "  LLM:          %s\n", cfg.LLM.Provider)
	}
	fmt.Fprintf(stderr, "\n")

	p, _, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	registry := extract.NewRegistry()
	files, err := worker.ListInputs(cfg.Batch.InputDir, registry)
	if err != nil {
		return fmt.Errorf("read input directory: %w", err)
	}
	if len(files) == 0 {
		fmt.Fprintf(stderr, "No supported documents (%v) found in %s\n", registry.Extensions(), cfg.Batch.InputDir)
		return nil
	}

	processor := worker.NewBatchProcessor(registry, p, archive.NewArchiver(cfg.Batch.OutputDir), cfg.Batch.Workers)
	processor.SetSummarize(cfg.LLM.Provider != "")

	history := openStore(ctx, cfg, noHistory)
	if history != nil {
		defer func() { _ = history.Close() }()
	}
	runID := store.NewRunID()

	bar := newProgressBar(stderr, len(files), cfg.Output.Color, noProgress || verbose)
	processor.SetProgress(func(o model.FileOutcome) {
		if bar != nil {
			_ = bar.Add(1)
		}
		if o.Error != "" && bar == nil {
			fmt.Fprintf(stderr, "✗ %s: %s\n", filepath.Base(o.File), o.Error)
		}
		if o.Error == "" && o.Result != nil && history != nil {
			// Recorded even when the batch deadline has passed
			if err := history.Save(context.WithoutCancel(ctx), store.NewRecord(runID, o.File, o.Document, o.Result)); err != nil {
				slog.Warn("failed to record classification", "file", o.File, "error", err)
			}
		}
	})

	summary, err := processor.ProcessDir(ctx, cfg.Batch.InputDir)
	if err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if summaryPath, err := writeBatchSummary(cfg.Batch.OutputDir, summary); err != nil {
		slog.Warn("failed to write batch summary", "error", err)
	} else {
		fmt.Fprintf(stderr, "✓ Wrote %s\n", summaryPath)
	}

	printBatchSummary(stderr, summary)

	if ctx.Err() != nil {
		return fmt.Errorf("batch interrupted: %w", ctx.Err())
	}
	return nil
}

func newProgressBar(w io.Writer, total int, color, disabled bool) *progressbar.ProgressBar {
	if disabled {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(color),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Classifying documents...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
}

// writeBatchSummary stores the summary next to the archived files
func writeBatchSummary(dir string, summary *model.BatchSummary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	path := filepath.Join(dir, SummaryFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}

func printBatchSummary(w io.Writer, summary *model.BatchSummary) {
	failed := 0
	for _, o := range summary.Files {
		if o.Error == "" {
			continue
		}
		if failed == 0 {
			fmt.Fprintf(w, "\nFailed files:\n")
		}
		failed++
		fmt.Fprintf(w, "  ✗ %s: %s\n", filepath.Base(o.File), o.Error)
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Batch Complete\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Total:     %d files\n", summary.Total)
	fmt.Fprintf(w, "  Success:   %d\n", summary.Success)
	fmt.Fprintf(w, "  Failures:  %d\n", summary.Failures)
	fmt.Fprintf(w, "  Output:    %s\n", summary.OutputPath)
	fmt.Fprintf(w, "\n")
}
