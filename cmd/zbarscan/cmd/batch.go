package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/zbargo/internal/batch"
	"github.com/MeKo-Tech/zbargo/internal/config"
)

// batchCmd represents the batch command for parallel image scanning.
var batchCmd = &cobra.Command{
	Use:   "batch [files or directories...]",
	Short: "Scan many images in parallel",
	Long: `Scan image files and directories on a pool of workers. Each worker owns
its own decoder, so throughput scales with the number of cores.

Examples:
  zbarscan batch *.png
  zbarscan batch scans/ --recursive --workers 8
  zbarscan batch scans/ --include '*.jpg' --exclude 'thumb_*' --format csv -o codes.csv
  zbarscan batch scans/ --continue-on-error --stats`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

// configToBatchConfig maps the resolved configuration and the discovery flags
// to a batch.Config.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	bc := batch.DefaultConfig()
	bc.Builder = cfg.ToPipelineBuilder()
	bc.Workers = cfg.Batch.Workers
	bc.ContinueOnError = cfg.Batch.ContinueOnError
	bc.Recursive = cfg.Batch.Recursive
	bc.Format = cfg.Output.Format
	bc.OutputFile = cfg.Output.File
	bc.OverlayDir = cfg.Output.OverlayDir
	bc.Overlay = cfg.OverlayStyle()

	bc.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	bc.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")
	bc.ProgressInterval, _ = cmd.Flags().GetDuration("progress-interval")
	bc.ProgressWriter = cmd.ErrOrStderr()
	bc.ShowProgress = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	if cmd.Flags().Changed("progress") {
		bc.ShowProgress, _ = cmd.Flags().GetBool("progress")
	}
	return bc
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	bc := configToBatchConfig(cfg, cmd)

	result, err := batch.ProcessBatch(cmd.Context(), args, bc)
	if err != nil {
		if errors.Is(err, batch.ErrNoImages) {
			return err
		}
		return fmt.Errorf("batch processing failed: %w", err)
	}

	if err := batch.SaveResults(cmd.OutOrStdout(), result, bc); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	if showStats, _ := cmd.Flags().GetBool("stats"); showStats {
		result.WriteStats(cmd.ErrOrStderr())
	}
	for _, f := range result.Failures {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %s\n", f.Path, f.Error)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addScannerFlags(batchCmd)
	addOutputFlags(batchCmd)
	addOverlayFlags(batchCmd)

	// Parallel processing flags
	batchCmd.Flags().IntP("workers", "w", 0, "number of parallel workers (default: number of CPUs)")
	batchCmd.Flags().Bool("continue-on-error", false, "keep going when an image cannot be scanned")

	// File discovery flags
	batchCmd.Flags().BoolP("recursive", "r", false, "recursively scan directories")
	batchCmd.Flags().StringSlice("include", nil, "file patterns to include (default: every supported image)")
	batchCmd.Flags().StringSlice("exclude", nil, "file patterns to exclude")

	// Progress and monitoring flags
	batchCmd.Flags().Bool("progress", false, "show a progress bar (default: when stderr is a terminal)")
	batchCmd.Flags().Bool("quiet", false, "suppress progress output (--stats still prints)")
	batchCmd.Flags().Bool("stats", false, "show processing statistics")
	batchCmd.Flags().Duration("progress-interval", 500*time.Millisecond, "progress update interval")

	registerBindings(batchCmd,
		flagBinding{"batch.workers", "workers"},
		flagBinding{"batch.recursive", "recursive"},
		flagBinding{"batch.continue_on_error", "continue-on-error"},
	)
}
