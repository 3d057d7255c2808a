package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/zbargo/internal/barcode"
	"github.com/MeKo-Tech/zbargo/internal/benchmark"
	"github.com/MeKo-Tech/zbargo/internal/utils"
)

// benchmarkCmd compares the decoder backends on the given images.
var benchmarkCmd = &cobra.Command{
	Use:   "benchmark [files...]",
	Short: "Compare decoder backends on sample images",
	Long: `Decode each image repeatedly with every backend and report the average
decode time, the number of symbols found and the allocations per decode.
The zbar backend is skipped when the engine is not linked.

Examples:
  zbarscan benchmark label.png
  zbarscan benchmark *.png --iterations 50
  zbarscan benchmark ticket.jpg --backends gozxing --formats qr`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		inputs := make([]benchmark.Input, 0, len(args))
		for _, path := range args {
			img, _, err := utils.LoadImage(path)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", path, err)
			}
			inputs = append(inputs, benchmark.Input{Name: path, Image: img})
		}

		runner := benchmark.NewRunner()
		runner.Builder = cfg.ToPipelineBuilder()
		runner.Iterations, _ = cmd.Flags().GetInt("iterations")
		if noWarmup, _ := cmd.Flags().GetBool("no-warmup"); noWarmup {
			runner.Warmup = false
		}
		if names, _ := cmd.Flags().GetStringSlice("backends"); len(names) > 0 {
			for _, n := range names {
				if n != barcode.BackendZBar && n != barcode.BackendGozxing {
					return fmt.Errorf("%w: %q", barcode.ErrUnknownBackend, n)
				}
			}
			runner.Backends = names
		}

		slog.Debug("Running backend benchmark", "images", len(inputs), "backends", runner.Backends,
			"iterations", runner.Iterations)
		comps, err := runner.Run(cmd.Context(), inputs)
		if err != nil {
			return err
		}
		return benchmark.WriteReport(cmd.OutOrStdout(), comps)
	},
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)
	addScannerFlags(benchmarkCmd)
	benchmarkCmd.Flags().IntP("iterations", "n", 10, "decodes per image and backend")
	benchmarkCmd.Flags().StringSlice("backends", nil, "backends to compare (default: zbar,gozxing)")
	benchmarkCmd.Flags().Bool("no-warmup", false, "skip the untimed warmup decode")
}
