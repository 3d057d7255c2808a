package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/zbargo/internal/config"
	"github.com/MeKo-Tech/zbargo/internal/pipeline"
	"github.com/MeKo-Tech/zbargo/internal/utils"
)

// errNoSymbols makes the command exit non-zero when nothing was decoded.
var errNoSymbols = errors.New("no symbols found")

// imageCmd represents the image command.
var imageCmd = &cobra.Command{
	Use:   "image [files...]",
	Short: "Scan images for barcodes and QR codes",
	Long: `Scan one or more image files and print every decoded symbol.

Supported formats: PNG, JPEG, GIF, BMP, TIFF, WebP

Examples:
  zbarscan image label.png
  zbarscan image *.png --format json
  zbarscan image ticket.jpg --formats qr --try-harder
  zbarscan image box.png --set ean13.disable --set upca.enable
  zbarscan image photo.jpg --output results.json --overlay-dir overlays/`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input files provided")
		}

		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		pl, err := cfg.ToPipelineBuilder().Build()
		if err != nil {
			return fmt.Errorf("failed to build scan pipeline: %w", err)
		}
		defer func() {
			if err := pl.Close(); err != nil {
				slog.Warn("Error closing pipeline", "error", err)
			}
		}()
		slog.Debug("Scanning images", "count", len(args), "backend", pl.BackendName())

		results := make([]*pipeline.ImageResult, 0, len(args))
		for _, path := range args {
			res, err := pl.ProcessFile(cmd.Context(), path)
			if err != nil {
				return err
			}
			pipeline.SortBarcodesTopLeft(res)
			if cfg.Output.OverlayDir != "" {
				if err := writeOverlay(cfg, path, res); err != nil {
					return err
				}
			}
			results = append(results, res)
		}

		out, err := pipeline.FormatImageResults(results, cfg.Output.Format)
		if err != nil {
			return err
		}
		if err := writeOutput(cmd.OutOrStdout(), cfg.Output.File, out); err != nil {
			return err
		}

		if noSymbols(results) {
			return errNoSymbols
		}
		return nil
	},
}

func noSymbols(results []*pipeline.ImageResult) bool {
	for _, r := range results {
		if r != nil && len(r.Barcodes) > 0 {
			return false
		}
	}
	return true
}

// writeOverlay reloads the source image and saves it with the detected
// symbols drawn on top.
func writeOverlay(cfg *config.Config, path string, res *pipeline.ImageResult) error {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return fmt.Errorf("failed to reload %s for overlay: %w", path, err)
	}
	ov := pipeline.RenderOverlay(img, res, cfg.OverlayStyle())
	if ov == nil {
		return fmt.Errorf("failed to render overlay for %s", path)
	}
	if err := os.MkdirAll(cfg.Output.OverlayDir, 0o750); err != nil {
		return fmt.Errorf("failed to create overlay directory: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := filepath.Join(cfg.Output.OverlayDir, base+"_overlay.png")
	if err := utils.SaveImage(outPath, ov); err != nil {
		return fmt.Errorf("failed to save overlay: %w", err)
	}
	slog.Info("Saved overlay", "path", outPath)
	return nil
}

// writeOutput writes rendered results to file, or to w when file is empty.
func writeOutput(w io.Writer, file, out string) error {
	if file != "" {
		if err := os.WriteFile(file, []byte(out), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		slog.Info("Results written", "file", file)
		return nil
	}
	if out == "" {
		return nil
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	if _, err := io.WriteString(w, out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(imageCmd)
	addScannerFlags(imageCmd)
	addOutputFlags(imageCmd)
	addOverlayFlags(imageCmd)
}

// GetImageCommand returns the image command for testing purposes.
func GetImageCommand() *cobra.Command {
	return imageCmd
}
