package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/zbargo/internal/pdf"
	"github.com/MeKo-Tech/zbargo/internal/pipeline"
)

// pdfCmd represents the pdf command.
var pdfCmd = &cobra.Command{
	Use:   "pdf [files...]",
	Short: "Scan images embedded in PDF documents",
	Long: `Extract the images embedded in PDF documents and scan each of them.
Pages without embedded images produce no output.

Examples:
  zbarscan pdf invoice.pdf
  zbarscan pdf shipment.pdf --pages 1-3,5 --format json
  zbarscan pdf protected.pdf --password secret`,
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
		pages, _ := cmd.Flags().GetString("pages")
		if _, err := pdf.ParsePageRange(pages); err != nil {
			return fmt.Errorf("invalid page range: %w", err)
		}
		var creds *pdf.Credentials
		if pw, _ := cmd.Flags().GetString("password"); pw != "" {
			creds = &pdf.Credentials{UserPassword: pw, OwnerPassword: pw}
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

		outputs := make([]string, 0, len(args))
		found := false
		for _, path := range args {
			res, err := pl.ProcessPDFWithCredentials(cmd.Context(), path, pages, creds)
			if err != nil {
				if pdf.IsPasswordError(err) {
					return fmt.Errorf("%s is encrypted, use --password: %w", path, err)
				}
				return fmt.Errorf("failed to scan %s: %w", path, err)
			}
			found = found || len(res.Barcodes()) > 0
			out, err := pipeline.FormatPDFResult(res, cfg.Output.Format)
			if err != nil {
				return err
			}
			if len(args) > 1 && isTextFormat(cfg.Output.Format) {
				out = "# " + path + "\n" + out
			}
			outputs = append(outputs, out)
		}

		if err := writeOutput(cmd.OutOrStdout(), cfg.Output.File, strings.Join(outputs, "\n")); err != nil {
			return err
		}
		if !found {
			return errNoSymbols
		}
		return nil
	},
}

func isTextFormat(format string) bool {
	return format == "" || strings.EqualFold(format, pipeline.FormatText)
}

func init() {
	rootCmd.AddCommand(pdfCmd)
	addScannerFlags(pdfCmd)
	addOutputFlags(pdfCmd)
	pdfCmd.Flags().String("pages", "", "page range to scan, e.g. 1-3,5 (default: all pages)")
	pdfCmd.Flags().String("password", "", "password for encrypted documents")
}
