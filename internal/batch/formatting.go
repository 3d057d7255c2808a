package batch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/zbargo/internal/pipeline"
)

// report is the structured batch output.
type report struct {
	Images   []*pipeline.ImageResult `json:"images" yaml:"images"`
	Failures []Failure               `json:"failures,omitempty" yaml:"failures,omitempty"`
	Stats    pipeline.ParallelStats  `json:"stats" yaml:"stats"`
}

// formatBatchResults renders successful results; structured formats also
// carry failures and run statistics.
func formatBatchResults(r *Result, format string) (string, error) {
	if r == nil {
		return "", nil
	}
	scanned := make([]*pipeline.ImageResult, 0, len(r.Results))
	for _, res := range r.Results {
		if res != nil {
			scanned = append(scanned, res)
		}
	}

	switch strings.ToLower(format) {
	case pipeline.FormatJSON:
		data, err := json.MarshalIndent(report{Images: scanned, Failures: r.Failures, Stats: r.Stats()}, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	case pipeline.FormatYAML:
		data, err := yaml.Marshal(report{Images: scanned, Failures: r.Failures, Stats: r.Stats()})
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return pipeline.FormatImageResults(scanned, format)
	}
}

// SaveResults writes formatted output to the configured file, or to w when
// no file is set.
func SaveResults(w io.Writer, r *Result, config *Config) error {
	output, err := r.FormatResults(config.Format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if config.OutputFile == "" {
		if output == "" {
			return nil
		}
		if !strings.HasSuffix(output, "\n") {
			output += "\n"
		}
		_, err := io.WriteString(w, output)
		return err
	}
	if err := os.WriteFile(config.OutputFile, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
