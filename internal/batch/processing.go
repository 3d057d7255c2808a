package batch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/zbargo/internal/pipeline"
	"github.com/MeKo-Tech/zbargo/internal/utils"
)

// saveOverlays writes an annotated copy of each scanned image into dir.
func saveOverlays(results []*pipeline.ImageResult, dir string, style pipeline.OverlayStyle) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create overlay directory: %w", err)
	}

	for _, res := range results {
		if res == nil || res.Source == "" {
			continue
		}
		img, _, err := utils.LoadImage(res.Source)
		if err != nil {
			slog.Warn("Failed to reload image for overlay", "path", res.Source, "error", err)
			continue
		}
		out := overlayPath(dir, res.Source)
		if err := utils.SaveImage(out, pipeline.RenderOverlay(img, res, style)); err != nil {
			return fmt.Errorf("failed to save overlay %s: %w", out, err)
		}
		slog.Debug("Saved overlay", "path", out)
	}
	return nil
}

func overlayPath(dir, source string) string {
	base := filepath.Base(source)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, name+"_overlay.png")
}
