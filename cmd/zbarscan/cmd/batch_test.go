package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/config"
)

func TestBatchCommandCSV(t *testing.T) {
	dir := t.TempDir()
	writeQR(t, dir, "a.png", "alpha")
	writeQR(t, dir, "b.png", "beta")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o600))

	stdout, _, err := executeCommand(t, "batch", dir, "--backend", "gozxing", "-f", "csv", "--quiet", "-w", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "QR-Code,qr,alpha")
	assert.Contains(t, stdout, "QR-Code,qr,beta")
	assert.NotContains(t, stdout, "notes.txt")
}

func TestBatchCommandRecursiveAndPatterns(t *testing.T) {
	dir := t.TempDir()
	writeQR(t, dir, "top.png", "top")
	writeQR(t, filepath.Join(dir, "nested"), "deep.png", "deep")
	writeQR(t, filepath.Join(dir, "nested"), "thumb_deep.png", "thumb")

	stdout, _, err := executeCommand(t, "batch", dir, "--backend", "gozxing", "--quiet")
	require.NoError(t, err)
	assert.Contains(t, stdout, "QR-Code:top")
	assert.NotContains(t, stdout, "deep")

	stdout, _, err = executeCommand(t, "batch", dir, "--backend", "gozxing", "--quiet",
		"--recursive", "--exclude", "thumb_*")
	require.NoError(t, err)
	assert.Contains(t, stdout, "QR-Code:deep")
	assert.NotContains(t, stdout, "QR-Code:thumb")
}

func TestBatchCommandJSONWithStats(t *testing.T) {
	dir := t.TempDir()
	writeQR(t, dir, "a.png", "alpha")

	stdout, stderr, err := executeCommand(t, "batch", dir, "--backend", "gozxing", "-f", "json", "--stats", "--progress=false")
	require.NoError(t, err)

	var report struct {
		Images []struct {
			Barcodes []struct {
				Value string `json:"value"`
			} `json:"barcodes"`
		} `json:"images"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	require.Len(t, report.Images, 1)
	require.Len(t, report.Images[0].Barcodes, 1)
	assert.Equal(t, "alpha", report.Images[0].Barcodes[0].Value)
	assert.Contains(t, stderr, "Processing Statistics:")
}

func TestBatchCommandContinueOnError(t *testing.T) {
	dir := t.TempDir()
	writeQR(t, dir, "good.png", "good")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0o600))

	_, _, err := executeCommand(t, "batch", dir, "--backend", "gozxing", "--quiet")
	require.Error(t, err)

	stdout, stderr, err := executeCommand(t, "batch", dir, "--backend", "gozxing", "--quiet", "--continue-on-error")
	require.NoError(t, err)
	assert.Contains(t, stdout, "QR-Code:good")
	assert.Contains(t, stderr, "failed: "+filepath.Join(dir, "broken.png"))
}

func TestBatchCommandQuietKeepsStats(t *testing.T) {
	dir := t.TempDir()
	writeQR(t, dir, "a.png", "quiet stats")

	stdout, stderr, err := executeCommand(t, "batch", dir, "--backend", "gozxing", "--quiet", "--stats")
	require.NoError(t, err)
	assert.Contains(t, stdout, "QR-Code:quiet stats")
	assert.Contains(t, stderr, "Processing Statistics:")
}

func TestBatchCommandNoImages(t *testing.T) {
	_, _, err := executeCommand(t, "batch", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image files found")
}

func TestConfigToBatchConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Batch.Workers = 3
	cfg.Batch.Recursive = true
	cfg.Output.Format = "yaml"
	cfg.Output.OverlayDir = "ov"

	resetFlags(batchCmd)
	require.NoError(t, batchCmd.Flags().Set("include", "*.png,*.jpg"))
	require.NoError(t, batchCmd.Flags().Set("progress", "true"))
	t.Cleanup(func() { resetFlags(batchCmd) })

	bc := configToBatchConfig(&cfg, batchCmd)
	assert.Equal(t, 3, bc.Workers)
	assert.True(t, bc.Recursive)
	assert.Equal(t, "yaml", bc.Format)
	assert.Equal(t, "ov", bc.OverlayDir)
	assert.Equal(t, []string{"*.png", "*.jpg"}, bc.IncludePatterns)
	assert.True(t, bc.ShowProgress)
	assert.NotNil(t, bc.Builder)
}
