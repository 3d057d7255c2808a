package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/pipeline"
	"github.com/MeKo-Tech/zbargo/internal/testutil"
)

func TestImageCommand(t *testing.T) {
	assert.NotNil(t, GetImageCommand())
	assert.True(t, strings.HasPrefix(imageCmd.Use, "image"))
	assert.NotEmpty(t, imageCmd.Short)
	assert.NotEmpty(t, imageCmd.Long)

	for _, name := range []string{"backend", "formats", "try-harder", "set", "format", "output", "overlay-dir"} {
		assert.NotNil(t, imageCmd.Flags().Lookup(name), "flag %s", name)
	}
}

func TestImageCommandText(t *testing.T) {
	path := writeQR(t, t.TempDir(), "label.png", "hello cli")

	stdout, _, err := executeCommand(t, "image", path, "--backend", "gozxing")
	require.NoError(t, err)
	assert.Equal(t, "QR-Code:hello cli\n", stdout)
}

func TestImageCommandMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeQR(t, dir, "a.png", "first")
	b := writeQR(t, dir, "b.png", "second")

	stdout, _, err := executeCommand(t, "image", a, b, "--backend", "gozxing")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# "+a+"\nQR-Code:first")
	assert.Contains(t, stdout, "# "+b+"\nQR-Code:second")
}

func TestImageCommandJSON(t *testing.T) {
	path := writeQR(t, t.TempDir(), "label.png", "json please")

	stdout, _, err := executeCommand(t, "image", path, "--backend", "gozxing", "--format", "json")
	require.NoError(t, err)

	var res pipeline.ImageResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	require.Len(t, res.Barcodes, 1)
	assert.Equal(t, "json please", res.Barcodes[0].Value)
	assert.Equal(t, "qr", res.Barcodes[0].Format)
}

func TestImageCommandOutputFileAndOverlay(t *testing.T) {
	dir := t.TempDir()
	path := writeQR(t, dir, "label.png", "to file")
	out := filepath.Join(dir, "codes.csv")
	overlays := filepath.Join(dir, "overlays")

	stdout, _, err := executeCommand(t, "image", path, "--backend", "gozxing",
		"-f", "csv", "-o", out, "--overlay-dir", overlays)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "QR-Code,qr,to file")
	assert.True(t, testutil.FileExists(filepath.Join(overlays, "label_overlay.png")))
}

func TestImageCommandNoSymbols(t *testing.T) {
	path := writeImage(t, t.TempDir(), "blank.png", testutil.BlankImage(200, 200))

	stdout, _, err := executeCommand(t, "image", path, "--backend", "gozxing")
	require.ErrorIs(t, err, errNoSymbols)
	assert.Empty(t, stdout)
}

func TestImageCommandErrors(t *testing.T) {
	_, _, err := executeCommand(t, "image")
	require.EqualError(t, err, "no input files provided")

	_, _, err = executeCommand(t, "image", "/non/existent/file.png", "--backend", "gozxing")
	require.Error(t, err)

	path := writeQR(t, t.TempDir(), "label.png", "x")
	_, _, err = executeCommand(t, "image", path, "--formats", "hologram")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hologram")

	_, _, err = executeCommand(t, "image", path, "--set", "qrcode.bogus=1")
	require.Error(t, err)
}

func TestImageCommandFlagsDoNotLeak(t *testing.T) {
	path := writeQR(t, t.TempDir(), "label.png", "leak")

	_, _, err := executeCommand(t, "image", path, "--backend", "gozxing", "--formats", "ean13")
	require.ErrorIs(t, err, errNoSymbols)

	stdout, _, err := executeCommand(t, "image", path, "--backend", "gozxing")
	require.NoError(t, err)
	assert.Contains(t, stdout, "QR-Code:leak")
}
