package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/testutil"
)

func writeTestPDF(t *testing.T) string {
	t.Helper()
	qr, err := testutil.QRImage("invoice 42")
	require.NoError(t, err)
	code, err := testutil.Code128Image("SHIP-7", 400, 120)
	require.NoError(t, err)
	return testutil.WritePDF(t, t.TempDir(), qr, code)
}

func TestPDFCommandText(t *testing.T) {
	path := writeTestPDF(t)

	stdout, _, err := executeCommand(t, "pdf", path, "--backend", "gozxing")
	require.NoError(t, err)
	assert.Contains(t, stdout, "page 1: QR-Code:invoice 42\n")
	assert.Contains(t, stdout, "page 2: CODE-128:SHIP-7\n")
}

func TestPDFCommandPageRange(t *testing.T) {
	path := writeTestPDF(t)

	stdout, _, err := executeCommand(t, "pdf", path, "--backend", "gozxing", "--pages", "2")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "invoice 42")
	assert.Contains(t, stdout, "page 2: CODE-128:SHIP-7")
}

func TestPDFCommandMultipleFilesHaveHeaders(t *testing.T) {
	a, b := writeTestPDF(t), writeTestPDF(t)

	stdout, _, err := executeCommand(t, "pdf", a, b, "--backend", "gozxing")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# "+a+"\n")
	assert.Contains(t, stdout, "# "+b+"\n")
}

func TestPDFCommandErrors(t *testing.T) {
	_, _, err := executeCommand(t, "pdf")
	require.EqualError(t, err, "no input files provided")

	path := writeTestPDF(t)
	_, _, err = executeCommand(t, "pdf", path, "--pages", "3-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid page range")

	_, _, err = executeCommand(t, "pdf", filepath.Join(t.TempDir(), "missing.pdf"), "--backend", "gozxing")
	require.Error(t, err)
}

func TestIsTextFormat(t *testing.T) {
	assert.True(t, isTextFormat(""))
	assert.True(t, isTextFormat("TEXT"))
	assert.False(t, isTextFormat("json"))
}
