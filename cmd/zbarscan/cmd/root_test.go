package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, GetRootCommand())
	assert.Equal(t, "zbarscan", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommandHelp(t *testing.T) {
	stdout, _, err := executeCommand(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "zbarscan decodes barcodes and QR codes")
	assert.Contains(t, stdout, "Available Commands:")
	assert.Contains(t, stdout, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	stdout, _, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "zbarscan version")
	assert.Contains(t, stdout, "zbar: ")
}

func TestRootCommandSubcommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, expected := range []string{"image", "pdf", "batch", "serve", "test", "config", "benchmark"} {
		assert.Contains(t, names, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	_, _, err := executeCommand(t, "--no-such-flag")
	require.Error(t, err)
}

func TestInvalidLogLevel(t *testing.T) {
	_, _, err := executeCommand(t, "config", "show", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("ZBARSCAN_SCANNER_BACKEND", "gozxing")
	stdout, _, err := executeCommand(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "backend: gozxing")
}

func TestSelfTestCommand(t *testing.T) {
	stdout, _, err := executeCommand(t, "test")
	require.NoError(t, err)
	assert.Contains(t, stdout, "backend gozxing")
	assert.Contains(t, stdout, "All checks passed.")
}
