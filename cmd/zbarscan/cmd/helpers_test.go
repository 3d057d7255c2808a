package cmd

import (
	"bytes"
	"image"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/testutil"
)

// resetFlags restores every flag of cmd and its children to its default.
// Cobra commands are package globals, so values leak between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// executeCommand runs the root command with args and captures its output.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	viper.Reset()
	resetFlags(rootCmd)
	cfgFile, globalConfig, configLoader = "", nil, nil

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeQR(t *testing.T, dir, name, content string) string {
	t.Helper()
	img, err := testutil.QRImage(content)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	testutil.SaveImage(t, img, path)
	return path
}

func writeImage(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testutil.SaveImage(t, img, path)
	return path
}
