package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/zbargo/internal/config"
	"github.com/MeKo-Tech/zbargo/internal/version"
	"github.com/MeKo-Tech/zbargo/internal/zbar"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration, resolved before every command runs.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "zbarscan",
	Short: "Barcode and QR code scanner built on the zbar engine",
	Long: `zbarscan decodes barcodes and QR codes in images and PDF documents
using the native zbar engine, with a pure-Go gozxing backend as fallback.

This tool provides:
- Scanning of PNG, JPEG, GIF, BMP, TIFF and WebP images
- Scanning of images embedded in PDF documents
- Parallel batch scanning of directories
- An HTTP and WebSocket scan server with Prometheus metrics

Examples:
  zbarscan image label.png
  zbarscan pdf invoice.pdf --format json
  zbarscan batch scans/ --recursive --workers 8
  zbarscan serve --port 8080`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			writeVersion(cmd.OutOrStdout())
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/zbarscan, /etc/zbarscan)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("version", false, "print version information and exit")

	registerBindings(rootCmd,
		flagBinding{"verbose", "verbose"},
		flagBinding{"log_level", "log-level"},
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd); err != nil {
			return err
		}
		if err := initConfig(); err != nil {
			return err
		}
		setupLogging(cmd.ErrOrStderr(), globalConfig)
		zbar.SetVerbosity(globalConfig.Scanner.Verbosity)
		return nil
	}
}

// initConfig reads the config file and environment.
func initConfig() error {
	configLoader = config.NewLoader()
	cfg, err := configLoader.LoadWithFile(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	globalConfig = cfg
	return nil
}

// setupLogging installs a JSON slog handler at the configured level.
func setupLogging(w io.Writer, cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

func writeVersion(w io.Writer) {
	v, commit, date := version.Info()
	_, _ = fmt.Fprintf(w, "zbarscan version %s\n", v)
	_, _ = fmt.Fprintf(w, "Commit: %s\n", commit)
	_, _ = fmt.Fprintf(w, "Built: %s\n", date)
	if ev, err := zbar.Version(); err == nil {
		_, _ = fmt.Fprintf(w, "zbar: %s\n", ev)
	} else {
		_, _ = fmt.Fprintln(w, "zbar: not linked")
	}
}

// GetConfig returns the configuration resolved from defaults, config file,
// environment and the flags of the running command.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if err := initConfig(); err != nil {
			return nil, err
		}
	}
	var cfg config.Config
	if err := GetConfigLoader().GetViper().Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}
