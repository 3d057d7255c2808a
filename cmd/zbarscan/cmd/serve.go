package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/zbargo/internal/config"
	"github.com/MeKo-Tech/zbargo/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the scan API",
	Long: `Start an HTTP server that provides REST and WebSocket endpoints for
barcode scanning.

The server provides the following endpoints:
  POST /api/scan        - Scan an uploaded image
  POST /api/scan/pdf    - Scan the images embedded in an uploaded PDF
  POST /api/scan/batch  - Scan several base64 encoded images or PDFs
  GET  /ws/scan         - WebSocket scan endpoint
  GET  /health          - Health check endpoint
  GET  /version         - Build and engine version
  GET  /metrics         - Prometheus metrics

Examples:
  zbarscan serve
  zbarscan serve --port 8080
  zbarscan serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		scanServer, err := server.NewServer(serverConfig(cfg))
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}

		host, port := cfg.Server.Host, cfg.Server.Port
		timeout := time.Duration(cfg.Server.TimeoutSec) * time.Second
		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           scanServer.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       timeout,
			WriteTimeout:      timeout,
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		go func() {
			slog.Info("Starting scan server", "host", host, "port", port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
		slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server shutdown completed")
		}

		if err := scanServer.Close(); err != nil {
			slog.Error("Server cleanup error", "error", err)
		}

		slog.Info("Graceful shutdown completed")
		return nil
	},
}

// serverConfig maps the resolved configuration to server.Config.
func serverConfig(cfg *config.Config) server.Config {
	rl := cfg.Server.RateLimit
	return server.Config{
		Host:             cfg.Server.Host,
		Port:             cfg.Server.Port,
		CORSOrigin:       cfg.Server.CORSOrigin,
		MaxUploadMB:      int64(cfg.Server.MaxUploadMB),
		TimeoutSec:       cfg.Server.TimeoutSec,
		Builder:          cfg.ToPipelineBuilder(),
		OverlayEnabled:   cfg.Server.OverlayEnabled,
		OverlayBoxColor:  cfg.Output.OverlayBoxColor,
		OverlayPolyColor: cfg.Output.OverlayPolyColor,
		RateLimit: server.RateLimitConfig{
			Enabled:           rl.Enabled,
			RequestsPerMinute: rl.RequestsPerMinute,
			RequestsPerHour:   rl.RequestsPerHour,
			MaxRequestsPerDay: rl.MaxRequestsPerDay,
			MaxDataPerDay:     int64(rl.MaxDataPerDayMB) * 1024 * 1024,
		},
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addScannerFlags(serveCmd)

	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().Bool("overlay-enable", true, "enable overlay image responses")
	serveCmd.Flags().String("overlay-box-color", "#FF0000", "overlay box color (hex)")
	serveCmd.Flags().String("overlay-poly-color", "#00C800", "overlay outline color (hex)")

	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", 60, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", 1000, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", 0, "maximum requests per day per client (0 = unlimited)")
	serveCmd.Flags().Int("max-data-per-day", 0, "maximum upload volume per day per client in MB (0 = unlimited)")

	registerBindings(serveCmd,
		flagBinding{"server.host", "host"},
		flagBinding{"server.port", "port"},
		flagBinding{"server.cors_origin", "cors-origin"},
		flagBinding{"server.max_upload_mb", "max-upload-size"},
		flagBinding{"server.timeout_sec", "timeout"},
		flagBinding{"server.shutdown_timeout", "shutdown-timeout"},
		flagBinding{"server.overlay_enabled", "overlay-enable"},
		flagBinding{"output.overlay_box_color", "overlay-box-color"},
		flagBinding{"output.overlay_poly_color", "overlay-poly-color"},
		flagBinding{"server.rate_limit.enabled", "rate-limit-enabled"},
		flagBinding{"server.rate_limit.requests_per_minute", "requests-per-minute"},
		flagBinding{"server.rate_limit.requests_per_hour", "requests-per-hour"},
		flagBinding{"server.rate_limit.max_requests_per_day", "max-requests-per-day"},
		flagBinding{"server.rate_limit.max_data_per_day_mb", "max-data-per-day"},
	)
}
