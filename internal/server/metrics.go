package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MeKo-Tech/zbargo/internal/pipeline"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zbarscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zbarscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Scan metrics
	scanRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zbarscan_scan_requests_total",
			Help: "Total number of scan requests",
		},
		[]string{"type", "status"}, // type: image, pdf, batch, websocket_image, websocket_pdf
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zbarscan_scan_duration_seconds",
			Help:    "Scan duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"type"},
	)

	barcodesPerRequest = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zbarscan_barcodes_per_request",
			Help:    "Number of symbols decoded per request",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"type"},
	)

	barcodesByFormat = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zbarscan_barcodes_total",
			Help: "Total number of decoded symbols by format",
		},
		[]string{"format"},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zbarscan_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // minute, hour, requests, data
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "zbarscan_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "zbarscan_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zbarscan_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // sent, received
	)
)

// observeBarcodes records per-request symbol counts.
func observeBarcodes(kind string, barcodes []pipeline.BarcodeResult) {
	barcodesPerRequest.WithLabelValues(kind).Observe(float64(len(barcodes)))
	for _, b := range barcodes {
		barcodesByFormat.WithLabelValues(b.Format).Inc()
	}
}
