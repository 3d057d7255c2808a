package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware adds CORS headers and records request metrics.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()
		next(rw, r)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	}
}

// rateLimitMiddleware enforces rate limiting and quotas per client IP.
func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter == nil || r.Method == http.MethodOptions {
			next(w, r)
			return
		}

		var dataSize int64
		if r.ContentLength > 0 {
			dataSize = r.ContentLength
		}

		if err := s.rateLimiter.CheckRateLimit(getClientIP(r), dataSize); err != nil {
			var rle *RateLimitError
			var qe *QuotaExceededError
			switch {
			case errors.As(err, &rle):
				rateLimitHits.WithLabelValues(rle.Type).Inc()
			case errors.As(err, &qe):
				rateLimitHits.WithLabelValues(qe.Type).Inc()
			}
			handleRateLimitError(w, err)
			return
		}

		next(w, r)
	}
}

// handleRateLimitError writes a 429 response describing the violated limit.
func handleRateLimitError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	var body map[string]interface{}
	var rle *RateLimitError
	var qe *QuotaExceededError
	switch {
	case errors.As(err, &rle):
		retry := int(math.Ceil(rle.RetryAfter.Seconds()))
		w.Header().Set("X-RateLimit-Type", rle.Type)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rle.Limit))
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		w.WriteHeader(http.StatusTooManyRequests)
		body = map[string]interface{}{
			"error": "rate_limit_exceeded", "type": rle.Type, "limit": rle.Limit,
			"retry_after": retry, "message": rle.Error(),
		}
	case errors.As(err, &qe):
		w.Header().Set("X-Quota-Type", qe.Type)
		w.Header().Set("X-Quota-Limit", strconv.FormatInt(qe.Limit, 10))
		w.Header().Set("X-Quota-Used", strconv.FormatInt(qe.Used, 10))
		w.Header().Set("X-Quota-Resets", qe.Resets.UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusTooManyRequests)
		body = map[string]interface{}{
			"error": "quota_exceeded", "type": qe.Type, "limit": qe.Limit,
			"used": qe.Used, "resets": qe.Resets.Format(time.RFC3339), "message": qe.Error(),
		}
	default:
		w.WriteHeader(http.StatusInternalServerError)
		body = map[string]interface{}{"error": "internal_error", "message": "rate limiting check failed"}
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode rate limit response", "error", err)
	}
}

// getClientIP extracts the client IP, honouring proxy headers.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
