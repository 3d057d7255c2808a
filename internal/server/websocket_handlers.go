package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/zbargo/internal/utils"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WebSocketScanRequest is a scan request sent by the client.
type WebSocketScanRequest struct {
	Type    string                 `json:"type"` // "image" or "pdf"
	Image   []byte                 `json:"image,omitempty"`
	PDF     []byte                 `json:"pdf,omitempty"`
	Pages   string                 `json:"pages,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// WebSocketScanResponse is sent back for every request. A request produces
// one "processing" message followed by "completed" or "error".
type WebSocketScanResponse struct {
	Type      string      `json:"type"`
	Status    string      `json:"status"` // "processing", "completed", "error"
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// wsWriter serializes writes; gorilla connections allow one concurrent writer.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) WriteMessage(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.conn.WriteMessage(messageType, data)
}

func (w *wsWriter) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

// messageWriter is the part of a connection responses are written to.
type messageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

var requestSeq atomic.Uint64

// scanWebSocketHandler handles WebSocket connections for streaming scans.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(r.Context(), conn)
}

func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(s.maxUploadBytes())
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	out := &wsWriter{conn: conn}
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := out.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket read failed", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, out, data)
		}
	}
}

// handleWebSocketMessage runs one scan request and writes its responses.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn messageWriter, data []byte) {
	var req WebSocketScanRequest
	if err := json.Unmarshal(data, &req); err != nil {
		sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	requestID := strconv.FormatUint(requestSeq.Add(1), 10)
	sendWebSocketResponse(conn, WebSocketScanResponse{Type: "scan_response", Status: "processing", RequestID: requestID})

	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}
	opts := optionsFromMap(req.Options)

	var (
		result interface{}
		err    error
	)
	switch req.Type {
	case "image":
		if len(req.Image) == 0 {
			sendWebSocketError(conn, requestID, "invalid_request", "No image data provided")
			return
		}
		img, _, derr := utils.DecodeImage(bytes.NewReader(req.Image))
		if derr != nil {
			sendWebSocketError(conn, requestID, "invalid_request", fmt.Sprintf("Failed to decode image: %v", derr))
			return
		}
		result, err = s.scanImage(ctx, opts, img, "websocket_image")
	case "pdf":
		if len(req.PDF) == 0 {
			sendWebSocketError(conn, requestID, "invalid_request", "No PDF data provided")
			return
		}
		result, err = s.scanPDF(ctx, opts, bytes.NewReader(req.PDF), req.Pages, "websocket_pdf")
	default:
		sendWebSocketError(conn, requestID, "invalid_request", "Unsupported request type: "+req.Type)
		return
	}
	if err != nil {
		sendWebSocketError(conn, requestID, "processing_error", fmt.Sprintf("Scan failed: %v", err))
		return
	}

	sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:      "scan_response",
		Status:    "completed",
		Result:    result,
		RequestID: requestID,
	})
}

func sendWebSocketResponse(conn messageWriter, response WebSocketScanResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

func sendWebSocketError(conn messageWriter, requestID, errorType, message string) {
	sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
