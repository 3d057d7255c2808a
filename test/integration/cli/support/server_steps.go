package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/zbargo/internal/pipeline"
	"github.com/MeKo-Tech/zbargo/internal/server"
)

// testHTTPServer runs the scan server in-process on an httptest listener.
type testHTTPServer struct {
	HTTP *httptest.Server
	Scan *server.Server
}

// Close stops the listener and releases the scan pipelines.
func (s *testHTTPServer) Close() error {
	s.HTTP.Close()
	return s.Scan.Close()
}

func (testCtx *TestContext) startServer(configure func(*server.Config)) error {
	if testCtx.HTTPServer != nil {
		if err := testCtx.HTTPServer.Close(); err != nil {
			return err
		}
	}
	cfg := server.Config{
		MaxUploadMB:    5,
		TimeoutSec:     30,
		Builder:        pipeline.NewBuilder().WithBackend("gozxing"),
		OverlayEnabled: true,
	}
	if configure != nil {
		configure(&cfg)
	}
	s, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.HTTPServer = &testHTTPServer{HTTP: httptest.NewServer(s.Handler()), Scan: s}
	return nil
}

// theScanServerIsRunning starts a server on the pure-Go backend.
func (testCtx *TestContext) theScanServerIsRunning() error {
	return testCtx.startServer(nil)
}

// theScanServerIsRunningWithALimitOfRequestsPerMinute starts a rate-limited server.
func (testCtx *TestContext) theScanServerIsRunningWithALimitOfRequestsPerMinute(n int) error {
	return testCtx.startServer(func(c *server.Config) {
		c.RateLimit = server.RateLimitConfig{Enabled: true, RequestsPerMinute: n}
	})
}

// theScanServerIsRunningWithOverlaysDisabled starts a server that refuses overlay output.
func (testCtx *TestContext) theScanServerIsRunningWithOverlaysDisabled() error {
	return testCtx.startServer(func(c *server.Config) { c.OverlayEnabled = false })
}

func (testCtx *TestContext) serverURL(path string) (string, error) {
	if testCtx.HTTPServer == nil {
		return "", fmt.Errorf("server is not running")
	}
	return testCtx.HTTPServer.HTTP.URL + path, nil
}

func (testCtx *TestContext) do(req *http.Request) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = resp.Header
	return nil
}

// iRequest sends a request without a body.
func (testCtx *TestContext) iRequest(method, path string) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

// iUpload posts a temp file as a multipart form with extra fields.
func (testCtx *TestContext) iUpload(field, name, path string, fields map[string]string) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(testCtx.TempPath(name))
	if err != nil {
		return err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) iUploadTheImage(name string) error {
	return testCtx.iUpload("image", name, "/api/scan", nil)
}

func (testCtx *TestContext) iUploadTheImageWithFormat(name, format string) error {
	return testCtx.iUpload("image", name, "/api/scan", map[string]string{"format": format})
}

func (testCtx *TestContext) iUploadThePDF(name string) error {
	return testCtx.iUpload("pdf", name, "/api/scan/pdf", nil)
}

func (testCtx *TestContext) iUploadThePDFWithPages(name, pages string) error {
	return testCtx.iUpload("pdf", name, "/api/scan/pdf", map[string]string{"pages": pages})
}

// iSendABatchRequestWithImages posts the named temp images to the batch endpoint.
func (testCtx *TestContext) iSendABatchRequestWithImages(names string) error {
	url, err := testCtx.serverURL("/api/scan/batch")
	if err != nil {
		return err
	}
	var req server.BatchScanRequest
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		data, err := os.ReadFile(testCtx.TempPath(name))
		if err != nil {
			return err
		}
		req.Images = append(req.Images, server.BatchImageRequest{Name: name, Data: data})
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return testCtx.do(httpReq)
}

// iScanTheImageOverTheWebSocket sends one image and keeps the final message.
func (testCtx *TestContext) iScanTheImageOverTheWebSocket(name string) error {
	if testCtx.HTTPServer == nil {
		return fmt.Errorf("server is not running")
	}
	data, err := os.ReadFile(testCtx.TempPath(name))
	if err != nil {
		return err
	}
	url := "ws" + strings.TrimPrefix(testCtx.HTTPServer.HTTP.URL, "http") + "/ws/scan"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	if err := conn.WriteJSON(server.WebSocketScanRequest{Type: "image", Image: data}); err != nil {
		return err
	}
	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("websocket read failed: %w", err)
		}
		var r server.WebSocketScanResponse
		if err := json.Unmarshal(msg, &r); err != nil {
			return err
		}
		if r.Status == "processing" {
			continue
		}
		testCtx.LastHTTPResponse = string(msg)
		return nil
	}
}

// theResponseStatusShouldBe checks the last HTTP status.
func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", status, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

// theResponseShouldContain checks the last response body.
func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

// theResponseShouldNotContain checks the last response body lacks text.
func (testCtx *TestContext) theResponseShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response unexpectedly contains '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

// theResponseJSONFieldShouldBe compares a dotted JSON path in the response.
func (testCtx *TestContext) theResponseJSONFieldShouldBe(path, expected string) error {
	var v any
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &v); err != nil {
		return fmt.Errorf("response is not valid JSON: %w\nBody: %s", err, testCtx.LastHTTPResponse)
	}
	got, err := lookupJSON(v, path)
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != expected {
		return fmt.Errorf("response field %s is %v, want %s", path, got, expected)
	}
	return nil
}

// theResponseHeaderShouldBe checks a header of the last HTTP response.
func (testCtx *TestContext) theResponseHeaderShouldBe(name, expected string) error {
	if got := testCtx.LastHTTPHeaders.Get(name); got != expected {
		return fmt.Errorf("header %s is %q, want %q", name, got, expected)
	}
	return nil
}

// RegisterServerSteps registers the in-process server steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the scan server is running$`, testCtx.theScanServerIsRunning)
	sc.Step(`^the scan server is running with a limit of (\d+) requests per minute$`,
		testCtx.theScanServerIsRunningWithALimitOfRequestsPerMinute)
	sc.Step(`^the scan server is running with overlays disabled$`, testCtx.theScanServerIsRunningWithOverlaysDisabled)
	sc.Step(`^I request "([^"]*)" "([^"]*)"$`, testCtx.iRequest)
	sc.Step(`^I upload the image "([^"]*)"$`, testCtx.iUploadTheImage)
	sc.Step(`^I upload the image "([^"]*)" with format "([^"]*)"$`, testCtx.iUploadTheImageWithFormat)
	sc.Step(`^I upload the PDF "([^"]*)"$`, testCtx.iUploadThePDF)
	sc.Step(`^I upload the PDF "([^"]*)" with pages "([^"]*)"$`, testCtx.iUploadThePDFWithPages)
	sc.Step(`^I send a batch request with images "([^"]*)"$`, testCtx.iSendABatchRequestWithImages)
	sc.Step(`^I scan the image "([^"]*)" over the WebSocket$`, testCtx.iScanTheImageOverTheWebSocket)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response should not contain "([^"]*)"$`, testCtx.theResponseShouldNotContain)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
}
