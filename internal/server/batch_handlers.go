package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MeKo-Tech/zbargo/internal/utils"
)

// maxBatchItems limits the number of images and PDFs in one batch request.
const maxBatchItems = 10

// BatchScanRequest represents a batch scan request.
type BatchScanRequest struct {
	Images []BatchImageRequest `json:"images,omitempty"`
	PDFs   []BatchPDFRequest   `json:"pdfs,omitempty"`
}

// BatchImageRequest represents a single image in a batch request.
type BatchImageRequest struct {
	Name    string                 `json:"name"`
	Data    []byte                 `json:"data"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// BatchPDFRequest represents a single PDF in a batch request.
type BatchPDFRequest struct {
	Name    string                 `json:"name"`
	Data    []byte                 `json:"data"`
	Pages   string                 `json:"pages,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// BatchScanResponse represents the response for batch processing.
type BatchScanResponse struct {
	Success bool                   `json:"success"`
	Results []BatchScanResult      `json:"results,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Summary BatchProcessingSummary `json:"summary"`
}

// BatchScanResult represents a single result in batch processing.
type BatchScanResult struct {
	Type     string      `json:"type"` // "image" or "pdf"
	Name     string      `json:"name"`
	Success  bool        `json:"success"`
	Result   interface{} `json:"result,omitempty"`
	Barcodes int         `json:"barcodes"`
	Error    string      `json:"error,omitempty"`
	Duration float64     `json:"duration_seconds"`
}

// BatchProcessingSummary provides summary statistics for batch processing.
type BatchProcessingSummary struct {
	TotalItems    int     `json:"total_items"`
	Successful    int     `json:"successful"`
	Failed        int     `json:"failed"`
	TotalBarcodes int     `json:"total_barcodes"`
	TotalDuration float64 `json:"total_duration_seconds"`
	AvgItemTime   float64 `json:"avg_item_time_seconds"`
}

// scanBatchHandler scans base64 encoded images and PDFs from a JSON body.
func (s *Server) scanBatchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())

	var req BatchScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Failed to parse JSON request: %v", err), statusForBodyError(err))
		return
	}

	total := len(req.Images) + len(req.PDFs)
	if total == 0 {
		s.writeErrorResponse(w, "No images or PDFs provided in batch request", http.StatusBadRequest)
		return
	}
	if total > maxBatchItems {
		s.writeErrorResponse(w, fmt.Sprintf("Batch size too large (maximum %d items)", maxBatchItems), http.StatusBadRequest)
		return
	}

	start := time.Now()
	results := make([]BatchScanResult, 0, total)
	for _, item := range req.Images {
		results = append(results, s.processBatchImage(r, item))
	}
	for _, item := range req.PDFs {
		results = append(results, s.processBatchPDF(r, item))
	}

	summary := BatchProcessingSummary{TotalItems: total, TotalDuration: time.Since(start).Seconds()}
	for _, res := range results {
		if res.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
		summary.TotalBarcodes += res.Barcodes
	}
	summary.AvgItemTime = summary.TotalDuration / float64(total)

	status := "success"
	if summary.Failed > 0 {
		status = "partial"
	}
	scanRequestsTotal.WithLabelValues("batch", status).Inc()
	scanDuration.WithLabelValues("batch").Observe(summary.TotalDuration)

	writeJSON(w, http.StatusOK, BatchScanResponse{
		Success: summary.Failed == 0,
		Results: results,
		Summary: summary,
	})
}

func statusForBodyError(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func (s *Server) processBatchImage(r *http.Request, item BatchImageRequest) BatchScanResult {
	result := BatchScanResult{Type: "image", Name: item.Name}
	if len(item.Data) == 0 {
		result.Error = "No image data provided"
		return result
	}
	img, _, err := utils.DecodeImage(bytes.NewReader(item.Data))
	if err != nil {
		result.Error = fmt.Sprintf("Failed to decode image: %v", err)
		return result
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	start := time.Now()
	res, err := s.scanImage(ctx, optionsFromMap(item.Options), img, "batch_image")
	result.Duration = time.Since(start).Seconds()
	if err != nil {
		result.Error = fmt.Sprintf("Scan failed: %v", err)
		return result
	}
	res.Source = item.Name
	result.Success = true
	result.Result = res
	result.Barcodes = len(res.Barcodes)
	return result
}

func (s *Server) processBatchPDF(r *http.Request, item BatchPDFRequest) BatchScanResult {
	result := BatchScanResult{Type: "pdf", Name: item.Name}
	if len(item.Data) == 0 {
		result.Error = "No PDF data provided"
		return result
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	start := time.Now()
	res, err := s.scanPDF(ctx, optionsFromMap(item.Options), bytes.NewReader(item.Data), item.Pages, "batch_pdf")
	result.Duration = time.Since(start).Seconds()
	if err != nil {
		result.Error = fmt.Sprintf("Scan failed: %v", err)
		return result
	}
	res.Filename = item.Name
	result.Success = true
	result.Result = res
	result.Barcodes = len(res.Barcodes())
	return result
}
