package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/MeKo-Tech/zbargo/internal/pdf"
)

// ProcessPDF scans every image embedded in the selected pages of a PDF.
func (p *Pipeline) ProcessPDF(ctx context.Context, filename, pageRange string) (*PDFResult, error) {
	return p.ProcessPDFWithCredentials(ctx, filename, pageRange, nil)
}

// ProcessPDFWithCredentials is ProcessPDF for encrypted documents.
func (p *Pipeline) ProcessPDFWithCredentials(ctx context.Context, filename, pageRange string, creds *pdf.Credentials) (*PDFResult, error) {
	if filename == "" {
		return nil, errors.New("filename cannot be empty")
	}
	if p == nil {
		return nil, ErrNotInitialized
	}

	totalStart := time.Now()
	pageImages, err := pdf.ExtractImagesWithCredentials(filename, pageRange, creds)
	if err != nil {
		return nil, err
	}
	extractNs := time.Since(totalStart).Nanoseconds()

	pageNums := pdf.SortedPages(pageImages)
	pages := make([]PDFPageResult, 0, len(pageNums))
	for _, n := range pageNums {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := p.processPDFPage(ctx, n, pageImages[n])
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", n, err)
		}
		pages = append(pages, *page)
	}

	res := &PDFResult{
		Filename:   filename,
		TotalPages: len(pages),
		Pages:      pages,
	}
	res.Processing.ExtractionNs = extractNs
	res.Processing.TotalNs = time.Since(totalStart).Nanoseconds()
	return res, nil
}

func (p *Pipeline) processPDFPage(ctx context.Context, pageNum int, images []image.Image) (*PDFPageResult, error) {
	start := time.Now()
	page := &PDFPageResult{PageNumber: pageNum, Images: make([]PDFImageResult, 0, len(images))}

	for i, img := range images {
		res, err := p.ProcessImageContext(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		page.Images = append(page.Images, PDFImageResult{
			ImageIndex: i,
			Width:      res.Width,
			Height:     res.Height,
			Barcodes:   res.Barcodes,
		})
	}
	page.Processing.TotalNs = time.Since(start).Nanoseconds()
	return page, nil
}
