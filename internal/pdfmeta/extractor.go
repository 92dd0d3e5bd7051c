package pdfmeta

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"pdf-preview/internal/capability"
	"pdf-preview/internal/logging"
	"pdf-preview/internal/metrics"
	"pdf-preview/internal/raster"
)

// Metadata source values, strongest tier first.
const (
	SourceVips       = "vips"
	SourcePdfcpu     = "pdfcpu"
	SourceStructural = "structural"
)

// Metadata is what extraction learns about a PDF. Width and Height are the
// first page's geometry in PDF points.
type Metadata struct {
	PageCount int
	Width     int
	Height    int
	Title     string
	Author    string
	Source    string
}

// Extractor resolves PDF metadata through tiered backends: libvips when the
// capability snapshot recommends it, pdfcpu's parser next, and the raw
// structural scanner last. Extraction as a whole only fails when even the
// scanner cannot read the file.
type Extractor struct {
	caps *capability.Cache
}

// NewExtractor returns an Extractor using the given capability cache.
func NewExtractor(caps *capability.Cache) *Extractor {
	return &Extractor{caps: caps}
}

// Extract reads metadata for the PDF at path. The tier that produced the
// page geometry is recorded in Source; Title and Author always come from
// the structural scan because neither rasterizer surfaces them.
func (e *Extractor) Extract(ctx context.Context, path string) (*Metadata, error) {
	start := time.Now()

	snapshot := e.caps.Get(false)

	var meta *Metadata
	if snapshot.RecommendedMethod == "vips" {
		m, err := extractWithVips(path)
		if err != nil {
			logging.Debug("vips metadata extraction failed for %s: %v", path, err)
			metrics.MetadataExtractionsTotal.WithLabelValues(SourceVips, "error").Inc()
		} else {
			meta = m
		}
	}

	if meta == nil {
		m, err := extractWithPdfcpu(ctx, path)
		if err != nil {
			logging.Debug("pdfcpu metadata extraction failed for %s: %v", path, err)
			metrics.MetadataExtractionsTotal.WithLabelValues(SourcePdfcpu, "error").Inc()
		} else {
			meta = m
		}
	}

	scanned, scanErr := scanStructure(path)
	if meta == nil {
		if scanErr != nil {
			metrics.MetadataExtractionsTotal.WithLabelValues(SourceStructural, "error").Inc()
			return nil, fmt.Errorf("metadata extraction failed: %w", scanErr)
		}
		meta = scanned
	} else if scanErr == nil {
		meta.Title = scanned.Title
		meta.Author = scanned.Author
	}

	if meta.PageCount < 1 {
		meta.PageCount = 1
	}
	if meta.Width <= 0 {
		meta.Width = defaultPageWidth
	}
	if meta.Height <= 0 {
		meta.Height = defaultPageHeight
	}

	metrics.MetadataExtractionsTotal.WithLabelValues(meta.Source, "success").Inc()
	logging.Debug("extracted metadata for %s via %s in %v: %d pages, %dx%d",
		path, meta.Source, time.Since(start), meta.PageCount, meta.Width, meta.Height)
	return meta, nil
}

// extractWithVips loads the first page at 72 DPI, where pixel dimensions
// equal PDF points, and reads the embedded page count.
func extractWithVips(path string) (*Metadata, error) {
	if !raster.IsVipsAvailable() {
		return nil, fmt.Errorf("libvips not available")
	}

	params := vips.NewImportParams()
	params.Density.Set(72)
	params.Page.Set(0)
	params.NumPages.Set(1)

	ref, err := vips.LoadImageFromFile(path, params)
	if err != nil {
		return nil, fmt.Errorf("vips failed to load PDF: %w", err)
	}
	defer ref.Close()

	return &Metadata{
		PageCount: ref.Pages(),
		Width:     ref.Width(),
		Height:    ref.Height(),
		Source:    SourceVips,
	}, nil
}

// extractWithPdfcpu reads the page count and first-page dimensions through
// pdfcpu's real parser, which handles cross-reference streams and object
// streams the structural scanner cannot.
func extractWithPdfcpu(ctx context.Context, path string) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu page count failed: %w", err)
	}

	meta := &Metadata{
		PageCount: pageCount,
		Width:     defaultPageWidth,
		Height:    defaultPageHeight,
		Source:    SourcePdfcpu,
	}

	dims, err := api.PageDimsFile(path)
	if err == nil && len(dims) > 0 {
		if dims[0].Width > 0 {
			meta.Width = int(math.Round(dims[0].Width))
		}
		if dims[0].Height > 0 {
			meta.Height = int(math.Round(dims[0].Height))
		}
	}

	return meta, nil
}
