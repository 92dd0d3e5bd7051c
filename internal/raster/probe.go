package raster

import (
	"pdf-preview/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

// probePDF is a minimal one-page PDF used to verify that the linked libvips
// build carries a PDF loader (poppler or pdfium). Decoding it exercises the
// real load path instead of trusting compile-time flags.
const probePDF = "%PDF-1.4\n" +
	"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n" +
	"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n" +
	"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>\nendobj\n" +
	"xref\n0 4\n" +
	"0000000000 65535 f \n" +
	"0000000009 00000 n \n" +
	"0000000058 00000 n \n" +
	"0000000115 00000 n \n" +
	"trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n203\n%%EOF\n"

// SupportsPDF reports whether the running libvips can rasterize PDF pages.
// Always false when vips has not been initialized.
func SupportsPDF() bool {
	if !IsVipsAvailable() {
		return false
	}

	params := vips.NewImportParams()
	params.Page.Set(0)
	params.NumPages.Set(1)

	ref, err := vips.LoadImageFromBuffer([]byte(probePDF), params)
	if err != nil {
		logging.Debug("PDF probe failed: %v", err)
		return false
	}
	defer ref.Close()

	return ref.Width() > 0 && ref.Height() > 0
}

// SupportsWebP reports whether the running libvips can encode WebP output.
// Always false when vips has not been initialized.
func SupportsWebP() bool {
	if !IsVipsAvailable() {
		return false
	}

	ref, err := vips.Black(1, 1)
	if err != nil {
		logging.Debug("WebP probe failed to create test image: %v", err)
		return false
	}
	defer ref.Close()

	buf, _, err := ref.ExportWebp(&vips.WebpExportParams{Quality: 75})
	if err != nil {
		logging.Debug("WebP probe failed: %v", err)
		return false
	}
	return len(buf) > 0
}
