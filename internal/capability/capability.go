package capability

import (
	"time"

	"pdf-preview/internal/logging"
	"pdf-preview/internal/raster"
)

// Snapshot describes what the runtime environment can do, as observed at
// CheckedAt. All rendering is in-process; there is no external-tool probing.
type Snapshot struct {
	VipsAvailable       bool      `json:"vipsAvailable"`
	PDFSupported        bool      `json:"pdfSupported"`
	WebPSupported       bool      `json:"webpSupported"`
	ExtractionAvailable bool      `json:"extractionAvailable"`
	RecommendedMethod   string    `json:"recommendedMethod"`
	VipsVersion         string    `json:"vipsVersion,omitempty"`
	CheckedAt           time.Time `json:"checkedAt"`
}

// Probe inspects the runtime environment and returns a fresh Snapshot.
// ExtractionAvailable tracks the PDF-capable raster backend; the fallback
// metadata tiers still run without it, but they are not what this flag
// reports.
func Probe() Snapshot {
	s := Snapshot{
		VipsAvailable:     raster.IsVipsAvailable(),
		RecommendedMethod: "none",
		CheckedAt:         time.Now(),
	}

	if s.VipsAvailable {
		s.VipsVersion = raster.VipsVersion()
		s.PDFSupported = raster.SupportsPDF()
		s.WebPSupported = raster.SupportsWebP()
	}
	s.ExtractionAvailable = s.PDFSupported

	if s.PDFSupported {
		s.RecommendedMethod = "vips"
	}

	logging.Debug("capability probe: vips=%v pdf=%v webp=%v method=%s",
		s.VipsAvailable, s.PDFSupported, s.WebPSupported, s.RecommendedMethod)
	return s
}
