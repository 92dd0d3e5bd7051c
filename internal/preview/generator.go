package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
	"golang.org/x/image/webp"

	"pdf-preview/internal/cache"
	"pdf-preview/internal/capability"
	"pdf-preview/internal/database"
	"pdf-preview/internal/logging"
	"pdf-preview/internal/metrics"
)

// Result reports the outcome of one preview attempt. Err is diagnostic
// only; callers decide whether a failed preview fails the larger operation.
type Result struct {
	Success      bool
	RelativePath string
	Method       string
	Err          error
}

// Generator renders first-page previews of PDF documents into the cache.
type Generator struct {
	caps   *capability.Cache
	store  *cache.Store
	preset QualityPreset
}

// NewGenerator returns a Generator using the given capability cache,
// preview store, and quality preset.
func NewGenerator(caps *capability.Cache, store *cache.Store, preset QualityPreset) *Generator {
	return &Generator{caps: caps, store: store, preset: preset}
}

func failure(err error) Result {
	return Result{Success: false, Method: database.MethodNone, Err: err}
}

// Generate renders the first page of doc as WebP. This is the primary
// path; the orchestrator only reaches for GenerateJPEG when the runtime
// reports no WebP encoder.
func (g *Generator) Generate(ctx context.Context, doc *database.Document) Result {
	start := time.Now()
	res := g.generate(ctx, doc, "webp")
	status := "success"
	if !res.Success {
		status = "error"
	}
	metrics.PreviewGenerationsTotal.WithLabelValues("webp", status).Inc()
	metrics.PreviewGenerationDuration.WithLabelValues("webp").Observe(time.Since(start).Seconds())
	return res
}

// GenerateJPEG renders the first page of doc as JPEG. The raster still
// comes from libvips; encoding goes through the pure-Go pipeline so a
// libvips built without WebP (and often without a JPEG saver) can still
// produce previews.
func (g *Generator) GenerateJPEG(ctx context.Context, doc *database.Document) Result {
	start := time.Now()
	res := g.generate(ctx, doc, "jpg")
	status := "success"
	if !res.Success {
		status = "error"
	}
	metrics.PreviewGenerationsTotal.WithLabelValues("jpeg", status).Inc()
	metrics.PreviewGenerationDuration.WithLabelValues("jpeg").Observe(time.Since(start).Seconds())
	return res
}

func (g *Generator) generate(ctx context.Context, doc *database.Document, format string) Result {
	if err := ctx.Err(); err != nil {
		return failure(err)
	}

	snapshot := g.caps.Get(false)
	if snapshot.RecommendedMethod != "vips" {
		return failure(fmt.Errorf("no PDF rendering backend available"))
	}

	if _, err := os.Stat(doc.Path); err != nil {
		return failure(fmt.Errorf("source file not accessible: %w", err))
	}

	dpi := EffectiveDPI(g.preset, doc.Size)
	if dpi != g.preset.DPI {
		logging.Debug("preview DPI reduced to %d for document %d (%d bytes)", dpi, doc.ID, doc.Size)
	}

	params := vips.NewImportParams()
	params.Density.Set(dpi)
	params.Page.Set(0)
	params.NumPages.Set(1)

	ref, err := vips.LoadImageFromFile(doc.Path, params)
	if err != nil {
		return failure(fmt.Errorf("failed to rasterize page: %w", err))
	}
	defer ref.Close()

	// PDF pages rasterize with an alpha channel; flatten onto white so
	// transparent regions don't render black in viewers.
	if ref.HasAlpha() {
		if err := ref.Flatten(&vips.Color{R: 255, G: 255, B: 255}); err != nil {
			return failure(fmt.Errorf("failed to flatten alpha: %w", err))
		}
	}

	var data []byte
	switch format {
	case "webp":
		data, _, err = ref.ExportWebp(&vips.WebpExportParams{
			Quality:       g.preset.Quality,
			StripMetadata: true,
		})
		if err != nil {
			return failure(fmt.Errorf("webp encode failed: %w", err))
		}
	case "jpg":
		data, err = encodeJPEG(ref, g.preset.Quality)
		if err != nil {
			return failure(err)
		}
	default:
		return failure(fmt.Errorf("unsupported preview format %q", format))
	}

	if err := verifyEncoded(data, format); err != nil {
		return failure(err)
	}

	relPath, err := g.store.WritePreview(doc.ID, format, data)
	if err != nil {
		return failure(err)
	}

	// Trust nothing until the file is verified on disk with real content.
	fullPath := filepath.Join(g.store.BaseDir(), relPath)
	written, err := os.Stat(fullPath)
	if err != nil || written.Size() == 0 {
		if rmErr := os.Remove(fullPath); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Warn("failed to remove invalid preview %s: %v", relPath, rmErr)
		}
		return failure(fmt.Errorf("preview verification failed for document %d", doc.ID))
	}

	logging.Info("preview generated for document %d: %s (%d bytes, %d dpi)",
		doc.ID, relPath, written.Size(), dpi)
	return Result{Success: true, RelativePath: relPath, Method: database.MethodVips}
}

// verifyEncoded decodes the encoded header and rejects output with zero
// dimensions. libvips can emit structurally valid but empty images when a
// page fails to render.
func verifyEncoded(data []byte, format string) error {
	var (
		cfg image.Config
		err error
	)
	switch format {
	case "webp":
		cfg, err = webp.DecodeConfig(bytes.NewReader(data))
	default:
		cfg, err = jpeg.DecodeConfig(bytes.NewReader(data))
	}
	if err != nil {
		return fmt.Errorf("encoded preview is not decodable: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("encoded preview has empty dimensions %dx%d", cfg.Width, cfg.Height)
	}
	return nil
}

// encodeJPEG exports the raster as PNG, the one format every libvips build
// can save, then re-encodes with the stdlib JPEG encoder. Metadata is
// stripped as a side effect since neither PNG nor the encoder carry EXIF.
func encodeJPEG(ref *vips.ImageRef, quality int) ([]byte, error) {
	pngBytes, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("png export failed: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode intermediate png: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}
	return buf.Bytes(), nil
}
