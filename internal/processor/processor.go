package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pdf-preview/internal/cache"
	"pdf-preview/internal/capability"
	"pdf-preview/internal/database"
	"pdf-preview/internal/events"
	"pdf-preview/internal/logging"
	"pdf-preview/internal/metrics"
	"pdf-preview/internal/pdfmeta"
	"pdf-preview/internal/preview"
)

// MetadataExtractor resolves PDF metadata for a source file.
type MetadataExtractor interface {
	Extract(ctx context.Context, path string) (*pdfmeta.Metadata, error)
}

// PreviewGenerator renders first-page previews into the cache.
type PreviewGenerator interface {
	Generate(ctx context.Context, doc *database.Document) preview.Result
	GenerateJPEG(ctx context.Context, doc *database.Document) preview.Result
}

// Processor drives a document through metadata extraction and preview
// generation. Each document is guarded by its own lock so concurrent
// requests for the same document serialize while different documents
// process in parallel.
type Processor struct {
	db        *database.Database
	extractor MetadataExtractor
	generator PreviewGenerator
	caps      *capability.Cache
	store     *cache.Store
	bus       *events.Bus

	generateOnUpload bool

	lockMu sync.Mutex
	locks  map[int64]*sync.Mutex
}

// New returns a Processor wired to the given collaborators.
func New(db *database.Database, extractor MetadataExtractor, generator PreviewGenerator,
	caps *capability.Cache, store *cache.Store, bus *events.Bus, generateOnUpload bool) *Processor {
	return &Processor{
		db:               db,
		extractor:        extractor,
		generator:        generator,
		caps:             caps,
		store:            store,
		bus:              bus,
		generateOnUpload: generateOnUpload,
		locks:            make(map[int64]*sync.Mutex),
	}
}

func (p *Processor) lockFor(id int64) *sync.Mutex {
	p.lockMu.Lock()
	defer p.lockMu.Unlock()
	mu, ok := p.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		p.locks[id] = mu
	}
	return mu
}

// Process runs the full pipeline for one document. A document already
// marked processed is returned unchanged unless force is set, in which
// case its preview state is reset and everything runs again.
//
// Metadata failure fails the operation. Preview failure does not: the
// document is still marked processed with the preview error recorded,
// because metadata alone is useful and retrying rendering on every
// request would hammer a backend that already said no.
func (p *Processor) Process(ctx context.Context, id int64, force bool) (*database.Document, error) {
	mu := p.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()

	doc, err := p.db.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	if doc.Processed && !force {
		logging.Debug("document %d already processed, skipping", id)
		return doc, nil
	}

	if force && doc.HasPreview() {
		if err := p.store.DeletePreview(ctx, doc); err != nil {
			logging.Warn("failed to reset preview before reprocessing document %d: %v", id, err)
		}
	}

	logging.Info("processing document %d (%s, force=%v)", id, doc.Name, force)

	meta, err := p.extractor.Extract(ctx, doc.Path)
	if err != nil {
		msg := fmt.Sprintf("metadata extraction failed: %v", err)
		if dbErr := p.db.SetExtractionError(ctx, id, msg); dbErr != nil {
			logging.Error("failed to record extraction error for document %d: %v", id, dbErr)
		}
		metrics.ProcessingTotal.WithLabelValues("error").Inc()
		metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("document %d: %s", id, msg)
	}

	if err := p.db.SaveExtractionResult(ctx, id, meta.PageCount, meta.Width, meta.Height,
		meta.Title, meta.Author, meta.Source); err != nil {
		metrics.ProcessingTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("document %d: failed to save metadata: %w", id, err)
	}
	doc.PageCount = meta.PageCount
	doc.Width = meta.Width
	doc.Height = meta.Height

	previewErr := p.runPreview(ctx, doc)

	if err := p.db.MarkProcessed(ctx, id, previewErr); err != nil {
		metrics.ProcessingTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("document %d: failed to mark processed: %w", id, err)
	}

	status := "success"
	if previewErr != "" {
		status = "partial"
	}
	metrics.ProcessingTotal.WithLabelValues(status).Inc()
	metrics.ProcessingDuration.Observe(time.Since(start).Seconds())

	updated, err := p.db.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	p.bus.Publish(events.KindDocumentProcessed, events.DocumentProcessedPayload{
		DocumentID:   id,
		MetadataOK:   true,
		PreviewOK:    updated.HasPreview(),
		PreviewError: previewErr,
	})

	logging.Info("document %d processed in %v (preview=%v)", id, time.Since(start), updated.HasPreview())
	return updated, nil
}

// runPreview attempts preview generation and persists whatever happened.
// Returns a non-empty error string on failure; never an error value,
// because a preview failure is not a processing failure.
func (p *Processor) runPreview(ctx context.Context, doc *database.Document) string {
	snapshot := p.caps.Get(false)
	if snapshot.RecommendedMethod != "vips" {
		p.savePreviewFailure(ctx, doc.ID)
		return "no PDF rendering backend available"
	}

	var res preview.Result
	if snapshot.WebPSupported {
		res = p.generator.Generate(ctx, doc)
	} else {
		// Secondary path, taken only on an explicit capability answer.
		res = p.generator.GenerateJPEG(ctx, doc)
	}

	if !res.Success {
		p.savePreviewFailure(ctx, doc.ID)
		if res.Err != nil {
			return res.Err.Error()
		}
		return "preview generation failed"
	}

	if err := p.db.SavePreviewResult(ctx, doc.ID, res.RelativePath, res.Method, time.Now()); err != nil {
		logging.Error("failed to save preview result for document %d: %v", doc.ID, err)
		return fmt.Sprintf("failed to save preview result: %v", err)
	}

	p.bus.Publish(events.KindPreviewGenerated, events.PreviewGeneratedPayload{
		DocumentID:  doc.ID,
		PreviewPath: res.RelativePath,
		Method:      res.Method,
	})
	return ""
}

func (p *Processor) savePreviewFailure(ctx context.Context, id int64) {
	if err := p.db.SavePreviewResult(ctx, id, "", database.MethodNone, time.Time{}); err != nil {
		logging.Error("failed to record preview failure for document %d: %v", id, err)
	}
}

// BulkResult summarizes one bulk processing pass.
type BulkResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

// BulkProcess runs the pipeline over up to limit unprocessed documents
// and reports how many remain, so callers can poll until Remaining hits
// zero. Individual failures are counted, not fatal.
func (p *Processor) BulkProcess(ctx context.Context, limit int) (*BulkResult, error) {
	docs, err := p.db.ListUnprocessed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed documents: %w", err)
	}

	result := &BulkResult{}
	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		if _, err := p.Process(ctx, doc.ID, false); err != nil {
			logging.Warn("bulk processing failed for document %d: %v", doc.ID, err)
			result.Failed++
			continue
		}
		result.Processed++
	}

	remaining, err := p.db.CountUnprocessed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count remaining documents: %w", err)
	}
	result.Remaining = remaining

	logging.Info("bulk pass complete: %d processed, %d failed, %d remaining",
		result.Processed, result.Failed, result.Remaining)
	return result, nil
}

// ProcessUpload registers a newly uploaded file and, when configured,
// processes it immediately. Non-PDF uploads are registered but never
// rendered.
func (p *Processor) ProcessUpload(ctx context.Context, name, path, mimeType string, size int64) (*database.Document, error) {
	doc := &database.Document{
		Name:     name,
		Path:     path,
		MimeType: mimeType,
		Size:     size,
	}

	id, err := p.db.InsertDocument(ctx, doc)
	if err != nil {
		return nil, err
	}

	if mimeType != "application/pdf" {
		logging.Debug("document %d registered without processing (mime %s)", id, mimeType)
		return p.db.GetDocument(ctx, id)
	}

	if !p.generateOnUpload {
		return p.db.GetDocument(ctx, id)
	}

	return p.Process(ctx, id, false)
}
