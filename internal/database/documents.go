package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no document exists for the given ID or path.
var ErrNotFound = errors.New("document not found")

const documentColumns = `
	id, name, path, mime_type, size, uploaded_at, processed,
	page_count, width, height, title, author, metadata_source,
	preview_path, preview_generated_at, extraction_method, extraction_error
`

func scanDocument(row interface{ Scan(...interface{}) error }) (*Document, error) {
	var doc Document
	var uploadedAt int64
	var processed int
	var previewPath sql.NullString
	var previewGeneratedAt sql.NullInt64
	var extractionError sql.NullString

	err := row.Scan(
		&doc.ID, &doc.Name, &doc.Path, &doc.MimeType, &doc.Size, &uploadedAt, &processed,
		&doc.PageCount, &doc.Width, &doc.Height, &doc.Title, &doc.Author, &doc.MetadataSource,
		&previewPath, &previewGeneratedAt, &doc.ExtractionMethod, &extractionError,
	)
	if err != nil {
		return nil, err
	}

	doc.UploadedAt = time.Unix(uploadedAt, 0)
	doc.Processed = processed != 0
	doc.PreviewPath = previewPath.String
	if previewGeneratedAt.Valid {
		t := time.Unix(previewGeneratedAt.Int64, 0)
		doc.PreviewGeneratedAt = &t
	}
	doc.ExtractionError = extractionError.String
	return &doc, nil
}

// InsertDocument creates a new processing record and returns its ID.
func (d *Database) InsertDocument(ctx context.Context, doc *Document) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("insert_document", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `
		INSERT INTO documents (name, path, mime_type, size)
		VALUES (?, ?, ?, ?)
	`, doc.Name, doc.Path, doc.MimeType, doc.Size)
	if err != nil {
		return 0, fmt.Errorf("failed to insert document: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetDocument retrieves a processing record by document ID.
func (d *Database) GetDocument(ctx context.Context, id int64) (*Document, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_document", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, "SELECT"+documentColumns+"FROM documents WHERE id = ?", id)
	doc, scanErr := scanDocument(row)
	if errors.Is(scanErr, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	err = scanErr
	return doc, err
}

// GetDocumentByPath retrieves a processing record by source file path.
func (d *Database) GetDocumentByPath(ctx context.Context, path string) (*Document, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_document", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, "SELECT"+documentColumns+"FROM documents WHERE path = ?", path)
	doc, scanErr := scanDocument(row)
	if errors.Is(scanErr, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	err = scanErr
	return doc, err
}

// ListDocuments returns processing records ordered by upload time, newest first.
func (d *Database) ListDocuments(ctx context.Context, limit, offset int) ([]*Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if limit < 1 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT"+documentColumns+"FROM documents ORDER BY uploaded_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ListUnprocessed returns up to limit documents that have not been processed
// yet, oldest first. Documents with a recorded extraction error are excluded:
// a failed attempt is only retried explicitly, never by the bulk loop.
func (d *Database) ListUnprocessed(ctx context.Context, limit int) ([]*Document, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_unprocessed", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	if limit < 1 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT"+documentColumns+"FROM documents WHERE processed = 0 AND extraction_error IS NULL ORDER BY uploaded_at ASC, id ASC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, scanErr := scanDocument(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		docs = append(docs, doc)
	}
	err = rows.Err()
	return docs, err
}

// CountUnprocessed returns the number of documents still eligible for bulk
// processing, with the same exclusions as ListUnprocessed.
func (d *Database) CountUnprocessed(ctx context.Context) (int, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("count_unprocessed", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE processed = 0 AND extraction_error IS NULL").Scan(&count)
	return count, err
}

// DeleteDocument removes a processing record entirely.
func (d *Database) DeleteDocument(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_document", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	return err
}

// SaveExtractionResult persists the metadata fields of a processing record.
func (d *Database) SaveExtractionResult(ctx context.Context, id int64, pageCount, width, height int, title, author, source string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("save_extraction", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE documents SET
			page_count = ?, width = ?, height = ?, title = ?, author = ?,
			metadata_source = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?
	`, pageCount, width, height, title, author, source, id)
	return err
}

// SavePreviewResult persists the preview fields of a processing record.
// An empty previewPath records a failed or skipped preview: the path and
// timestamp are nulled and method should be MethodNone.
func (d *Database) SavePreviewResult(ctx context.Context, id int64, previewPath, method string, generatedAt time.Time) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("save_preview", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if previewPath == "" {
		_, err = d.db.ExecContext(ctx, `
			UPDATE documents SET
				preview_path = NULL, preview_generated_at = NULL,
				extraction_method = ?, updated_at = strftime('%s', 'now')
			WHERE id = ?
		`, method, id)
		return err
	}

	_, err = d.db.ExecContext(ctx, `
		UPDATE documents SET
			preview_path = ?, preview_generated_at = ?,
			extraction_method = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?
	`, previewPath, generatedAt.Unix(), method, id)
	return err
}

// MarkProcessed flags a completed processing attempt. A non-empty previewErr
// records a preview sub-step failure; metadata alone is still a terminal,
// successful attempt.
func (d *Database) MarkProcessed(ctx context.Context, id int64, previewErr string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("mark_processed", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE documents SET
			processed = 1, extraction_error = NULLIF(?, ''),
			updated_at = strftime('%s', 'now')
		WHERE id = ?
	`, previewErr, id)
	return err
}

// SetExtractionError records a failed processing attempt. The document stays
// unprocessed so a later retry is possible.
func (d *Database) SetExtractionError(ctx context.Context, id int64, msg string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_error", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE documents SET
			processed = 0, extraction_error = ?,
			updated_at = strftime('%s', 'now')
		WHERE id = ?
	`, msg, id)
	return err
}

// ClearPreviewFields resets every preview-related field of a processing
// record: path, generated-at, method, error, and the processed flag. A stale
// path left behind after a preview delete would hand out dead links, so this
// is always a full reset.
func (d *Database) ClearPreviewFields(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("clear_preview", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE documents SET
			preview_path = NULL, preview_generated_at = NULL,
			extraction_method = 'none', extraction_error = NULL,
			processed = 0, updated_at = strftime('%s', 'now')
		WHERE id = ?
	`, id)
	return err
}

// ClearAllPreviewFields resets the preview fields of every processing record
// in one bulk statement and returns the number of affected records.
func (d *Database) ClearAllPreviewFields(ctx context.Context) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("clear_all_previews", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `
		UPDATE documents SET
			preview_path = NULL, preview_generated_at = NULL,
			extraction_method = 'none', extraction_error = NULL,
			processed = 0, updated_at = strftime('%s', 'now')
		WHERE preview_path IS NOT NULL OR extraction_method != 'none'
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
