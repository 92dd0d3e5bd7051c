package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pdf-preview/internal/database"
	"pdf-preview/internal/filesystem"
	"pdf-preview/internal/logging"
)

// Sentinel files written alongside previews. The .htaccess blocks script
// execution when the uploads tree is served by Apache, and the empty
// index.html stops directory listings on servers that autoindex.
const htaccessContent = `# Deny execution of scripts in the preview cache
<FilesMatch "\.(php|phtml|php3|php4|php5|pl|py|cgi|sh)$">
    Require all denied
</FilesMatch>
Options -Indexes -ExecCGI
`

// Store manages the on-disk preview cache and the database fields that
// reference it. The cache lives in a fixed subdirectory of the uploads
// tree so previews travel with the documents they belong to.
type Store struct {
	db            *database.Database
	baseDir       string
	baseURL       string
	retentionDays int
}

// NewStore returns a Store rooted at baseDir. URLs handed out for previews
// are baseURL plus the cached filename.
func NewStore(db *database.Database, baseDir, baseURL string, retentionDays int) *Store {
	return &Store{
		db:            db,
		baseDir:       baseDir,
		baseURL:       baseURL,
		retentionDays: retentionDays,
	}
}

// BaseDir returns the cache directory root.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// EnsureDirectory creates the cache directory and its protection sentinels.
// Safe to call repeatedly; existing sentinels are left alone.
func (s *Store) EnsureDirectory() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return fmt.Errorf("failed to create preview cache dir: %w", err)
	}

	htaccessPath := filepath.Join(s.baseDir, ".htaccess")
	if _, err := os.Stat(htaccessPath); os.IsNotExist(err) {
		if err := filesystem.WriteFile(htaccessPath, []byte(htaccessContent), 0644); err != nil {
			logging.Warn("failed to write cache .htaccess: %v", err)
		}
	}

	indexPath := filepath.Join(s.baseDir, "index.html")
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		if err := filesystem.WriteFile(indexPath, []byte(""), 0644); err != nil {
			logging.Warn("failed to write cache index.html: %v", err)
		}
	}

	return nil
}

// PreviewFilename returns the cache filename for a document preview.
func PreviewFilename(docID int64, ext string) string {
	return fmt.Sprintf("%d-p1.%s", docID, ext)
}

// WritePreview stores encoded preview bytes for a document and returns the
// relative cache path. Data is written to a temp file and renamed so a
// crash mid-write never leaves a partial preview at the final name. Empty
// data is rejected: a zero-byte preview is an encoder failure, not output.
func (s *Store) WritePreview(docID int64, ext string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("refusing to write empty preview for document %d", docID)
	}

	if err := s.EnsureDirectory(); err != nil {
		return "", err
	}

	name := PreviewFilename(docID, ext)
	finalPath := filepath.Join(s.baseDir, name)
	tmpPath := finalPath + ".tmp"

	if err := filesystem.WriteFile(tmpPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write preview: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		if rmErr := filesystem.Remove(tmpPath); rmErr != nil {
			logging.Warn("failed to remove temp preview %s: %v", tmpPath, rmErr)
		}
		return "", fmt.Errorf("failed to finalize preview: %w", err)
	}

	logging.Debug("preview cached: %s (%d bytes)", finalPath, len(data))
	return name, nil
}

// PreviewPath returns the absolute path of a document's cached preview, or
// an empty string when the record has no preview or the file has gone
// missing since the record was written. The filesystem is the authority: a
// database row pointing at a deleted file must not produce a path.
func (s *Store) PreviewPath(doc *database.Document) string {
	if !doc.HasPreview() {
		return ""
	}

	fullPath := filepath.Join(s.baseDir, doc.PreviewPath)
	info, err := filesystem.Stat(fullPath)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return ""
	}
	return fullPath
}

// PreviewURL returns the public URL of a document's preview, or an empty
// string under the same existence rules as PreviewPath.
func (s *Store) PreviewURL(doc *database.Document) string {
	if s.PreviewPath(doc) == "" {
		return ""
	}
	return s.baseURL + "/" + doc.PreviewPath
}

// DeletePreview removes a document's cached file and resets every
// preview-related database field. A missing file is not an error; the
// database reset happens regardless.
func (s *Store) DeletePreview(ctx context.Context, doc *database.Document) error {
	if doc.PreviewPath != "" {
		fullPath := filepath.Join(s.baseDir, doc.PreviewPath)
		if err := filesystem.Remove(fullPath); err != nil && !os.IsNotExist(err) {
			logging.Warn("failed to remove preview file %s: %v", fullPath, err)
		}
	}

	if err := s.db.ClearPreviewFields(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to clear preview fields for document %d: %w", doc.ID, err)
	}

	logging.Info("preview deleted for document %d", doc.ID)
	return nil
}

// ClearAll wipes every cached preview file and bulk-resets the preview
// fields of all processing records. Returns how many files were deleted.
func (s *Store) ClearAll(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("failed to read preview cache dir: %w", err)
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() || !previewFileRe.MatchString(entry.Name()) {
			continue
		}
		path := filepath.Join(s.baseDir, entry.Name())
		if err := filesystem.Remove(path); err != nil {
			logging.Warn("failed to remove cached preview %s: %v", path, err)
			continue
		}
		deleted++
	}

	rows, err := s.db.ClearAllPreviewFields(ctx)
	if err != nil {
		return deleted, fmt.Errorf("failed to reset preview records: %w", err)
	}

	logging.Info("preview cache cleared: %d files removed, %d records reset", deleted, rows)
	return deleted, nil
}

// Stats describes the current state of the preview cache.
type Stats struct {
	FileCount      int        `json:"fileCount"`
	TotalSizeBytes int64      `json:"totalSizeBytes"`
	OldestFile     *time.Time `json:"oldestFile,omitempty"`
	LastCleanupRun *time.Time `json:"lastCleanupRun,omitempty"`
}

// GetStats walks the cache directory and reports file count, total size,
// and the oldest preview's modification time. Sentinel files are excluded.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return nil, fmt.Errorf("failed to read preview cache dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !previewFileRe.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.FileCount++
		stats.TotalSizeBytes += info.Size()
		modTime := info.ModTime()
		if stats.OldestFile == nil || modTime.Before(*stats.OldestFile) {
			stats.OldestFile = &modTime
		}
	}

	lastRun, err := s.db.GetLastCleanupRun(ctx)
	if err != nil {
		logging.Warn("failed to read last cleanup timestamp: %v", err)
	} else if !lastRun.IsZero() {
		stats.LastCleanupRun = &lastRun
	}

	return stats, nil
}
