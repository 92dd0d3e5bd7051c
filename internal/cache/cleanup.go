package cache

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"pdf-preview/internal/database"
	"pdf-preview/internal/filesystem"
	"pdf-preview/internal/logging"
	"pdf-preview/internal/metrics"
)

// previewFileRe matches cache filenames the pipeline writes. Anything else
// in the directory (sentinels, stray uploads) is never touched by cleanup.
var previewFileRe = regexp.MustCompile(`^(\d+)-p1\.(webp|jpg|jpeg)$`)

// CleanupOldFiles removes cached previews older than the retention window
// and resets the database fields of the records that referenced them. The
// last-run timestamp is recorded even when nothing was deleted, so a sweep
// that finds an empty cache still counts as having run.
func (s *Store) CleanupOldFiles(ctx context.Context) (int, error) {
	start := time.Now()
	metrics.CleanupRunsTotal.Inc()

	defer func() {
		if err := s.db.SetLastCleanupRun(ctx, time.Now()); err != nil {
			logging.Warn("failed to record cleanup timestamp: %v", err)
		}
		metrics.CleanupLastRunTimestamp.SetToCurrentTime()
	}()

	if s.retentionDays <= 0 {
		logging.Debug("cache cleanup skipped: retention disabled")
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	deleted := 0

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return deleted, ctx.Err()
		}
		if entry.IsDir() {
			continue
		}

		m := previewFileRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		info, infoErr := entry.Info()
		if infoErr != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(s.baseDir, entry.Name())
		if err := filesystem.Remove(path); err != nil {
			logging.Warn("cleanup failed to remove %s: %v", path, err)
			continue
		}
		deleted++
		metrics.CleanupDeletedTotal.Inc()

		docID, parseErr := strconv.ParseInt(m[1], 10, 64)
		if parseErr != nil {
			continue
		}

		// Only reset the record when it actually points at the deleted
		// file. An orphan left behind by a crashed write can share a
		// document ID with a newer, still-valid preview.
		doc, getErr := s.db.GetDocument(ctx, docID)
		if getErr != nil {
			if getErr != database.ErrNotFound {
				logging.Warn("cleanup lookup failed for document %d: %v", docID, getErr)
			}
			continue
		}
		if doc.PreviewPath != entry.Name() {
			logging.Debug("cleanup removed orphan %s (record points at %q)", entry.Name(), doc.PreviewPath)
			continue
		}
		if err := s.db.ClearPreviewFields(ctx, docID); err != nil {
			logging.Warn("cleanup failed to reset record for document %d: %v", docID, err)
		}
	}

	logging.Info("cache cleanup complete: %d previews removed in %v (retention %dd)",
		deleted, time.Since(start), s.retentionDays)
	return deleted, nil
}
