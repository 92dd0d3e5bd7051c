package scanner

import (
	"context"
	"io/fs"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pdf-preview/internal/database"
	"pdf-preview/internal/logging"
	"pdf-preview/internal/metrics"
	"pdf-preview/internal/startup"
	"pdf-preview/internal/workers"
)

// Scanner walks the uploads directory on an interval and registers PDFs
// that have no processing record yet. It is the safety net behind
// explicit uploads: files dropped into the directory out of band still
// get picked up.
type Scanner struct {
	db         *database.Database
	uploadsDir string
	interval   time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	stateMu      sync.RWMutex
	scanning     bool
	lastScanTime time.Time
	lastScanErr  error
}

// New returns a Scanner over uploadsDir.
func New(db *database.Database, uploadsDir string, interval time.Duration) *Scanner {
	return &Scanner{
		db:         db,
		uploadsDir: uploadsDir,
		interval:   interval,
		stopChan:   make(chan struct{}),
	}
}

// Start runs an immediate scan and then scans on the configured interval
// until Stop is called.
func (s *Scanner) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if err := s.Scan(context.Background()); err != nil {
			logging.Warn("initial upload scan failed: %v", err)
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.Scan(context.Background()); err != nil {
					logging.Warn("upload scan failed: %v", err)
				}
			case <-s.stopChan:
				return
			}
		}
	}()
	logging.Info("upload scanner started (dir=%s, interval=%v)", s.uploadsDir, s.interval)
}

// Stop halts periodic scanning and waits for an in-flight scan to finish.
func (s *Scanner) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

// Scan walks the uploads directory once and inserts records for PDFs the
// database does not know about. The preview cache subdirectory is skipped.
func (s *Scanner) Scan(ctx context.Context) error {
	s.stateMu.Lock()
	if s.scanning {
		s.stateMu.Unlock()
		logging.Debug("upload scan already in progress, skipping")
		return nil
	}
	s.scanning = true
	s.stateMu.Unlock()

	defer func() {
		s.stateMu.Lock()
		s.scanning = false
		s.lastScanTime = time.Now()
		s.stateMu.Unlock()
	}()

	metrics.ScannerRunsTotal.Inc()
	start := time.Now()

	type candidate struct {
		name string
		path string
		size int64
	}
	var candidates []candidate

	err := filepath.WalkDir(s.uploadsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Debug("scan skipping %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if d.Name() == startup.PreviewSubdir {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		candidates = append(candidates, candidate{name: d.Name(), path: path, size: info.Size()})
		return nil
	})
	if err != nil {
		s.setLastError(err)
		metrics.ScannerErrors.Inc()
		return err
	}

	// Registration is I/O bound on the database, so a small worker pool
	// is enough to keep the walk from dominating scan time.
	sem := make(chan struct{}, workers.ForIO(8))
	var wg sync.WaitGroup
	var registered int64
	var regMu sync.Mutex

	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(c candidate) {
			defer wg.Done()
			defer func() { <-sem }()

			if _, err := s.db.GetDocumentByPath(ctx, c.path); err == nil {
				return
			} else if err != database.ErrNotFound {
				logging.Warn("scan lookup failed for %s: %v", c.path, err)
				return
			}

			doc := &database.Document{
				Name:     c.name,
				Path:     c.path,
				MimeType: mime.TypeByExtension(".pdf"),
				Size:     c.size,
			}
			if doc.MimeType == "" {
				doc.MimeType = "application/pdf"
			}
			if _, err := s.db.InsertDocument(ctx, doc); err != nil {
				logging.Warn("scan failed to register %s: %v", c.path, err)
				return
			}
			metrics.ScannerRegisteredTotal.Inc()
			regMu.Lock()
			registered++
			regMu.Unlock()
			logging.Debug("scan registered new document: %s", c.path)
		}(c)
	}
	wg.Wait()

	s.setLastError(nil)
	if registered > 0 {
		logging.Info("upload scan found %d new documents in %v", registered, time.Since(start))
	} else {
		logging.Debug("upload scan complete in %v, nothing new", time.Since(start))
	}
	return nil
}

func (s *Scanner) setLastError(err error) {
	s.stateMu.Lock()
	s.lastScanErr = err
	s.stateMu.Unlock()
}

// HealthStatus contains scanner state for health checks.
type HealthStatus struct {
	Scanning     bool      `json:"scanning"`
	LastScanTime time.Time `json:"lastScanTime"`
	LastScanErr  string    `json:"lastScanError,omitempty"`
}

// GetHealthStatus returns the scanner's current state.
func (s *Scanner) GetHealthStatus() HealthStatus {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	status := HealthStatus{
		Scanning:     s.scanning,
		LastScanTime: s.lastScanTime,
	}
	if s.lastScanErr != nil {
		status.LastScanErr = s.lastScanErr.Error()
	}
	return status
}
