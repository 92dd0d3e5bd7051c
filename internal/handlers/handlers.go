package handlers

import (
	"pdf-preview/internal/cache"
	"pdf-preview/internal/capability"
	"pdf-preview/internal/database"
	"pdf-preview/internal/processor"
	"pdf-preview/internal/scanner"
	"pdf-preview/internal/startup"
)

type Handlers struct {
	db         *database.Database
	proc       *processor.Processor
	store      *cache.Store
	caps       *capability.Cache
	scanner    *scanner.Scanner
	uploadsDir string
}

func New(db *database.Database, proc *processor.Processor, store *cache.Store,
	caps *capability.Cache, scan *scanner.Scanner, config *startup.Config) *Handlers {
	return &Handlers{
		db:         db,
		proc:       proc,
		store:      store,
		caps:       caps,
		scanner:    scan,
		uploadsDir: config.UploadsDir,
	}
}
