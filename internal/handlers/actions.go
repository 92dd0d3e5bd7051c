package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"pdf-preview/internal/database"
	"pdf-preview/internal/logging"
)

// ProcessDocument runs the pipeline for one document.
// POST /api/documents/{id}/process?force=true
func (h *Handlers) ProcessDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	doc, err := h.proc.Process(r.Context(), id, force)
	if errors.Is(err, database.ErrNotFound) {
		writeJSONError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("processing failed for document %d: %v", id, err)
		writeJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.toResponse(doc))
}

// BulkProcess runs the pipeline over a batch of unprocessed documents.
// POST /api/process/bulk?limit=10
func (h *Handlers) BulkProcess(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	result, err := h.proc.BulkProcess(r.Context(), limit)
	if err != nil {
		logging.Error("bulk processing failed: %v", err)
		writeJSONError(w, "bulk processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

// GetCapabilities returns the current capability snapshot.
// GET /api/capabilities
func (h *Handlers) GetCapabilities(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.caps.Get(false))
}

// RefreshCapabilities forces a capability re-probe.
// POST /api/capabilities/refresh
func (h *Handlers) RefreshCapabilities(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.caps.Get(true))
}

// CacheStats reports preview cache usage.
// GET /api/cache/stats
func (h *Handlers) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		logging.Error("failed to gather cache stats: %v", err)
		writeJSONError(w, "failed to gather cache stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, stats)
}

// ClearCache wipes every cached preview and resets all records.
// POST /api/cache/clear
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.store.ClearAll(r.Context())
	if err != nil {
		logging.Error("cache clear failed: %v", err)
		writeJSONError(w, "cache clear failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"status":       "cleared",
		"filesDeleted": deleted,
	})
}

// RunCleanup triggers an immediate age-based cleanup sweep.
// POST /api/cache/cleanup
func (h *Handlers) RunCleanup(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.store.CleanupOldFiles(r.Context())
	if err != nil {
		logging.Error("cache cleanup failed: %v", err)
		writeJSONError(w, "cache cleanup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"status":       "complete",
		"filesDeleted": deleted,
	})
}
