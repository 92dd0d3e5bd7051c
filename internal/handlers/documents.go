package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pdf-preview/internal/database"
	"pdf-preview/internal/filesystem"
	"pdf-preview/internal/logging"
)

// maxUploadBytes caps multipart uploads. Matches the largest PDFs the
// renderer will still touch at reduced DPI.
const maxUploadBytes = 200 * 1024 * 1024

// ListDocuments returns processing records, newest first.
// GET /api/documents?limit=&offset=
func (h *Handlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	docs, err := h.db.ListDocuments(r.Context(), limit, offset)
	if err != nil {
		logging.Error("failed to list documents: %v", err)
		writeJSONError(w, "failed to list documents", http.StatusInternalServerError)
		return
	}

	responses := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		responses = append(responses, h.toResponse(doc))
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"documents": responses,
		"count":     len(responses),
	})
}

// GetDocument returns one processing record.
// GET /api/documents/{id}
func (h *Handlers) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	doc, err := h.db.GetDocument(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeJSONError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("failed to get document %d: %v", id, err)
		writeJSONError(w, "failed to get document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.toResponse(doc))
}

// UploadDocument accepts a multipart PDF upload, stores it in the uploads
// directory, and registers it for processing.
// POST /api/documents
func (h *Handlers) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSONError(w, "invalid multipart upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := sanitizeFilename(header.Filename)
	if name == "" {
		writeJSONError(w, "invalid filename", http.StatusBadRequest)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		mimeType = "application/pdf"
	}

	destPath := filepath.Join(h.uploadsDir, name)
	if _, err := os.Stat(destPath); err == nil {
		writeJSONError(w, "file already exists", http.StatusConflict)
		return
	}

	size, err := saveUpload(destPath, file)
	if err != nil {
		logging.Error("failed to store upload %s: %v", name, err)
		writeJSONError(w, "failed to store upload", http.StatusInternalServerError)
		return
	}

	doc, err := h.proc.ProcessUpload(r.Context(), name, destPath, mimeType, size)
	if err != nil {
		logging.Error("failed to process upload %s: %v", name, err)
		writeJSONError(w, "upload stored but processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, h.toResponse(doc))
}

// DeleteDocument removes a processing record, its cached preview, and the
// source file.
// DELETE /api/documents/{id}
func (h *Handlers) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	doc, err := h.db.GetDocument(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeJSONError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeJSONError(w, "failed to get document", http.StatusInternalServerError)
		return
	}

	if err := h.store.DeletePreview(r.Context(), doc); err != nil {
		logging.Warn("failed to delete preview for document %d: %v", id, err)
	}

	if err := filesystem.Remove(doc.Path); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to delete source file %s: %v", doc.Path, err)
	}

	if err := h.db.DeleteDocument(r.Context(), id); err != nil {
		logging.Error("failed to delete document %d: %v", id, err)
		writeJSONError(w, "failed to delete document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "deleted"})
}

// DeletePreview removes a document's cached preview and resets its
// preview fields, leaving the record and source file in place.
// DELETE /api/documents/{id}/preview
func (h *Handlers) DeletePreview(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	doc, err := h.db.GetDocument(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeJSONError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeJSONError(w, "failed to get document", http.StatusInternalServerError)
		return
	}

	if err := h.store.DeletePreview(r.Context(), doc); err != nil {
		logging.Error("failed to delete preview for document %d: %v", id, err)
		writeJSONError(w, "failed to delete preview", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "preview deleted"})
}

// sanitizeFilename strips path separators and traversal sequences from an
// uploaded filename, keeping only its base name.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return name
}

func saveUpload(destPath string, src io.Reader) (int64, error) {
	tmpPath := destPath + ".uploading"
	dst, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, err
	}

	size, err := io.Copy(dst, src)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(tmpPath); rmErr != nil {
			logging.Warn("failed to remove partial upload %s: %v", tmpPath, rmErr)
		}
		return 0, err
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return 0, fmt.Errorf("failed to finalize upload: %w", err)
	}
	return size, nil
}
