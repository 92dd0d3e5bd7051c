package handlers

import (
	"net/http"
	"path/filepath"
	"regexp"

	"github.com/gorilla/mux"

	"pdf-preview/internal/logging"
)

// previewNameRe matches the filenames the cache writes. Anything else is
// rejected before it ever reaches the filesystem, which also closes off
// traversal through the name segment.
var previewNameRe = regexp.MustCompile(`^\d+-p1\.(webp|jpg|jpeg)$`)

// ServePreview serves a cached preview file.
// GET /previews/{name}
func (h *Handlers) ServePreview(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !previewNameRe.MatchString(name) {
		writeJSONError(w, "invalid preview name", http.StatusBadRequest)
		return
	}

	fullPath := filepath.Join(h.store.BaseDir(), name)

	// Long-lived caching is safe: previews are content-addressed by
	// document ID and regenerating one replaces the file in place.
	w.Header().Set("Cache-Control", "public, max-age=86400")
	logging.Debug("serving preview %s", name)
	http.ServeFile(w, r, fullPath)
}
