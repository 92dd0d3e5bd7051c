package handlers

import (
	"net/http"

	"pdf-preview/internal/startup"
)

// Version returns build information for the running binary.
// GET /api/version
func (h *Handlers) Version(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, startup.GetBuildInfo())
}
