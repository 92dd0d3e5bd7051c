package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"pdf-preview/internal/database"
	"pdf-preview/internal/logging"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"error": message})
}

// documentID parses the {id} route variable. Writes a 400 and returns
// false on anything that isn't a positive integer.
func documentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		writeJSONError(w, "invalid document id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// documentResponse is a Document plus its resolved preview URL. The URL
// is computed per request so it reflects the file's actual existence.
type documentResponse struct {
	*database.Document
	PreviewURL string `json:"previewUrl,omitempty"`
}

func (h *Handlers) toResponse(doc *database.Document) documentResponse {
	return documentResponse{
		Document:   doc,
		PreviewURL: h.store.PreviewURL(doc),
	}
}
