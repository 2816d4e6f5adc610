package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"videolib/internal/database"
	"videolib/internal/library"
	"videolib/internal/logging"
	"videolib/internal/reconcile"
	"videolib/internal/reconnect"

	"github.com/gorilla/mux"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatusCode writes v as JSON with the given status code.
func writeJSONStatusCode(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatusCode(w, statusCode, map[string]string{"error": message})
}

// writeJSONStatus writes a simple status response as JSON.
func writeJSONStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": status})
}

// mismatchResponse is returned with 409 when a folder's path is now on
// another volume.
type mismatchResponse struct {
	Error    string `json:"error"`
	FolderID int64  `json:"folderId"`
	Path     string `json:"path"`
	Recorded string `json:"recordedVolume"`
	Live     string `json:"liveVolume"`
}

// writeError maps library errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var mismatch *reconcile.MismatchError
	switch {
	case errors.As(err, &mismatch):
		writeJSONStatusCode(w, http.StatusConflict, mismatchResponse{
			Error:    err.Error(),
			FolderID: mismatch.FolderID,
			Path:     mismatch.Path,
			Recorded: mismatch.Recorded,
			Live:     mismatch.Live,
		})
	case errors.Is(err, database.ErrNotFound):
		writeJSONError(w, "Not found", http.StatusNotFound)
	case errors.Is(err, reconnect.ErrPassInProgress):
		writeJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, library.ErrNotDirectory):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		logging.Error("request failed: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt returns the named query parameter, or fallback if it is missing
// or not a positive integer.
func queryInt(r *http.Request, name string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
