package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"videolib/internal/database"
	"videolib/internal/reconcile"
)

// FolderResponse is a watched folder plus its live watcher state.
type FolderResponse struct {
	database.Folder
	Watching bool `json:"watching"`
}

// AddFolderRequest registers a folder.
type AddFolderRequest struct {
	Path string `json:"path"`
	// Sync starts a background sync of the folder once it is registered.
	Sync bool `json:"sync"`
}

// SyncResponse reports the result of a folder sync.
type SyncResponse struct {
	Status string          `json:"status"`
	Stats  reconcile.Stats `json:"stats"`
}

func (h *Handlers) folderResponse(f database.Folder) FolderResponse {
	return FolderResponse{Folder: f, Watching: h.lib.IsWatching(f.ID)}
}

// ListFolders returns every watched folder
func (h *Handlers) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.db.ListFolders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response := make([]FolderResponse, 0, len(folders))
	for _, f := range folders {
		response = append(response, h.folderResponse(f))
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// GetFolder returns one watched folder
func (h *Handlers) GetFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid folder id", http.StatusBadRequest)
		return
	}

	f, err := h.db.GetFolder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.folderResponse(*f))
}

// AddFolder registers a folder. Adding a folder that is already known on
// the same volume returns the existing folder.
func (h *Handlers) AddFolder(w http.ResponseWriter, r *http.Request) {
	var req AddFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Path = strings.TrimSpace(req.Path)
	if req.Path == "" {
		writeJSONError(w, "Path is required", http.StatusBadRequest)
		return
	}

	f, err := h.lib.AddFolder(r.Context(), req.Path)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.Sync {
		h.lib.SyncInBackground(f.ID)
	}

	writeJSONStatusCode(w, http.StatusCreated, h.folderResponse(*f))
}

// RemoveFolder deletes a folder and its videos
func (h *Handlers) RemoveFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid folder id", http.StatusBadRequest)
		return
	}

	if err := h.lib.RemoveFolder(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncFolder runs a full sync of a folder. With ?async=true the sync is
// started in the background and 202 is returned at once.
func (h *Handlers) SyncFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid folder id", http.StatusBadRequest)
		return
	}

	if _, err := h.db.GetFolder(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	if r.URL.Query().Get("async") == "true" {
		h.lib.SyncInBackground(id)
		writeJSONStatusCode(w, http.StatusAccepted, map[string]string{"status": "started"})
		return
	}

	stats, err := h.lib.SyncFolder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, SyncResponse{Status: "complete", Stats: stats})
}

// ListHistory returns the most recent syncs of a folder, newest first
func (h *Handlers) ListHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid folder id", http.StatusBadRequest)
		return
	}

	history, err := h.db.ListSyncHistory(r.Context(), id, queryInt(r, "limit", 20))
	if err != nil {
		writeError(w, err)
		return
	}
	if history == nil {
		history = []database.SyncHistory{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, history)
}
