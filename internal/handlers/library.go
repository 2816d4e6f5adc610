package handlers

import (
	"net/http"
	"path/filepath"
	"time"

	"videolib/internal/filesystem"
)

// StatsResponse summarises the library
type StatsResponse struct {
	TotalFolders      int        `json:"totalFolders"`
	ActiveFolders     int        `json:"activeFolders"`
	TotalVideos       int        `json:"totalVideos"`
	AvailableVideos   int        `json:"availableVideos"`
	PendingExtraction int        `json:"pendingExtraction"`
	LastReconnectPass *time.Time `json:"lastReconnectPass,omitempty"`
}

// GetStats returns library statistics
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.CalculateStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response := StatsResponse{
		TotalFolders:      stats.TotalFolders,
		ActiveFolders:     stats.ActiveFolders,
		TotalVideos:       stats.TotalVideos,
		AvailableVideos:   stats.AvailableVideos,
		PendingExtraction: stats.PendingExtraction,
	}
	if last, err := h.db.GetLastReconnectPass(r.Context()); err == nil && !last.IsZero() {
		response.LastReconnectPass = &last
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// Reconnect runs a reconnect pass now. A pass already running gives 409.
func (h *Handlers) Reconnect(w http.ResponseWriter, r *http.Request) {
	stats, err := h.lib.Reconnect(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, stats)
}

// IdentifyVolume reports the identity of the volume holding ?path=
func (h *Handlers) IdentifyVolume(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSONError(w, "Path is required", http.StatusBadRequest)
		return
	}
	path, err := filepath.Abs(path)
	if err != nil || !filesystem.Exists(path) {
		writeJSONError(w, "Path not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.lib.Resolver().Identify(r.Context(), path))
}
