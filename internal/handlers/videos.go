package handlers

import (
	"net/http"

	"videolib/internal/database"
)

// ListVideos returns the videos of a folder. ?available=true and
// ?available=false filter on availability.
func (h *Handlers) ListVideos(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid folder id", http.StatusBadRequest)
		return
	}

	if _, err := h.db.GetFolder(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	videos, err := h.db.FindVideosByFolder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	filter := r.URL.Query().Get("available")
	result := make([]database.Video, 0, len(videos))
	for _, v := range videos {
		if (filter == "true" && !v.Available) || (filter == "false" && v.Available) {
			continue
		}
		result = append(result, v)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

// GetVideo returns one video record
func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid video id", http.StatusBadRequest)
		return
	}

	v, err := h.db.GetVideo(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, v)
}

// GetThumbnail serves the cached thumbnail of a video
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid video id", http.StatusBadRequest)
		return
	}

	v, err := h.db.GetVideo(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if v.ThumbnailPath == "" {
		writeJSONError(w, "No thumbnail", http.StatusNotFound)
		return
	}

	// Thumbnails are named by content key, so they never change in place.
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, v.ThumbnailPath)
}
