package handlers

import (
	"net/http"
	"runtime"

	"videolib/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status           string `json:"status"`
	Ready            bool   `json:"ready"`
	Version          string `json:"version"`
	Uptime           string `json:"uptime"`
	Syncing          bool   `json:"syncing"`
	LastSync         string `json:"lastSync,omitempty"`
	InitialSyncError string `json:"initialSyncError,omitempty"`
	WatchedFolders   int    `json:"watchedFolders"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Stats summary
	TotalVideos  int `json:"totalVideos,omitempty"`
	TotalFolders int `json:"totalFolders,omitempty"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := h.lib.GetHealthStatus()

	response := HealthResponse{
		Ready:          status.Ready,
		Version:        startup.Version,
		Uptime:         status.Uptime,
		Syncing:        status.Syncing,
		WatchedFolders: status.WatchedFolders,
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
		NumGoroutine:   runtime.NumGoroutine(),
	}

	switch {
	case status.InitialSyncError != "":
		response.InitialSyncError = status.InitialSyncError
		response.Status = statusDegraded
	case status.Ready:
		response.Status = statusHealthy
	default:
		response.Status = statusStarting
	}

	if !status.LastSync.IsZero() {
		response.LastSync = status.LastSync.Format("2006-01-02T15:04:05Z07:00")
	}

	if stats, err := h.db.CalculateStats(r.Context()); err == nil {
		response.TotalVideos = stats.TotalVideos
		response.TotalFolders = stats.TotalFolders
	}

	// 503 only until the first pass is done
	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSONStatusCode(w, code, response)
}

// LivenessCheck always returns 200 while the server is running
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only when the initial pass is done
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.lib.IsReady() {
		writeJSONStatus(w, "ready")
		return
	}
	writeJSONStatusCode(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}

// GetVersion returns the application version and build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, startup.GetBuildInfo())
}
