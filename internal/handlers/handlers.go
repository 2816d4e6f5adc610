package handlers

import (
	"context"
	"time"

	"videolib/internal/database"
	"videolib/internal/events"
	"videolib/internal/library"
	"videolib/internal/metrics"
	"videolib/internal/reconcile"
	"videolib/internal/reconnect"
	"videolib/internal/volume"

	"github.com/gorilla/mux"
)

// Library is the part of *library.Library the API drives.
type Library interface {
	AddFolder(ctx context.Context, path string) (*database.Folder, error)
	RemoveFolder(ctx context.Context, folderID int64) error
	SyncFolder(ctx context.Context, folderID int64) (reconcile.Stats, error)
	SyncInBackground(folderID int64)
	Reconnect(ctx context.Context) (reconnect.Stats, error)
	IsWatching(folderID int64) bool
	IsReady() bool
	GetHealthStatus() library.HealthStatus
	Resolver() volume.Resolver
}

// Store is the read side of the index used by the API.
type Store interface {
	ListFolders(ctx context.Context) ([]database.Folder, error)
	GetFolder(ctx context.Context, id int64) (*database.Folder, error)
	FindVideosByFolder(ctx context.Context, folderID int64) ([]database.Video, error)
	GetVideo(ctx context.Context, id int64) (*database.Video, error)
	ListSyncHistory(ctx context.Context, folderID int64, limit int) ([]database.SyncHistory, error)
	CalculateStats(ctx context.Context) (metrics.Stats, error)
	GetLastReconnectPass(ctx context.Context) (time.Time, error)
}

// Subscriber hands out live event streams.
type Subscriber interface {
	Subscribe(buffer int) (<-chan events.Event, func())
}

type Handlers struct {
	db     Store
	lib    Library
	events Subscriber
}

func New(db Store, lib Library, bus Subscriber) *Handlers {
	return &Handlers{
		db:     db,
		lib:    lib,
		events: bus,
	}
}

// Register adds every route to r.
func (h *Handlers) Register(r *mux.Router, metricsEnabled bool) {
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	if metricsEnabled {
		r.Handle("/metrics", h.MetricsHandler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/folders", h.ListFolders).Methods("GET")
	api.HandleFunc("/folders", h.AddFolder).Methods("POST")
	api.HandleFunc("/folders/{id:[0-9]+}", h.GetFolder).Methods("GET")
	api.HandleFunc("/folders/{id:[0-9]+}", h.RemoveFolder).Methods("DELETE")
	api.HandleFunc("/folders/{id:[0-9]+}/sync", h.SyncFolder).Methods("POST")
	api.HandleFunc("/folders/{id:[0-9]+}/videos", h.ListVideos).Methods("GET")
	api.HandleFunc("/folders/{id:[0-9]+}/history", h.ListHistory).Methods("GET")
	api.HandleFunc("/videos/{id:[0-9]+}", h.GetVideo).Methods("GET")
	api.HandleFunc("/videos/{id:[0-9]+}/thumbnail", h.GetThumbnail).Methods("GET")
	api.HandleFunc("/reconnect", h.Reconnect).Methods("POST")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")
	api.HandleFunc("/volumes/identify", h.IdentifyVolume).Methods("GET")
	api.HandleFunc("/events", h.StreamEvents).Methods("GET")
}
