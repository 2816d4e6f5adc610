package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videolib_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videolib_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videolib_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videolib_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videolib_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videolib_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"outcome"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videolib_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Sync (reconciliation) metrics
var (
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videolib_sync_runs_total",
			Help: "Total number of folder reconciliation runs by outcome",
		},
		[]string{"status"}, // "success", "error", "mismatch", "disconnected"
	)

	SyncItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videolib_sync_items_total",
			Help: "Video records touched by reconciliation, by transition",
		},
		[]string{"transition"}, // "added", "updated", "unchanged", "removed"
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videolib_sync_duration_seconds",
			Help:    "Duration of a full folder sync (scan + reconcile)",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	SyncInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videolib_sync_in_progress",
			Help: "Number of folder syncs currently running",
		},
	)

	ScanFilesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videolib_scan_files_skipped_total",
			Help: "Entries skipped by the directory scanner because of I/O errors",
		},
	)
)

// Volume identity metrics
var (
	VolumeIdentifyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videolib_volume_identify_total",
			Help: "Volume identifications by method",
		},
		[]string{"method"}, // "uuid", "serial", "device", "derived", "random"
	)

	VolumeDegradedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videolib_volume_degraded_total",
			Help: "Volume identifications that fell back to a non-portable identifier",
		},
	)

	VolumeLocateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videolib_volume_locate_total",
			Help: "Volume lookups by result",
		},
		[]string{"result"}, // "found", "not_found", "error"
	)
)

// Reconnect monitor metrics
var (
	ReconnectPassesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videolib_reconnect_passes_total",
			Help: "Total number of reconnect scans",
		},
	)

	ReconnectDisksFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videolib_reconnect_disks_found_total",
			Help: "Disconnected volumes found mounted again",
		},
	)

	ReconnectFoldersRestored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videolib_reconnect_folders_restored_total",
			Help: "Watched folders re-anchored to a new mount point",
		},
	)

	ReconnectVideosRestored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videolib_reconnect_videos_restored_total",
			Help: "Video records made available again by the reconnect monitor",
		},
	)

	ReconnectVideosFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videolib_reconnect_videos_failed_total",
			Help: "Video records still missing after their volume came back",
		},
	)

	ReconnectLastPassTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videolib_reconnect_last_pass_timestamp",
			Help: "Timestamp of the last reconnect scan",
		},
	)
)

// Live watcher metrics
var (
	WatcherFoldersWatched = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videolib_watcher_folders_watched",
			Help: "Number of folders with an active file-system watcher",
		},
	)

	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videolib_watcher_events_total",
			Help: "File-system events applied by the live watcher",
		},
		[]string{"op"}, // "create", "remove", "write"
	)
)

// Extraction queue metrics
var (
	ExtractJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videolib_extract_jobs_total",
			Help: "Thumbnail/metadata extraction jobs by status",
		},
		[]string{"status"}, // "done", "failed", "dropped"
	)

	ExtractDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videolib_extract_duration_seconds",
			Help:    "Duration of one extraction job",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ExtractQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videolib_extract_queue_depth",
			Help: "Jobs waiting in the extraction queue",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videolib_filesystem_retry_attempts_total",
			Help: "Retries of filesystem operations after stale handle errors",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videolib_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videolib_filesystem_stale_errors_total",
			Help: "Stale file handle errors seen",
		},
		[]string{"operation"},
	)
)

// Library contents, refreshed by the Collector
var (
	LibraryFolders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "videolib_library_folders",
			Help: "Watched folders by state",
		},
		[]string{"state"}, // "active", "inactive"
	)

	LibraryVideos = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "videolib_library_videos",
			Help: "Video records by availability",
		},
		[]string{"availability"}, // "available", "unavailable"
	)

	LibraryPendingExtraction = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videolib_library_pending_extraction",
			Help: "Video records whose extraction status is pending",
		},
	)
)
