package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, s := range []string{"success", "error", "mismatch", "disconnected"} {
		SyncRunsTotal.WithLabelValues(s)
	}
	for _, t := range []string{"added", "updated", "unchanged", "removed"} {
		SyncItemsTotal.WithLabelValues(t)
	}
	for _, m := range []string{"uuid", "serial", "device", "derived", "random"} {
		VolumeIdentifyTotal.WithLabelValues(m)
	}
	for _, r := range []string{"found", "not_found", "error"} {
		VolumeLocateTotal.WithLabelValues(r)
	}
	for _, op := range []string{"create", "remove", "write"} {
		WatcherEventsTotal.WithLabelValues(op)
	}
	for _, s := range []string{"done", "failed", "dropped"} {
		ExtractJobsTotal.WithLabelValues(s)
	}
	for _, op := range []string{"stat", "lstat"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}
	for _, o := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(o)
	}
	for _, op := range []string{"find_folders_reconnect", "find_videos_by_folder", "find_video_by_key",
		"find_video_by_path", "insert_video", "update_video_path", "mark_video_unavailable",
		"update_folder_volume", "record_sync_history", "create_folder", "remove_folder"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
