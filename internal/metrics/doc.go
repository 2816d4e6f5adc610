// Package metrics provides Prometheus instrumentation for the video library.
//
// All metrics are prefixed with "videolib_" and registered with the default
// registry through promauto. They are grouped by subsystem:
//
//   - HTTP: request counts, durations and in-flight requests of the control API
//   - Database: query counts/durations by operation, transaction durations
//   - Sync: reconciliation runs by outcome and records by transition
//     (added, updated, unchanged, removed)
//   - Volume: identification method, degraded fallbacks, locate results
//   - Reconnect: passes, volumes found again, folders and videos restored
//   - Watcher: watched folders and applied file-system events
//   - Extract: thumbnail/metadata extraction jobs and queue depth
//   - Library: folder and video gauges refreshed by the [Collector]
//
// Expose them by mounting promhttp.Handler() on /metrics.
//
// The [Collector] periodically reads a [StatsProvider] (the database) and
// updates the library gauges:
//
//	collector := metrics.NewCollector(statsProvider, time.Minute)
//	collector.Start()
//	defer collector.Stop()
package metrics
