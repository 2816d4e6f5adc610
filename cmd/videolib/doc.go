// Package main provides the entry point for the videolib server.
//
// videolib keeps an index of the video files in a set of watched folders,
// including folders on removable drives. Each folder and video is recorded
// against the identity of the disk it lives on, so a drive that comes back
// under another mount point is recognised and its records restored instead
// of being indexed again.
//
// # Application Lifecycle
//
//  1. Memory Configuration: sets GOMEMLIMIT from environment or cgroup limits
//  2. Configuration Loading: reads CONFIG_FILE and environment variables
//  3. Database Initialization: opens and migrates the SQLite library
//  4. Component Initialization:
//     - Extraction queue: ffprobe metadata and thumbnails (if ffmpeg is found)
//     - Library: registers configured folders, runs the initial sync,
//     starts live watchers and the reconnect monitor
//     - Metrics collector: refreshes library gauges every minute
//  5. HTTP Server Setup: routes, request metrics and access logging
//  6. Graceful Shutdown: SIGINT/SIGTERM stops every component in order
//
// # Background Services
//
//   - Reconnect monitor: looks for returning volumes (RECONNECT_INTERVAL)
//   - Periodic sync: full sync of every folder (SYNC_INTERVAL)
//   - Live watchers: index files as they appear in active folders
//   - Extraction workers: probe and thumbnail newly indexed videos
//
// See package startup for the configuration settings.
package main
