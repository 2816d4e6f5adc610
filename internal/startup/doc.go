// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is loaded by [LoadConfig] from an optional YAML file named by
// CONFIG_FILE, with environment variables taking precedence:
//
//   - CACHE_DIR: thumbnails are written to CACHE_DIR/thumbnails (default: /cache)
//   - DATABASE_DIR: location of library.db (default: /database)
//   - PORT: HTTP server port (default: 8080)
//   - RECONNECT_INTERVAL: how often to look for returning volumes (default: 30s)
//   - SYNC_INTERVAL: how often every folder gets a full sync (default: 30m)
//   - WATCH_ENABLED: live file watching of active folders (default: true)
//   - WATCH_SETTLE: quiet period before a new file is indexed (default: 2s)
//   - EXTRACT_ENABLED: ffprobe/ffmpeg metadata and thumbnails (default: true)
//   - EXTRACT_WORKERS: fixed extraction worker count (default: 2 per CPU, max 8)
//   - SYNC_ON_START: full sync of every folder at startup (default: true)
//   - FOLDERS: list of folders to register, separated like PATH
//   - METRICS_ENABLED: serve /metrics (default: true)
//   - LOG_LEVEL, DEBUG: see package logging
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: see [ConfigureMemory]
//
// The file uses the same settings in snake case, plus a folders list:
//
//	port: "8080"
//	reconnect_interval: 1m
//	folders:
//	  - /mnt/usb/Movies
//
// # Lifecycle Logging
//
// The Log* functions print the sectioned startup and shutdown report.
package startup
