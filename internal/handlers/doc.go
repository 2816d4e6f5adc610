// Package handlers provides the HTTP API of the video library.
//
// It includes handlers for:
//   - Registering, removing and syncing watched folders
//   - Listing videos and serving their thumbnails
//   - Running reconnect passes and identifying volumes
//   - Streaming library events as server-sent events
//   - Health checks, version info, stats and Prometheus metrics
package handlers
