/*
Package filesystem provides resilient stat operations with automatic retry
for stale file handle errors.

Watched folders frequently live on network shares and external drives. When
such a volume hiccups, os.Stat can fail with ESTALE even though the file is
still there; treating that as "file missing" would wrongly mark videos
unavailable. StatWithRetry retries ESTALE with exponential backoff
(50ms, 100ms, 200ms by default, capped at 500ms) and returns every other
error immediately.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

Exists and IsDir are convenience wrappers used by the reconnect monitor and
the reconciler to test whether a reconstructed path is reachable.

Retry metrics are recorded through an Observer registered with SetObserver;
the metrics package provides the Prometheus-backed implementation.
*/
package filesystem
