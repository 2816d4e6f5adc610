// Package events carries notifications from the sync engine, the reconnect
// monitor and the live watcher to whoever is listening: the log, the HTTP
// event stream, or a CLI progress line.
package events
