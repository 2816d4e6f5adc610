// Package database is the library index: a SQLite store of watched folders,
// the videos found in them, and a history of sync runs.
//
// Folders and videos carry both an absolute path, which changes when a
// removable volume is mounted somewhere else, and a volume id plus a path
// relative to that volume's mount point, which does not. Videos are unique by
// content key. Nothing here deletes a video except removing its folder;
// missing files are flagged unavailable instead.
//
// The database uses WAL mode with a busy timeout so the live watcher, the
// reconnect monitor and full syncs can write concurrently. Each method is an
// independent statement; RecordSyncHistory and RemoveFolder use a transaction.
package database
