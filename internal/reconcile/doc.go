/*
Package reconcile is the sync engine. It compares a scan of a watched folder
with the videos the library index holds for that folder and applies the
difference.

A video is identified by its content key, derived from the volume id, the
path relative to the volume's mount point and the file size. A key seen
again at a new absolute path is the same video moved or remounted, so its
path is updated in place. A key no longer present is marked unavailable,
never deleted.

SyncFolder wraps a run with the folder-level checks: a folder whose path now
lies on a different volume is rejected with ErrVolumeMismatch, a folder whose
volume is gone is marked inactive, and a folder whose volume was remounted
elsewhere is re-anchored before scanning.

Runs for the same folder are serialised through Locks, which the live
watcher shares.
*/
package reconcile
