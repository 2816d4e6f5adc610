// Package watcher keeps a folder's index current between full syncs.
//
// Each watched folder gets a recursive fsnotify watcher. New video files are
// indexed once they have had no writes for a settle window, so half-copied
// files are not picked up. Removed or renamed-away files are marked
// unavailable by path, and writes to known files refresh their size and
// modification time. Every change runs under the folder's lock from
// reconcile.Locks.
package watcher
