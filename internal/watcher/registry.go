package watcher

import (
	"slices"
	"sync"

	"videolib/internal/database"
	"videolib/internal/logging"
	"videolib/internal/metrics"
	"videolib/internal/reconcile"
)

// Registry keeps at most one watcher per folder.
type Registry struct {
	store Store
	locks *reconcile.Locks
	opts  Options

	mu       sync.Mutex
	watchers map[int64]*Watcher
}

// NewRegistry creates an empty registry. Watchers share locks with the
// reconciler so events and full syncs of a folder never overlap.
func NewRegistry(store Store, locks *reconcile.Locks, opts Options) *Registry {
	return &Registry{
		store:    store,
		locks:    locks,
		opts:     opts,
		watchers: make(map[int64]*Watcher),
	}
}

// Start watches folder. A folder already watched at the same path is left
// alone; one watched at an old path is restarted at the new one.
func (r *Registry) Start(folder database.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.watchers[folder.ID]; ok {
		if w.Folder().Path == folder.Path && w.Folder().MountPoint == folder.MountPoint {
			return nil
		}
		r.closeLocked(folder.ID, w)
	}

	w, err := New(folder, r.store, r.locks, r.opts)
	if err != nil {
		return err
	}
	r.watchers[folder.ID] = w
	metrics.WatcherFoldersWatched.Set(float64(len(r.watchers)))
	logging.Info("Watching folder %d at %s", folder.ID, folder.Path)
	return nil
}

// Stop stops watching folderID, if it is watched.
func (r *Registry) Stop(folderID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.watchers[folderID]; ok {
		r.closeLocked(folderID, w)
	}
}

// StopAll stops every watcher.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, w := range r.watchers {
		r.closeLocked(id, w)
	}
}

func (r *Registry) closeLocked(id int64, w *Watcher) {
	if err := w.Close(); err != nil {
		logging.Warn("failed to close watcher for folder %d: %v", id, err)
	}
	delete(r.watchers, id)
	metrics.WatcherFoldersWatched.Set(float64(len(r.watchers)))
}

// IsWatching reports whether folderID has a running watcher.
func (r *Registry) IsWatching(folderID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.watchers[folderID]
	return ok
}

// Watched returns the ids of watched folders in ascending order.
func (r *Registry) Watched() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.watchers))
	for id := range r.watchers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
