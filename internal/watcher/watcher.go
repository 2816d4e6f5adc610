package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"videolib/internal/contentkey"
	"videolib/internal/database"
	"videolib/internal/events"
	"videolib/internal/filesystem"
	"videolib/internal/logging"
	"videolib/internal/mediatypes"
	"videolib/internal/metrics"
	"videolib/internal/reconcile"
	"videolib/internal/scanner"
)

// DefaultSettle is how long a new file must go without writes before it is
// indexed.
const DefaultSettle = 2 * time.Second

// ErrNoVolume is returned when watching a folder that was never scanned.
var ErrNoVolume = errors.New("folder has no volume yet")

// Store is the part of the library index the watcher uses.
type Store interface {
	FindVideosByFolder(ctx context.Context, folderID int64) ([]database.Video, error)
	FindVideoByPath(ctx context.Context, path string) (*database.Video, error)
	FindVideoByContentKey(ctx context.Context, key string) (*database.Video, error)
	InsertVideo(ctx context.Context, v *database.Video) (int64, error)
	UpdateVideoPathAndAvailability(ctx context.Context, id int64, path string, modTime time.Time, available bool) error
	MarkVideoUnavailable(ctx context.Context, id int64) error
	UpdateVideoFileInfo(ctx context.Context, id int64, contentKey string, size int64, modTime time.Time) error
}

// Options configure a watcher.
type Options struct {
	// Settle is the quiet period before a created file is indexed.
	Settle time.Duration
	// Extractor receives new records. Optional.
	Extractor reconcile.ExtractionRequester
	// Notifier receives video-restored events. Optional.
	Notifier events.Notifier
}

// Watcher applies file-system events under one folder to the index without
// a full rescan.
type Watcher struct {
	folder database.Folder
	store  Store
	locks  *reconcile.Locks
	opts   Options
	fsw    *fsnotify.Watcher
	log    logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	pending map[string]*time.Timer
	dirs    int
}

// New starts watching folder recursively. The folder must have been
// anchored to a volume by a sync.
func New(folder database.Folder, store Store, locks *reconcile.Locks, opts Options) (*Watcher, error) {
	if !folder.HasVolume() {
		return nil, fmt.Errorf("watch folder %d: %w", folder.ID, ErrNoVolume)
	}
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	if opts.Notifier == nil {
		opts.Notifier = events.Nop{}
	}
	if locks == nil {
		locks = reconcile.NewLocks()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		folder:  folder,
		store:   store,
		locks:   locks,
		opts:    opts,
		fsw:     fsw,
		log:     logging.For("watcher"),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}

	if w.addTree(folder.Path) == 0 {
		cancel()
		fsw.Close()
		return nil, fmt.Errorf("watch folder %d: nothing watchable under %s", folder.ID, folder.Path)
	}

	go w.loop()
	w.log.Debug("watching %s (%d directories)", folder.Path, w.dirs)
	return w, nil
}

// Folder returns the folder being watched.
func (w *Watcher) Folder() database.Folder {
	return w.folder
}

// Close stops the watcher. Pending creates are dropped; the next sync picks
// them up.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.fsw.Close()
	<-w.done

	w.mu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	return err
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(dir string) int {
	added := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.log.Warn("cannot watch %s: %v", path, err)
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && mediatypes.IsHidden(d.Name()) {
			return fs.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warn("failed to add %s to watcher: %v", path, err)
			return nil
		}
		added++
		return nil
	})
	if err != nil {
		w.log.Warn("walk of %s for watcher failed: %v", dir, err)
	}
	w.mu.Lock()
	w.dirs += added
	w.mu.Unlock()
	return added
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error on %s: %v", w.folder.Path, err)
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if mediatypes.IsHidden(filepath.Base(event.Name)) {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			w.addTree(event.Name)
			w.scheduleTree(event.Name)
			return
		}
		if mediatypes.IsVideoFile(event.Name) {
			w.schedule(event.Name)
		}

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.cancelPending(event.Name)
		metrics.WatcherEventsTotal.WithLabelValues("remove").Inc()
		w.withLock(func() { w.removed(event.Name) })

	case event.Op&fsnotify.Write != 0:
		if !mediatypes.IsVideoFile(event.Name) {
			return
		}
		if w.reschedule(event.Name) {
			return
		}
		metrics.WatcherEventsTotal.WithLabelValues("write").Inc()
		w.withLock(func() { w.written(event.Name) })
	}
}

// schedule indexes path once it has been quiet for the settle window.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.opts.Settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.opts.Settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if w.ctx.Err() != nil {
			return
		}
		metrics.WatcherEventsTotal.WithLabelValues("create").Inc()
		w.withLock(func() { w.created(path) })
	})
}

// reschedule pushes back a pending create. It reports whether one existed.
func (w *Watcher) reschedule(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.pending[path]
	if ok {
		t.Reset(w.opts.Settle)
	}
	return ok
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// scheduleTree schedules the videos of a directory that was moved in whole.
func (w *Watcher) scheduleTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if mediatypes.IsHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && mediatypes.IsVideoFile(d.Name()) {
			w.schedule(path)
		}
		return nil
	})
}

func (w *Watcher) withLock(fn func()) {
	unlock := w.locks.Lock(w.folder.ID)
	defer unlock()
	if w.ctx.Err() != nil {
		return
	}
	fn()
}

// created indexes a settled file: a known unavailable record with the same
// content key comes back at the new path, an unknown key is inserted.
func (w *Watcher) created(path string) {
	e, err := scanner.Entry(path, scanner.Options{
		VolumeID:   w.folder.VolumeID,
		MountPoint: w.folder.MountPoint,
	})
	if err != nil {
		w.log.Debug("ignoring %s: %v", path, err)
		return
	}

	existing, err := w.store.FindVideoByContentKey(w.ctx, e.ContentKey)
	switch {
	case err == nil:
		if existing.Available && existing.Path == e.AbsolutePath {
			return
		}
		if existing.Available && filesystem.Exists(existing.Path) {
			w.log.Debug("%s is a copy of %s, already indexed", path, existing.Path)
			return
		}
		if err := w.store.UpdateVideoPathAndAvailability(w.ctx, existing.ID, e.AbsolutePath, e.ModTime, true); err != nil {
			w.log.Warn("could not restore %s: %v", path, err)
			return
		}
		w.log.Info("restored %s", path)
		w.opts.Notifier.Notify(events.Event{
			Kind: events.VideoRestored, FolderID: existing.FolderID, VideoID: existing.ID, Path: path,
		})
		return
	case !errors.Is(err, database.ErrNotFound):
		w.log.Warn("could not look up %s: %v", path, err)
		return
	}

	v := reconcile.NewRecord(w.folder.ID, e)
	id, err := w.store.InsertVideo(w.ctx, &v)
	if err != nil {
		w.log.Warn("could not add %s: %v", path, err)
		return
	}
	v.ID = id
	w.log.Info("added %s", path)
	if w.opts.Extractor != nil {
		w.opts.Extractor.Request(v)
	}
}

// removed marks the video at path unavailable. A removed directory takes
// every video under it along.
func (w *Watcher) removed(path string) {
	v, err := w.store.FindVideoByPath(w.ctx, path)
	if err == nil {
		if v.Available {
			if err := w.store.MarkVideoUnavailable(w.ctx, v.ID); err != nil {
				w.log.Warn("could not mark %s unavailable: %v", path, err)
				return
			}
			w.log.Info("%s is gone", path)
		}
		return
	}
	if !errors.Is(err, database.ErrNotFound) {
		w.log.Warn("could not look up %s: %v", path, err)
		return
	}

	videos, err := w.store.FindVideosByFolder(w.ctx, w.folder.ID)
	if err != nil {
		w.log.Warn("could not load videos of folder %d: %v", w.folder.ID, err)
		return
	}
	prefix := path + string(filepath.Separator)
	n := 0
	for _, v := range videos {
		if !v.Available || !strings.HasPrefix(v.Path, prefix) {
			continue
		}
		if err := w.store.MarkVideoUnavailable(w.ctx, v.ID); err != nil {
			w.log.Warn("could not mark %s unavailable: %v", v.Path, err)
			continue
		}
		n++
	}
	if n > 0 {
		w.log.Info("%s is gone with %d videos", path, n)
	}
}

// written refreshes size, modification time and content key. Writes to
// files the index does not know yet are treated as creates.
func (w *Watcher) written(path string) {
	v, err := w.store.FindVideoByPath(w.ctx, path)
	if errors.Is(err, database.ErrNotFound) {
		w.schedule(path)
		return
	}
	if err != nil {
		w.log.Warn("could not look up %s: %v", path, err)
		return
	}

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return
	}
	if info.Size() == v.Size && info.ModTime().Unix() == v.ModTime.Unix() {
		return
	}
	key := v.ContentKey
	if v.RelativePath != "" {
		key = contentkey.Derive(v.VolumeID, v.RelativePath, info.Size())
	}
	if key != v.ContentKey {
		// Another record already owns the new content; this one is stale.
		if other, err := w.store.FindVideoByContentKey(w.ctx, key); err == nil && other.ID != v.ID {
			if err := w.store.MarkVideoUnavailable(w.ctx, v.ID); err != nil {
				w.log.Warn("could not retire %s: %v", path, err)
			}
			return
		}
	}
	if err := w.store.UpdateVideoFileInfo(w.ctx, v.ID, key, info.Size(), info.ModTime()); err != nil {
		w.log.Warn("could not refresh %s: %v", path, err)
	}
}
