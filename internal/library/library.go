package library

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"videolib/internal/database"
	"videolib/internal/events"
	"videolib/internal/filesystem"
	"videolib/internal/logging"
	"videolib/internal/pathcodec"
	"videolib/internal/reconcile"
	"videolib/internal/reconnect"
	"videolib/internal/volume"
	"videolib/internal/watcher"
)

// ErrNotDirectory is returned when registering a path that is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Config controls the background work of a Library.
type Config struct {
	// ReconnectInterval is the period of the reconnect monitor.
	ReconnectInterval time.Duration
	// SyncInterval is the period of full syncs of every folder; 0 disables them.
	SyncInterval time.Duration
	// SyncOnStart syncs every folder when Start is called.
	SyncOnStart bool
	// Watch enables live watchers on active folders.
	Watch bool
	// WatchSettle is the watcher's settle window.
	WatchSettle time.Duration
}

// Library ties the index, the reconciler, the reconnect monitor and the live
// watchers together.
type Library struct {
	db       *database.Database
	resolver volume.Resolver
	rec      *reconcile.Reconciler
	mon      *reconnect.Monitor
	watchers *watcher.Registry
	cfg      Config
	log      logging.Logger

	notifier  events.Notifier
	extractor reconcile.ExtractionRequester

	startTime  time.Time
	ready      atomic.Bool
	syncing    atomic.Int32
	stateMu    sync.Mutex
	lastSync   time.Time
	initialErr error

	reconnectHandle *reconnect.Handle
	stopChan        chan struct{}
	stopOnce        sync.Once

	// bgMu orders wg.Add against Stop's wg.Wait.
	bgMu    sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// New creates a Library. Call SetNotifier and SetExtractor before Start.
func New(db *database.Database, resolver volume.Resolver, cfg Config) *Library {
	l := &Library{
		db:        db,
		resolver:  resolver,
		cfg:       cfg,
		log:       logging.For("library"),
		notifier:  events.Nop{},
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
	}
	l.rec = reconcile.New(db, resolver, nil)
	l.mon = reconnect.New(db, resolver)
	l.mon.SetNotifier(l)
	if cfg.Watch {
		l.watchers = watcher.NewRegistry(db, l.rec.Locks(), watcher.Options{Settle: cfg.WatchSettle})
	}
	return l
}

// SetNotifier sets where sync, reconnect and restore events go.
func (l *Library) SetNotifier(n events.Notifier) {
	if n == nil {
		n = events.Nop{}
	}
	l.notifier = n
	l.rec.SetNotifier(n)
	l.rebuildWatchers()
}

// SetExtractor sets where new videos are sent for extraction.
func (l *Library) SetExtractor(e reconcile.ExtractionRequester) {
	l.extractor = e
	l.rec.SetExtractor(e)
	l.rebuildWatchers()
}

func (l *Library) rebuildWatchers() {
	if l.watchers == nil {
		return
	}
	l.watchers = watcher.NewRegistry(l.db, l.rec.Locks(), watcher.Options{
		Settle:    l.cfg.WatchSettle,
		Extractor: l.extractor,
		Notifier:  l.notifier,
	})
}

// Notify receives the reconnect monitor's events. A reconnected folder is
// synced in the background to pick up files added while it was away.
func (l *Library) Notify(e events.Event) {
	l.notifier.Notify(e)
	if e.Kind == events.FolderReconnected {
		l.SyncInBackground(e.FolderID)
	}
}

// Start runs the initial sync in the background and starts the reconnect
// monitor and the periodic sync.
func (l *Library) Start(ctx context.Context) {
	l.goTracked(func() { l.initialPass(ctx) })

	l.reconnectHandle = l.mon.RunEvery(ctx, l.cfg.ReconnectInterval)

	if l.cfg.SyncInterval > 0 {
		l.goTracked(func() { l.periodicSync(ctx) })
	}
}

// goTracked runs fn on a goroutine that Stop waits for. It reports false,
// without running fn, once Stop has begun.
func (l *Library) goTracked(fn func()) bool {
	l.bgMu.Lock()
	defer l.bgMu.Unlock()
	if l.stopped {
		return false
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn()
	}()
	return true
}

func (l *Library) initialPass(ctx context.Context) {
	var err error
	if l.cfg.SyncOnStart {
		var failed int
		_, failed, err = l.SyncAll(ctx)
		if err == nil && failed > 0 {
			l.log.Warn("%d folders failed their initial sync", failed)
		}
	} else {
		err = l.watchActive(ctx)
	}

	l.stateMu.Lock()
	l.initialErr = err
	l.stateMu.Unlock()
	if err != nil {
		l.log.Error("initial sync failed: %v", err)
	}
	l.ready.Store(true)
}

// watchActive starts watchers on every active, anchored folder.
func (l *Library) watchActive(ctx context.Context) error {
	if l.watchers == nil {
		return nil
	}
	folders, err := l.db.ListFolders(ctx)
	if err != nil {
		return err
	}
	for _, f := range folders {
		l.updateWatch(f)
	}
	return nil
}

func (l *Library) periodicSync(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, _, err := l.SyncAll(ctx); err != nil {
				l.log.Error("periodic sync failed: %v", err)
			}
		case <-l.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends all background work and closes every watcher.
func (l *Library) Stop() {
	l.stopOnce.Do(func() {
		l.bgMu.Lock()
		l.stopped = true
		close(l.stopChan)
		l.bgMu.Unlock()

		if l.reconnectHandle != nil {
			l.reconnectHandle.Stop()
		}
		l.wg.Wait()
		if l.watchers != nil {
			l.watchers.StopAll()
		}
	})
}

// Wait blocks until background syncs have finished. It is meant for a
// Library that was never started, such as one driven by a command-line tool.
func (l *Library) Wait() {
	l.wg.Wait()
}

// AddFolder registers path with symlinks resolved. Registering a folder that is already known on
// the same volume, even under another mount point, returns the existing row.
func (l *Library) AddFolder(ctx context.Context, path string) (*database.Folder, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if !filesystem.IsDir(abs) {
		return nil, fmt.Errorf("add folder %s: %w", abs, ErrNotDirectory)
	}
	// The stored path must lie under the volume's mount point.
	abs = filesystem.Resolve(abs)

	f := database.Folder{Path: abs}
	if id := l.resolver.Identify(ctx, abs); id.ID != "" {
		f.VolumeID = id.ID
		f.MountPoint = id.MountPoint
		f.RelativePath = pathcodec.RelativeTo(abs, id.MountPoint)
	}
	folder, err := l.db.CreateFolder(ctx, f)
	if err != nil {
		return nil, err
	}
	l.log.Info("folder %d registered at %s (volume %s)", folder.ID, folder.Path, folder.VolumeID)
	return folder, nil
}

// RemoveFolder stops watching a folder and deletes it with its videos.
func (l *Library) RemoveFolder(ctx context.Context, folderID int64) error {
	if l.watchers != nil {
		l.watchers.Stop(folderID)
	}
	unlock := l.rec.Locks().Lock(folderID)
	defer unlock()
	return l.db.RemoveFolder(ctx, folderID)
}

// SyncFolder runs a full sync of one folder and then starts, moves or stops
// its watcher to match the folder's new state.
func (l *Library) SyncFolder(ctx context.Context, folderID int64) (reconcile.Stats, error) {
	l.syncing.Add(1)
	defer l.syncing.Add(-1)

	stats, err := l.rec.SyncFolder(ctx, folderID)

	folder, gerr := l.db.GetFolder(ctx, folderID)
	switch {
	case errors.Is(err, reconcile.ErrVolumeMismatch):
		if l.watchers != nil {
			l.watchers.Stop(folderID)
		}
	case gerr == nil:
		l.updateWatch(*folder)
	}

	if err == nil {
		l.stateMu.Lock()
		l.lastSync = time.Now()
		l.stateMu.Unlock()
	}
	return stats, err
}

// SyncInBackground runs SyncFolder on its own goroutine. Stop waits for it.
func (l *Library) SyncInBackground(folderID int64) {
	l.goTracked(func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-l.stopChan:
				cancel()
			case <-ctx.Done():
			}
		}()
		if _, err := l.SyncFolder(ctx, folderID); err != nil && ctx.Err() == nil {
			l.log.Warn("background sync of folder %d failed: %v", folderID, err)
		}
	})
}

// SyncAll syncs every folder one after another. Folder failures are logged
// and counted; the error is non-nil only if the folders could not be listed.
func (l *Library) SyncAll(ctx context.Context) (synced, failed int, err error) {
	folders, err := l.db.ListFolders(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list folders: %w", err)
	}
	for _, f := range folders {
		if ctx.Err() != nil {
			break
		}
		if _, err := l.SyncFolder(ctx, f.ID); err != nil {
			l.log.Warn("sync of folder %d (%s) failed: %v", f.ID, f.Path, err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

// Reconnect runs one reconnect pass now.
func (l *Library) Reconnect(ctx context.Context) (reconnect.Stats, error) {
	return l.mon.ScanForReconnections(ctx)
}

func (l *Library) updateWatch(f database.Folder) {
	if l.watchers == nil {
		return
	}
	if !f.Active || !f.HasVolume() {
		l.watchers.Stop(f.ID)
		return
	}
	if err := l.watchers.Start(f); err != nil {
		l.log.Warn("could not watch folder %d: %v", f.ID, err)
	}
}

// IsWatching reports whether folderID has a live watcher.
func (l *Library) IsWatching(folderID int64) bool {
	return l.watchers != nil && l.watchers.IsWatching(folderID)
}

// Resolver returns the volume resolver in use.
func (l *Library) Resolver() volume.Resolver {
	return l.resolver
}

// IsReady reports whether the initial pass has finished.
func (l *Library) IsReady() bool {
	return l.ready.Load()
}

// HealthStatus summarises the library's background state.
type HealthStatus struct {
	Ready            bool      `json:"ready"`
	Syncing          bool      `json:"syncing"`
	StartTime        time.Time `json:"startTime"`
	Uptime           string    `json:"uptime"`
	LastSync         time.Time `json:"lastSync,omitempty"`
	InitialSyncError string    `json:"initialSyncError,omitempty"`
	WatchedFolders   int       `json:"watchedFolders"`
}

// GetHealthStatus returns the current health status.
func (l *Library) GetHealthStatus() HealthStatus {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()

	status := HealthStatus{
		Ready:     l.ready.Load(),
		Syncing:   l.syncing.Load() > 0,
		StartTime: l.startTime,
		Uptime:    time.Since(l.startTime).Round(time.Second).String(),
		LastSync:  l.lastSync,
	}
	if l.initialErr != nil {
		status.InitialSyncError = l.initialErr.Error()
	}
	if l.watchers != nil {
		status.WatchedFolders = len(l.watchers.Watched())
	}
	return status
}
