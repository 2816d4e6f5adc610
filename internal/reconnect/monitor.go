package reconnect

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"videolib/internal/contentkey"
	"videolib/internal/database"
	"videolib/internal/events"
	"videolib/internal/filesystem"
	"videolib/internal/logging"
	"videolib/internal/metrics"
	"videolib/internal/pathcodec"
	"videolib/internal/volume"
)

// ErrPassInProgress is returned when a pass is requested while another runs.
var ErrPassInProgress = errors.New("reconnect pass already in progress")

// Store is the part of the library index the monitor uses.
type Store interface {
	FindFoldersNeedingReconnectCheck(ctx context.Context) ([]database.Folder, error)
	FindVideosByFolder(ctx context.Context, folderID int64) ([]database.Video, error)
	UpdateFolderLocation(ctx context.Context, folderID int64, path, mountPoint string) error
	UpdateVideoPathAndAvailability(ctx context.Context, id int64, path string, modTime time.Time, available bool) error
	SetLastReconnectPass(ctx context.Context, t time.Time) error
}

// Stats counts what one pass found.
type Stats struct {
	DisksFound      int `json:"disksFound"`
	FoldersRestored int `json:"foldersRestored"`
	FoldersRejected int `json:"foldersRejected"`
	VideosRestored  int `json:"videosRestored"`
	VideosFailed    int `json:"videosFailed"`
}

// Monitor brings back folders and videos whose volume has been plugged in
// again, possibly at a different mount point.
type Monitor struct {
	store    Store
	resolver volume.Resolver
	notifier events.Notifier
	retry    filesystem.RetryConfig
	running  atomic.Bool
	log      logging.Logger
}

// New creates a Monitor.
func New(store Store, resolver volume.Resolver) *Monitor {
	return &Monitor{
		store:    store,
		resolver: resolver,
		notifier: events.Nop{},
		retry:    filesystem.DefaultRetryConfig(),
		log:      logging.For("reconnect"),
	}
}

// SetNotifier sets the receiver of folder-reconnected and video-restored events.
func (m *Monitor) SetNotifier(n events.Notifier) {
	if n == nil {
		n = events.Nop{}
	}
	m.notifier = n
}

// ScanForReconnections checks every folder that has a known volume and is
// inactive or missing videos. When the volume is mounted again and the
// folder exists under it, the folder is re-anchored and each missing video
// found at its relative path is made available again.
//
// Errors on single folders or videos are logged and counted. The returned
// error is non-nil only if the pass could not run at all.
func (m *Monitor) ScanForReconnections(ctx context.Context) (Stats, error) {
	var stats Stats
	if !m.running.CompareAndSwap(false, true) {
		return stats, ErrPassInProgress
	}
	defer m.running.Store(false)

	metrics.ReconnectPassesTotal.Inc()

	folders, err := m.store.FindFoldersNeedingReconnectCheck(ctx)
	if err != nil {
		return stats, fmt.Errorf("list folders to check: %w", err)
	}

	type location struct {
		mount string
		found bool
	}
	located := make(map[string]location)

	for i := range folders {
		if ctx.Err() != nil {
			break
		}
		f := &folders[i]

		loc, seen := located[f.VolumeID]
		if !seen {
			mount, found, err := m.resolver.Locate(ctx, f.VolumeID)
			if err != nil {
				m.log.Warn("could not locate volume %s for folder %d: %v", f.VolumeID, f.ID, err)
				continue
			}
			loc = location{mount: mount, found: found}
			located[f.VolumeID] = loc
			if found {
				stats.DisksFound++
			}
		}
		if !loc.found {
			continue
		}

		m.restoreFolder(ctx, f, loc.mount, &stats)
	}

	metrics.ReconnectDisksFound.Add(float64(stats.DisksFound))
	metrics.ReconnectFoldersRestored.Add(float64(stats.FoldersRestored))
	metrics.ReconnectVideosRestored.Add(float64(stats.VideosRestored))
	metrics.ReconnectVideosFailed.Add(float64(stats.VideosFailed))
	metrics.ReconnectLastPassTimestamp.SetToCurrentTime()

	if err := m.store.SetLastReconnectPass(ctx, time.Now()); err != nil {
		m.log.Warn("could not store reconnect pass time: %v", err)
	}

	if stats != (Stats{}) {
		m.log.Info("reconnect pass: %d disks found, %d folders restored, %d rejected, %d videos restored, %d still missing",
			stats.DisksFound, stats.FoldersRestored, stats.FoldersRejected, stats.VideosRestored, stats.VideosFailed)
	}
	return stats, nil
}

func (m *Monitor) restoreFolder(ctx context.Context, f *database.Folder, mount string, stats *Stats) {
	path := pathcodec.Native(pathcodec.Reconstruct(mount, f.RelativePath))

	videos, err := m.store.FindVideosByFolder(ctx, f.ID)
	if err != nil {
		m.log.Warn("could not load videos of folder %d: %v", f.ID, err)
		return
	}

	if !filesystem.IsDir(path) {
		m.log.Warn("volume %s is back at %s but folder %s is gone", f.VolumeID, mount, f.RelativePath)
		stats.VideosFailed += countUnavailable(videos)
		return
	}

	if live := m.resolver.Identify(ctx, path); live.ID != f.VolumeID {
		m.log.Error("folder %d: %s is on volume %s, not %s; not reattaching, remove the folder and add it again",
			f.ID, path, live.ID, f.VolumeID)
		stats.FoldersRejected++
		return
	}

	if f.Path != path || f.MountPoint != mount || !f.Active {
		if err := m.store.UpdateFolderLocation(ctx, f.ID, path, mount); err != nil {
			m.log.Warn("could not re-anchor folder %d at %s: %v", f.ID, path, err)
			return
		}
		stats.FoldersRestored++
		m.log.Info("folder %d reconnected at %s", f.ID, path)
		m.notifier.Notify(events.Event{Kind: events.FolderReconnected, FolderID: f.ID, Path: path})
	}

	for i := range videos {
		v := &videos[i]
		if v.Available || v.VolumeID != f.VolumeID || v.RelativePath == "" {
			continue
		}
		if m.restoreVideo(ctx, v, mount) {
			stats.VideosRestored++
		} else {
			stats.VideosFailed++
		}
	}
}

func (m *Monitor) restoreVideo(ctx context.Context, v *database.Video, mount string) bool {
	path := pathcodec.Native(pathcodec.Reconstruct(mount, v.RelativePath))

	info, err := filesystem.StatWithRetry(path, m.retry)
	if err != nil || !info.Mode().IsRegular() {
		m.log.Debug("video %d still missing at %s", v.ID, path)
		return false
	}
	if info.Size() != v.Size || contentkey.Derive(v.VolumeID, v.RelativePath, info.Size()) != v.ContentKey {
		// Different content; the next sync indexes it.
		m.log.Debug("video %d at %s no longer matches its key (size %d -> %d)", v.ID, path, v.Size, info.Size())
		return false
	}

	if err := m.store.UpdateVideoPathAndAvailability(ctx, v.ID, path, info.ModTime(), true); err != nil {
		m.log.Warn("could not restore video %d at %s: %v", v.ID, path, err)
		return false
	}
	m.notifier.Notify(events.Event{Kind: events.VideoRestored, FolderID: v.FolderID, VideoID: v.ID, Path: path})
	return true
}

func countUnavailable(videos []database.Video) int {
	n := 0
	for _, v := range videos {
		if !v.Available {
			n++
		}
	}
	return n
}
