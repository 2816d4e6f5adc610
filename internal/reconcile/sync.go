package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"videolib/internal/database"
	"videolib/internal/events"
	"videolib/internal/filesystem"
	"videolib/internal/metrics"
	"videolib/internal/pathcodec"
	"videolib/internal/scanner"
)

// SyncFolder runs a full pass over one watched folder: it checks the
// folder's volume, scans it and reconciles the result. Calls for the same
// folder are serialised.
//
// A folder whose path cannot be reached, and whose volume is not mounted
// anywhere else, is marked inactive and its videos unavailable. A folder
// whose path is now on a different volume fails with a *MismatchError.
func (r *Reconciler) SyncFolder(ctx context.Context, folderID int64) (Stats, error) {
	unlock := r.locks.Lock(folderID)
	defer unlock()

	metrics.SyncInProgress.Inc()
	defer metrics.SyncInProgress.Dec()
	start := time.Now()
	defer func() { metrics.SyncDuration.Observe(time.Since(start).Seconds()) }()

	stats, status, err := r.syncLocked(ctx, folderID)
	metrics.SyncRunsTotal.WithLabelValues(status).Inc()
	return stats, err
}

func (r *Reconciler) syncLocked(ctx context.Context, folderID int64) (Stats, string, error) {
	folder, err := r.store.GetFolder(ctx, folderID)
	if err != nil {
		return Stats{}, "error", fmt.Errorf("load folder %d: %w", folderID, err)
	}

	if !filesystem.IsDir(folder.Path) {
		moved, err := r.relocate(ctx, folder)
		if err != nil {
			return Stats{}, "error", err
		}
		if !moved {
			stats, err := r.disconnect(ctx, folder)
			return stats, "disconnected", err
		}
	}

	// Relative paths are taken from the real location, not a symlink to it.
	if !folder.HasVolume() {
		if real := filesystem.Resolve(folder.Path); real != folder.Path {
			if err := r.store.UpdateFolderLocation(ctx, folder.ID, real, folder.MountPoint); err != nil {
				return Stats{}, "error", fmt.Errorf("resolve path of folder %d: %w", folder.ID, err)
			}
			folder.Path = real
		}
	}

	id := r.resolver.Identify(ctx, folder.Path)
	if folder.HasVolume() && id.ID != folder.VolumeID {
		err := &MismatchError{FolderID: folder.ID, Path: folder.Path, Recorded: folder.VolumeID, Live: id.ID}
		r.log.Error("%v", err)
		return Stats{}, "mismatch", err
	}

	if err := r.anchor(ctx, folder, id.ID, id.MountPoint); err != nil {
		return Stats{}, "error", err
	}

	entries, err := scanner.Collect(ctx, scanner.Options{
		Root:       folder.Path,
		VolumeID:   folder.VolumeID,
		MountPoint: folder.MountPoint,
		OnProgress: func(p scanner.Progress) {
			r.notifier.Notify(events.Event{Kind: events.SyncProgress, FolderID: folder.ID, Count: p.Count, Path: p.Path})
		},
	})
	rctx := ctx
	if err != nil {
		// Partial scans are still reconciled; files not reached count as
		// removed until the next full pass.
		r.log.Warn("scan of %s stopped early (%v); reconciling %d files found so far", folder.Path, err, len(entries))
		rctx = context.WithoutCancel(ctx)
	}

	stats, err := r.Reconcile(rctx, folder.ID, entries, folder.VolumeID)
	if err != nil {
		status := "error"
		if errors.Is(err, ErrVolumeMismatch) {
			status = "mismatch"
		}
		return stats, status, err
	}

	r.notifier.Notify(events.Event{
		Kind:      events.SyncComplete,
		FolderID:  folder.ID,
		Path:      folder.Path,
		Added:     stats.Added,
		Updated:   stats.Updated,
		Unchanged: stats.Unchanged,
		Removed:   stats.Removed,
	})
	return stats, "success", nil
}

// relocate looks for the folder's volume at another mount point and, if the
// folder exists there, re-anchors it. It reports whether the folder moved.
func (r *Reconciler) relocate(ctx context.Context, folder *database.Folder) (bool, error) {
	if !folder.HasVolume() {
		return false, nil
	}
	mount, found, err := r.resolver.Locate(ctx, folder.VolumeID)
	if err != nil {
		r.log.Warn("could not locate volume %s: %v", folder.VolumeID, err)
		return false, nil
	}
	if !found {
		return false, nil
	}

	path := pathcodec.Native(pathcodec.Reconstruct(mount, folder.RelativePath))
	if !filesystem.IsDir(path) {
		return false, nil
	}
	if err := r.store.UpdateFolderLocation(ctx, folder.ID, path, mount); err != nil {
		return false, fmt.Errorf("re-anchor folder %d at %s: %w", folder.ID, path, err)
	}
	r.log.Info("folder %d moved from %s to %s", folder.ID, folder.Path, path)
	folder.Path, folder.MountPoint, folder.Active = path, mount, true
	r.notifier.Notify(events.Event{Kind: events.FolderReconnected, FolderID: folder.ID, Path: path})
	return true, nil
}

// disconnect records that a folder's volume is gone.
func (r *Reconciler) disconnect(ctx context.Context, folder *database.Folder) (Stats, error) {
	r.log.Warn("folder %d (%s) is not reachable; marking its videos unavailable", folder.ID, folder.Path)

	started := time.Now()
	n, err := r.store.MarkFolderVideosUnavailable(ctx, folder.ID)
	if err != nil {
		return Stats{}, fmt.Errorf("mark videos of folder %d unavailable: %w", folder.ID, err)
	}
	if folder.Active {
		if err := r.store.SetFolderActive(ctx, folder.ID, false); err != nil {
			r.log.Warn("could not deactivate folder %d: %v", folder.ID, err)
		}
	}

	stats := Stats{Removed: int(n)}
	metrics.SyncItemsTotal.WithLabelValues("removed").Add(float64(n))
	if _, err := r.store.RecordSyncHistory(ctx, database.SyncHistory{
		FolderID: folder.ID, Removed: stats.Removed, Disconnected: true, StartedAt: started, FinishedAt: time.Now(),
	}); err != nil {
		r.log.Error("failed to record sync history for folder %d: %v", folder.ID, err)
	}
	r.notifier.Notify(events.Event{Kind: events.SyncComplete, FolderID: folder.ID, Path: folder.Path, Removed: stats.Removed})
	return stats, nil
}

// anchor fills in volume details on first scan, follows mount point changes
// and reactivates the folder.
func (r *Reconciler) anchor(ctx context.Context, folder *database.Folder, volumeID, mount string) error {
	switch {
	case !folder.HasVolume():
		rel := pathcodec.RelativeTo(folder.Path, mount)
		if err := r.store.UpdateFolderVolumeInfo(ctx, folder.ID, volumeID, mount, rel); err != nil {
			return fmt.Errorf("record volume of folder %d: %w", folder.ID, err)
		}
		r.log.Info("folder %d is %s on volume %s", folder.ID, rel, volumeID)
		folder.VolumeID, folder.MountPoint, folder.RelativePath = volumeID, mount, rel
	case folder.MountPoint != mount:
		if err := r.store.UpdateFolderLocation(ctx, folder.ID, folder.Path, mount); err != nil {
			return fmt.Errorf("update mount point of folder %d: %w", folder.ID, err)
		}
		folder.MountPoint, folder.Active = mount, true
	}

	if !folder.Active {
		if err := r.store.SetFolderActive(ctx, folder.ID, true); err != nil {
			return fmt.Errorf("reactivate folder %d: %w", folder.ID, err)
		}
		folder.Active = true
	}
	return nil
}
