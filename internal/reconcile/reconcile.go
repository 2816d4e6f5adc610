package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"videolib/internal/contentkey"
	"videolib/internal/database"
	"videolib/internal/events"
	"videolib/internal/logging"
	"videolib/internal/mediatypes"
	"videolib/internal/metrics"
	"videolib/internal/scanner"
	"videolib/internal/volume"
)

// Stats counts what one reconcile run did.
type Stats struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
}

// Reconciler brings the library index in line with what is on disk, one
// watched folder at a time.
type Reconciler struct {
	store     Store
	resolver  volume.Resolver
	locks     *Locks
	extractor ExtractionRequester
	notifier  events.Notifier
	log       logging.Logger
}

// New creates a Reconciler. locks may be shared with the live watcher; nil
// gets a private registry.
func New(store Store, resolver volume.Resolver, locks *Locks) *Reconciler {
	if locks == nil {
		locks = NewLocks()
	}
	return &Reconciler{
		store:    store,
		resolver: resolver,
		locks:    locks,
		notifier: events.Nop{},
		log:      logging.For("reconcile"),
	}
}

// SetExtractor sets where extraction requests for new videos go.
func (r *Reconciler) SetExtractor(e ExtractionRequester) {
	r.extractor = e
}

// SetNotifier sets the receiver of progress and completion events.
func (r *Reconciler) SetNotifier(n events.Notifier) {
	if n == nil {
		n = events.Nop{}
	}
	r.notifier = n
}

// Locks returns the per-folder lock registry.
func (r *Reconciler) Locks() *Locks {
	return r.locks
}

// Reconcile diffs a complete scan of folderID against the videos the folder
// owns. Matching content keys are updated when their path moved or they were
// unavailable; unknown keys are inserted; owned keys missing from the scan
// are marked unavailable. Only videos of folderID are ever touched.
//
// If the folder is recorded on a volume other than volumeID, Reconcile
// returns a *MismatchError and changes nothing. Failures on single videos
// are logged and leave them out of the counts.
//
// The caller must hold the folder's lock.
func (r *Reconciler) Reconcile(ctx context.Context, folderID int64, entries []scanner.FileEntry, volumeID string) (Stats, error) {
	var stats Stats
	started := time.Now()

	folder, err := r.store.GetFolder(ctx, folderID)
	if err != nil {
		return stats, fmt.Errorf("load folder %d: %w", folderID, err)
	}
	if folder.HasVolume() && folder.VolumeID != volumeID {
		return stats, &MismatchError{FolderID: folderID, Path: folder.Path, Recorded: folder.VolumeID, Live: volumeID}
	}

	existing, err := r.store.FindVideosByFolder(ctx, folderID)
	if err != nil {
		return stats, fmt.Errorf("load videos of folder %d: %w", folderID, err)
	}
	byKey := make(map[string]*database.Video, len(existing))
	for i := range existing {
		byKey[existing[i].ContentKey] = &existing[i]
	}

	// The whole scan is materialised before anything is marked missing.
	scanned := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		scanned[e.ContentKey] = struct{}{}
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		r.apply(ctx, folderID, volumeID, e, byKey, &stats)
	}

	for i := range existing {
		v := &existing[i]
		if _, ok := scanned[v.ContentKey]; ok || !v.Available {
			continue
		}
		if err := r.store.MarkVideoUnavailable(ctx, v.ID); err != nil {
			r.log.Warn("could not mark %s unavailable: %v", v.Path, err)
			continue
		}
		stats.Removed++
	}

	if _, err := r.store.RecordSyncHistory(ctx, database.SyncHistory{
		FolderID:   folderID,
		Added:      stats.Added,
		Updated:    stats.Updated,
		Unchanged:  stats.Unchanged,
		Removed:    stats.Removed,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}); err != nil {
		r.log.Error("failed to record sync history for folder %d: %v", folderID, err)
	}

	metrics.SyncItemsTotal.WithLabelValues("added").Add(float64(stats.Added))
	metrics.SyncItemsTotal.WithLabelValues("updated").Add(float64(stats.Updated))
	metrics.SyncItemsTotal.WithLabelValues("unchanged").Add(float64(stats.Unchanged))
	metrics.SyncItemsTotal.WithLabelValues("removed").Add(float64(stats.Removed))

	return stats, nil
}

// apply handles one scanned entry.
func (r *Reconciler) apply(ctx context.Context, folderID int64, volumeID string, e scanner.FileEntry, byKey map[string]*database.Video, stats *Stats) {
	if v, ok := byKey[e.ContentKey]; ok {
		if v.Path == e.AbsolutePath && v.Available {
			stats.Unchanged++
			return
		}
		if err := r.store.UpdateVideoPathAndAvailability(ctx, v.ID, e.AbsolutePath, e.ModTime, true); err != nil {
			r.log.Warn("could not update %s: %v", e.AbsolutePath, err)
			return
		}
		v.Path, v.Available = e.AbsolutePath, true
		stats.Updated++
		return
	}

	if v, ok := byKey[contentkey.DeriveLegacy(e.AbsolutePath, e.Size)]; ok && v.IsLegacy() {
		if err := r.store.UpgradeLegacyVideo(ctx, v.ID, volumeID, e.RelativePath, e.ContentKey, e.AbsolutePath); err != nil {
			r.log.Warn("could not upgrade legacy record %s: %v", e.AbsolutePath, err)
			return
		}
		delete(byKey, v.ContentKey)
		v.ContentKey, v.VolumeID, v.RelativePath, v.Path, v.Available = e.ContentKey, volumeID, e.RelativePath, e.AbsolutePath, true
		byKey[v.ContentKey] = v
		stats.Updated++
		return
	}

	// Nested watched folders see the same files; the first folder to index
	// a file keeps it.
	other, err := r.store.FindVideoByContentKey(ctx, e.ContentKey)
	switch {
	case err == nil:
		r.log.Debug("%s already indexed by folder %d", e.AbsolutePath, other.FolderID)
		stats.Unchanged++
		return
	case !errors.Is(err, database.ErrNotFound):
		r.log.Warn("could not look up %s: %v", e.AbsolutePath, err)
		return
	}

	v := NewRecord(folderID, e)
	id, err := r.store.InsertVideo(ctx, &v)
	if err != nil {
		r.log.Warn("could not add %s: %v", e.AbsolutePath, err)
		return
	}
	v.ID = id
	byKey[v.ContentKey] = &v
	stats.Added++

	if r.extractor != nil && !r.extractor.Request(v) {
		r.log.Debug("extraction queue full, %s stays pending", e.AbsolutePath)
	}
}

// NewRecord builds the pending, available record for a newly found file.
func NewRecord(folderID int64, e scanner.FileEntry) database.Video {
	return database.Video{
		FolderID:         folderID,
		Title:            mediatypes.Title(e.FileName),
		FileName:         e.FileName,
		Path:             e.AbsolutePath,
		RelativePath:     e.RelativePath,
		VolumeID:         e.VolumeID,
		ContentKey:       e.ContentKey,
		Size:             e.Size,
		ModTime:          e.ModTime,
		Available:        true,
		ExtractionStatus: database.ExtractionPending,
	}
}
