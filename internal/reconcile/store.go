package reconcile

import (
	"context"
	"time"

	"videolib/internal/database"
)

// Store is the slice of the library index the sync engine needs.
// *database.Database implements it.
type Store interface {
	GetFolder(ctx context.Context, id int64) (*database.Folder, error)
	UpdateFolderVolumeInfo(ctx context.Context, folderID int64, volumeID, mountPoint, relativePath string) error
	UpdateFolderLocation(ctx context.Context, folderID int64, path, mountPoint string) error
	SetFolderActive(ctx context.Context, folderID int64, active bool) error

	FindVideosByFolder(ctx context.Context, folderID int64) ([]database.Video, error)
	FindVideoByContentKey(ctx context.Context, key string) (*database.Video, error)
	InsertVideo(ctx context.Context, v *database.Video) (int64, error)
	UpdateVideoPathAndAvailability(ctx context.Context, id int64, path string, modTime time.Time, available bool) error
	MarkVideoUnavailable(ctx context.Context, id int64) error
	MarkFolderVideosUnavailable(ctx context.Context, folderID int64) (int64, error)
	UpgradeLegacyVideo(ctx context.Context, id int64, volumeID, relativePath, contentKey, path string) error

	RecordSyncHistory(ctx context.Context, h database.SyncHistory) (int64, error)
}

// ExtractionRequester accepts thumbnail/metadata extraction requests for
// newly indexed videos. Request must not block.
type ExtractionRequester interface {
	Request(v database.Video) bool
}
