package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const videoColumns = `id, folder_id, title, file_name, path, relative_path, volume_id, content_key,
	size, mod_time, available, thumbnail_path, duration, width, height, video_codec, audio_codec,
	extraction_status, created_at, updated_at`

func scanVideo(row rowScanner) (*Video, error) {
	var (
		v                         Video
		relative, volumeID, thumb sql.NullString
		videoCodec, audioCodec    sql.NullString
		modTime, created, updated int64
		available                 int
		status                    string
	)
	err := row.Scan(&v.ID, &v.FolderID, &v.Title, &v.FileName, &v.Path, &relative, &volumeID, &v.ContentKey,
		&v.Size, &modTime, &available, &thumb, &v.Duration, &v.Width, &v.Height, &videoCodec, &audioCodec,
		&status, &created, &updated)
	if err != nil {
		return nil, err
	}
	v.RelativePath = relative.String
	v.VolumeID = volumeID.String
	v.ThumbnailPath = thumb.String
	v.VideoCodec = videoCodec.String
	v.AudioCodec = audioCodec.String
	v.ModTime = time.Unix(modTime, 0)
	v.Available = available != 0
	v.ExtractionStatus = ExtractionStatus(status)
	v.CreatedAt = time.Unix(created, 0)
	v.UpdatedAt = time.Unix(updated, 0)
	return &v, nil
}

func (d *Database) queryVideos(ctx context.Context, operation, query string, args ...any) ([]Video, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery(operation, start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []Video
	for rows.Next() {
		var v *Video
		v, err = scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *v)
	}
	err = rows.Err()
	return videos, err
}

func (d *Database) queryVideo(ctx context.Context, operation, query string, args ...any) (*Video, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery(operation, start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	v, err := scanVideo(d.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	return v, err
}

// GetVideo returns the video with the given id.
func (d *Database) GetVideo(ctx context.Context, id int64) (*Video, error) {
	return d.queryVideo(ctx, "get_video", `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
}

// FindVideosByFolder returns every video owned by folderID.
func (d *Database) FindVideosByFolder(ctx context.Context, folderID int64) ([]Video, error) {
	return d.queryVideos(ctx, "find_videos_by_folder",
		`SELECT `+videoColumns+` FROM videos WHERE folder_id = ? ORDER BY relative_path, path`, folderID)
}

// FindVideoByContentKey returns the video with the given content key.
func (d *Database) FindVideoByContentKey(ctx context.Context, key string) (*Video, error) {
	return d.queryVideo(ctx, "find_video_by_key",
		`SELECT `+videoColumns+` FROM videos WHERE content_key = ?`, key)
}

// FindVideoByPath returns the most recently updated video stored at an
// absolute path.
func (d *Database) FindVideoByPath(ctx context.Context, path string) (*Video, error) {
	return d.queryVideo(ctx, "find_video_by_path",
		`SELECT `+videoColumns+` FROM videos WHERE path = ? ORDER BY available DESC, updated_at DESC LIMIT 1`, path)
}

// ListPendingExtraction returns up to limit available videos still waiting
// for thumbnail/metadata extraction.
func (d *Database) ListPendingExtraction(ctx context.Context, limit int) ([]Video, error) {
	return d.queryVideos(ctx, "list_pending_extraction",
		`SELECT `+videoColumns+` FROM videos WHERE extraction_status = ? AND available = 1 ORDER BY id LIMIT ?`,
		string(ExtractionPending), limit)
}

// InsertVideo adds a new video record and returns its id.
func (d *Database) InsertVideo(ctx context.Context, v *Video) (int64, error) {
	status := v.ExtractionStatus
	if status == "" {
		status = ExtractionPending
	}
	res, err := d.exec(ctx, "insert_video", `
		INSERT INTO videos (folder_id, title, file_name, path, relative_path, volume_id, content_key,
			size, mod_time, available, extraction_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.FolderID, v.Title, v.FileName, v.Path, nullString(v.RelativePath), nullString(v.VolumeID), v.ContentKey,
		v.Size, v.ModTime.Unix(), boolInt(v.Available), string(status))
	if err != nil {
		return 0, fmt.Errorf("insert video %s: %w", v.Path, err)
	}
	return res.LastInsertId()
}

// UpdateVideoPathAndAvailability moves a video to path and sets its
// availability. A zero modTime leaves the stored modification time alone.
func (d *Database) UpdateVideoPathAndAvailability(ctx context.Context, id int64, path string, modTime time.Time, available bool) error {
	if modTime.IsZero() {
		return d.execOne(ctx, "update_video_path", `
			UPDATE videos SET path = ?, available = ?, updated_at = strftime('%s', 'now') WHERE id = ?
		`, path, boolInt(available), id)
	}
	return d.execOne(ctx, "update_video_path", `
		UPDATE videos SET path = ?, mod_time = ?, available = ?, updated_at = strftime('%s', 'now') WHERE id = ?
	`, path, modTime.Unix(), boolInt(available), id)
}

// MarkVideoUnavailable flags a video as missing from disk. The record is kept.
func (d *Database) MarkVideoUnavailable(ctx context.Context, id int64) error {
	return d.execOne(ctx, "mark_video_unavailable", `
		UPDATE videos SET available = 0, updated_at = strftime('%s', 'now') WHERE id = ?
	`, id)
}

// MarkFolderVideosUnavailable flags every available video of a folder as
// missing and returns how many changed.
func (d *Database) MarkFolderVideosUnavailable(ctx context.Context, folderID int64) (int64, error) {
	res, err := d.exec(ctx, "mark_folder_unavailable", `
		UPDATE videos SET available = 0, updated_at = strftime('%s', 'now')
		WHERE folder_id = ? AND available = 1
	`, folderID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateVideoFileInfo refreshes size and modification time after a write.
// The content key encodes the size, so it is rewritten with them.
func (d *Database) UpdateVideoFileInfo(ctx context.Context, id int64, contentKey string, size int64, modTime time.Time) error {
	return d.execOne(ctx, "update_video_file_info", `
		UPDATE videos SET content_key = ?, size = ?, mod_time = ?, updated_at = strftime('%s', 'now') WHERE id = ?
	`, contentKey, size, modTime.Unix(), id)
}

// UpgradeLegacyVideo gives a pre-migration record its volume-relative
// identity and marks it available at path.
func (d *Database) UpgradeLegacyVideo(ctx context.Context, id int64, volumeID, relativePath, contentKey, path string) error {
	return d.execOne(ctx, "upgrade_legacy_video", `
		UPDATE videos SET volume_id = ?, relative_path = ?, content_key = ?, path = ?, available = 1,
			updated_at = strftime('%s', 'now')
		WHERE id = ?
	`, volumeID, relativePath, contentKey, path, id)
}

// UpdateVideoExtraction stores the outcome of thumbnail/metadata extraction.
func (d *Database) UpdateVideoExtraction(ctx context.Context, id int64, e Extraction) error {
	return d.execOne(ctx, "update_video_extraction", `
		UPDATE videos SET extraction_status = ?, thumbnail_path = COALESCE(?, thumbnail_path),
			duration = ?, width = ?, height = ?, video_codec = ?, audio_codec = ?,
			updated_at = strftime('%s', 'now')
		WHERE id = ?
	`, string(e.Status), nullString(e.ThumbnailPath), e.Duration, e.Width, e.Height,
		nullString(e.VideoCodec), nullString(e.AudioCodec), id)
}
