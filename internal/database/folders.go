package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const folderColumns = `id, path, volume_id, mount_point, relative_path, active, last_scanned_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFolder(row rowScanner) (*Folder, error) {
	var (
		f                         Folder
		volumeID, mount, relative sql.NullString
		active                    int
		lastScanned               sql.NullInt64
		created                   int64
	)
	if err := row.Scan(&f.ID, &f.Path, &volumeID, &mount, &relative, &active, &lastScanned, &created); err != nil {
		return nil, err
	}
	f.VolumeID = volumeID.String
	f.MountPoint = mount.String
	f.RelativePath = relative.String
	f.Active = active != 0
	f.LastScanned = unixOrZero(lastScanned)
	f.CreatedAt = time.Unix(created, 0)
	return &f, nil
}

func (d *Database) queryFolders(ctx context.Context, query string, args ...any) ([]Folder, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, *f)
	}
	return folders, rows.Err()
}

func (d *Database) queryFolder(ctx context.Context, query string, args ...any) (*Folder, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	f, err := scanFolder(d.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return f, err
}

func (d *Database) exec(ctx context.Context, operation, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery(operation, start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var res sql.Result
	res, err = d.db.ExecContext(ctx, query, args...)
	return res, err
}

// execOne runs an update that must touch exactly one row.
func (d *Database) execOne(ctx context.Context, operation, query string, args ...any) error {
	res, err := d.exec(ctx, operation, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateFolder registers a folder. Volume fields may be empty and are then
// filled in on first scan. If a folder with the same volume and relative
// path already exists, that row is returned instead of a duplicate, with its
// path and mount point moved to the new location.
func (d *Database) CreateFolder(ctx context.Context, f Folder) (*Folder, error) {
	if f.VolumeID != "" {
		existing, err := d.FindFolderByVolumePath(ctx, f.VolumeID, f.RelativePath)
		switch {
		case err == nil:
			if existing.Path != f.Path || existing.MountPoint != f.MountPoint {
				if err := d.UpdateFolderLocation(ctx, existing.ID, f.Path, f.MountPoint); err != nil {
					return nil, err
				}
				existing.Path, existing.MountPoint = f.Path, f.MountPoint
			}
			return existing, nil
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
	}

	res, err := d.exec(ctx, "create_folder", `
		INSERT INTO watched_folders (path, volume_id, mount_point, relative_path, active)
		VALUES (?, ?, ?, ?, 1)
	`, f.Path, nullString(f.VolumeID), nullString(f.MountPoint), nullString(f.RelativePath))
	if err != nil {
		return nil, fmt.Errorf("insert folder %s: %w", f.Path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return d.GetFolder(ctx, id)
}

// GetFolder returns the folder with the given id.
func (d *Database) GetFolder(ctx context.Context, id int64) (*Folder, error) {
	return d.queryFolder(ctx, `SELECT `+folderColumns+` FROM watched_folders WHERE id = ?`, id)
}

// FindFolderByPath returns the folder registered at an absolute path.
func (d *Database) FindFolderByPath(ctx context.Context, path string) (*Folder, error) {
	return d.queryFolder(ctx, `SELECT `+folderColumns+` FROM watched_folders WHERE path = ? ORDER BY id LIMIT 1`, path)
}

// FindFolderByVolumePath returns the folder at relativePath on volumeID.
func (d *Database) FindFolderByVolumePath(ctx context.Context, volumeID, relativePath string) (*Folder, error) {
	return d.queryFolder(ctx,
		`SELECT `+folderColumns+` FROM watched_folders WHERE volume_id = ? AND relative_path = ?`,
		volumeID, relativePath)
}

// ListFolders returns every watched folder ordered by path.
func (d *Database) ListFolders(ctx context.Context) ([]Folder, error) {
	return d.queryFolders(ctx, `SELECT `+folderColumns+` FROM watched_folders ORDER BY path`)
}

// FindFoldersNeedingReconnectCheck returns folders with a known volume that
// are inactive or own at least one unavailable video.
func (d *Database) FindFoldersNeedingReconnectCheck(ctx context.Context) ([]Folder, error) {
	start := time.Now()
	folders, err := d.queryFolders(ctx, `
		SELECT `+folderColumns+` FROM watched_folders f
		WHERE f.volume_id IS NOT NULL
		  AND (f.active = 0 OR EXISTS (
			SELECT 1 FROM videos v WHERE v.folder_id = f.id AND v.available = 0
		  ))
		ORDER BY f.id
	`)
	recordQuery("find_folders_reconnect", start, err)
	return folders, err
}

// UpdateFolderVolumeInfo records the volume a folder lives on.
func (d *Database) UpdateFolderVolumeInfo(ctx context.Context, folderID int64, volumeID, mountPoint, relativePath string) error {
	return d.execOne(ctx, "update_folder_volume", `
		UPDATE watched_folders SET volume_id = ?, mount_point = ?, relative_path = ?
		WHERE id = ?
	`, nullString(volumeID), nullString(mountPoint), nullString(relativePath), folderID)
}

// UpdateFolderLocation re-anchors a folder after its volume was mounted
// somewhere else, and reactivates it.
func (d *Database) UpdateFolderLocation(ctx context.Context, folderID int64, path, mountPoint string) error {
	return d.execOne(ctx, "update_folder_location", `
		UPDATE watched_folders SET path = ?, mount_point = ?, active = 1 WHERE id = ?
	`, path, nullString(mountPoint), folderID)
}

// SetFolderActive flips a folder's active flag.
func (d *Database) SetFolderActive(ctx context.Context, folderID int64, active bool) error {
	return d.execOne(ctx, "set_folder_active",
		`UPDATE watched_folders SET active = ? WHERE id = ?`, boolInt(active), folderID)
}

// RemoveFolder deletes a folder together with its videos and history.
func (d *Database) RemoveFolder(ctx context.Context, folderID int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("remove_folder", start, err) }()

	b, err := d.BeginBatch(ctx)
	if err != nil {
		return err
	}

	err = func() error {
		// Explicit deletes keep this correct even if foreign keys are off.
		for _, q := range []string{
			`DELETE FROM sync_history WHERE folder_id = ?`,
			`DELETE FROM videos WHERE folder_id = ?`,
		} {
			if _, err := b.tx.ExecContext(ctx, q, folderID); err != nil {
				return err
			}
		}
		res, err := b.tx.ExecContext(ctx, `DELETE FROM watched_folders WHERE id = ?`, folderID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	}()
	err = d.EndBatch(b, err)
	return err
}
