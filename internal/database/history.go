package database

import (
	"context"
	"time"
)

// RecordSyncHistory stores the counts of one reconcile run and, unless the
// run was disconnected, stamps the folder's last-scan time in the same
// transaction.
func (d *Database) RecordSyncHistory(ctx context.Context, h SyncHistory) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("record_sync_history", start, err) }()

	if h.FinishedAt.IsZero() {
		h.FinishedAt = time.Now()
	}
	if h.StartedAt.IsZero() {
		h.StartedAt = h.FinishedAt
	}

	b, err := d.BeginBatch(ctx)
	if err != nil {
		return 0, err
	}

	var id int64
	err = func() error {
		res, err := b.tx.ExecContext(ctx, `
			INSERT INTO sync_history (folder_id, added, updated, unchanged, removed, disconnected, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, h.FolderID, h.Added, h.Updated, h.Unchanged, h.Removed, boolInt(h.Disconnected), h.StartedAt.Unix(), h.FinishedAt.Unix())
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		if h.Disconnected {
			return nil
		}
		_, err = b.tx.ExecContext(ctx,
			`UPDATE watched_folders SET last_scanned_at = ? WHERE id = ?`, h.FinishedAt.Unix(), h.FolderID)
		return err
	}()
	err = d.EndBatch(b, err)
	return id, err
}

// ListSyncHistory returns the most recent runs for a folder, newest first.
func (d *Database) ListSyncHistory(ctx context.Context, folderID int64, limit int) ([]SyncHistory, error) {
	if limit <= 0 {
		limit = 50
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, folder_id, added, updated, unchanged, removed, disconnected, started_at, finished_at
		FROM sync_history WHERE folder_id = ?
		ORDER BY finished_at DESC, id DESC LIMIT ?
	`, folderID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []SyncHistory
	for rows.Next() {
		var h SyncHistory
		var started, finished int64
		if err := rows.Scan(&h.ID, &h.FolderID, &h.Added, &h.Updated, &h.Unchanged, &h.Removed, &h.Disconnected, &started, &finished); err != nil {
			return nil, err
		}
		h.StartedAt = time.Unix(started, 0)
		h.FinishedAt = time.Unix(finished, 0)
		history = append(history, h)
	}
	return history, rows.Err()
}
