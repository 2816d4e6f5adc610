package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const lastReconnectKey = "last_reconnect_pass"

// GetMetadata returns the value stored under key, or ErrNotFound.
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value sql.NullString
	err := d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value.String, err
}

// SetMetadata sets a metadata key-value pair.
func (d *Database) SetMetadata(ctx context.Context, key, value string) error {
	_, err := d.exec(ctx, "set_metadata", `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetLastReconnectPass returns when the reconnect monitor last completed a
// pass, or the zero time if it never has.
func (d *Database) GetLastReconnectPass(ctx context.Context) (time.Time, error) {
	value, err := d.GetMetadata(ctx, lastReconnectKey)
	if errors.Is(err, ErrNotFound) || (err == nil && value == "") {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// SetLastReconnectPass stores the time of the last reconnect pass.
func (d *Database) SetLastReconnectPass(ctx context.Context, t time.Time) error {
	return d.SetMetadata(ctx, lastReconnectKey, t.UTC().Format(time.RFC3339))
}
