package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"videolib/internal/logging"
	"videolib/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// ErrNotFound is returned when a folder or video does not exist.
var ErrNotFound = errors.New("not found")

// Database is the library index: watched folders, videos and sync history.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// New opens (creating if needed) the library database at dbPath.
// The parent directory must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	// busy_timeout keeps the watcher and reconnect monitor from tripping
	// over each other with "database is locked".
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{db: db, dbPath: dbPath}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

const tablesSchema = `
CREATE TABLE IF NOT EXISTS watched_folders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL,
	volume_id TEXT,
	mount_point TEXT,
	relative_path TEXT,
	active INTEGER NOT NULL DEFAULT 1,
	last_scanned_at INTEGER,
	created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);

CREATE TABLE IF NOT EXISTS videos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	folder_id INTEGER NOT NULL REFERENCES watched_folders(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	file_name TEXT NOT NULL,
	path TEXT NOT NULL,
	relative_path TEXT,
	volume_id TEXT,
	content_key TEXT NOT NULL,
	size INTEGER NOT NULL DEFAULT 0,
	mod_time INTEGER NOT NULL DEFAULT 0,
	available INTEGER NOT NULL DEFAULT 1,
	thumbnail_path TEXT,
	duration REAL NOT NULL DEFAULT 0,
	width INTEGER NOT NULL DEFAULT 0,
	height INTEGER NOT NULL DEFAULT 0,
	video_codec TEXT,
	audio_codec TEXT,
	extraction_status TEXT NOT NULL DEFAULT 'pending',
	created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
	updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);

CREATE TABLE IF NOT EXISTS sync_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	folder_id INTEGER NOT NULL REFERENCES watched_folders(id) ON DELETE CASCADE,
	added INTEGER NOT NULL DEFAULT 0,
	updated INTEGER NOT NULL DEFAULT 0,
	unchanged INTEGER NOT NULL DEFAULT 0,
	removed INTEGER NOT NULL DEFAULT 0,
	disconnected INTEGER NOT NULL DEFAULT 0,
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
	key TEXT PRIMARY KEY,
	value TEXT
);
`

// Indexes are created after migrations so that columns added to an older
// database exist before they are indexed.
const indexSchema = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_folders_volume_path
	ON watched_folders(volume_id, relative_path) WHERE volume_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_folders_path ON watched_folders(path);

CREATE UNIQUE INDEX IF NOT EXISTS idx_videos_content_key ON videos(content_key);
CREATE INDEX IF NOT EXISTS idx_videos_folder ON videos(folder_id, available);
CREATE INDEX IF NOT EXISTS idx_videos_path ON videos(path);
CREATE INDEX IF NOT EXISTS idx_videos_extraction ON videos(extraction_status);

CREATE INDEX IF NOT EXISTS idx_sync_history_folder ON sync_history(folder_id, finished_at);
`

func (d *Database) initialize(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, tablesSchema); err != nil {
		return err
	}
	if err := d.runMigrations(ctx); err != nil {
		return err
	}
	_, err := d.db.ExecContext(ctx, indexSchema)
	return err
}

type columnMigration struct {
	table  string
	column string
	ddl    string
}

// Databases created before volume-relative keys only stored absolute paths.
// Rows migrated this way keep a NULL volume_id and are upgraded by the
// reconciler the first time their folder is scanned.
var columnMigrations = []columnMigration{
	{"watched_folders", "volume_id", "ALTER TABLE watched_folders ADD COLUMN volume_id TEXT"},
	{"watched_folders", "mount_point", "ALTER TABLE watched_folders ADD COLUMN mount_point TEXT"},
	{"watched_folders", "relative_path", "ALTER TABLE watched_folders ADD COLUMN relative_path TEXT"},
	{"videos", "volume_id", "ALTER TABLE videos ADD COLUMN volume_id TEXT"},
	{"videos", "relative_path", "ALTER TABLE videos ADD COLUMN relative_path TEXT"},
	{"videos", "extraction_status", "ALTER TABLE videos ADD COLUMN extraction_status TEXT NOT NULL DEFAULT 'pending'"},
	{"sync_history", "disconnected", "ALTER TABLE sync_history ADD COLUMN disconnected INTEGER NOT NULL DEFAULT 0"},
}

// runMigrations adds columns missing from databases created by older versions.
func (d *Database) runMigrations(ctx context.Context) error {
	for _, m := range columnMigrations {
		var exists bool
		err := d.db.QueryRowContext(ctx,
			`SELECT COUNT(*) > 0 FROM pragma_table_info(?) WHERE name = ?`,
			m.table, m.column,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check for %s.%s column: %w", m.table, m.column, err)
		}
		if exists {
			continue
		}

		logging.Info("Migrating database: adding %s column to %s table", m.column, m.table)
		if _, err := d.db.ExecContext(ctx, m.ddl); err != nil {
			return fmt.Errorf("failed to add %s.%s column: %w", m.table, m.column, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Batch is an open transaction started by BeginBatch.
type Batch struct {
	tx    *sql.Tx
	start time.Time
}

// BeginBatch starts a transaction. The caller must finish it with EndBatch.
func (d *Database) BeginBatch(ctx context.Context) (*Batch, error) {
	d.mu.Lock()
	tx, err := d.db.BeginTx(ctx, nil)
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &Batch{tx: tx, start: time.Now()}, nil
}

// EndBatch commits b, or rolls it back when err is non-nil.
func (d *Database) EndBatch(b *Batch, err error) error {
	duration := time.Since(b.start).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		if rbErr := b.tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return b.tx.Commit()
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, ErrNotFound) {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// UpdateDBMetrics updates database connection metrics
func (d *Database) UpdateDBMetrics() {
	metrics.DBConnectionsOpen.Set(float64(d.db.Stats().OpenConnections))
}

// diagnoseDatabasePermissions checks that the database directory and any
// existing WAL/SHM files are writable, fixing file modes where it can.
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}
	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.Mode().Perm()&0o200 != 0 {
			continue
		}
		logging.Warn("%s is read-only (mode %v); writes will fail", p, info.Mode())
		if chmodErr := os.Chmod(p, 0o600); chmodErr != nil {
			logging.Error("Failed to fix permissions on %s: %v", p, chmodErr)
		} else {
			logging.Info("Fixed permissions on %s", p)
		}
	}
	return nil
}

func unixOrZero(n sql.NullInt64) time.Time {
	if !n.Valid || n.Int64 == 0 {
		return time.Time{}
	}
	return time.Unix(n.Int64, 0)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
