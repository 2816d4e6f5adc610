package database

import (
	"context"
	"time"

	"videolib/internal/logging"
	"videolib/internal/metrics"
)

// CalculateStats counts folders and videos by state.
func (d *Database) CalculateStats(ctx context.Context) (metrics.Stats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("calculate_stats", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var s metrics.Stats
	err = d.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(active), 0) FROM watched_folders
	`).Scan(&s.TotalFolders, &s.ActiveFolders)
	if err != nil {
		return s, err
	}

	err = d.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN available = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN extraction_status = 'pending' THEN 1 ELSE 0 END), 0)
		FROM videos
	`).Scan(&s.TotalVideos, &s.AvailableVideos, &s.PendingExtraction)
	return s, err
}

// GetStats implements metrics.StatsProvider.
func (d *Database) GetStats() metrics.Stats {
	s, err := d.CalculateStats(context.Background())
	if err != nil {
		logging.Warn("Failed to calculate library stats: %v", err)
	}
	return s
}
