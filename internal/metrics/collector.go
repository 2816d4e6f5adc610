package metrics

import (
	"time"

	"videolib/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// DBMetricsUpdater refreshes connection-pool gauges.
type DBMetricsUpdater interface {
	UpdateDBMetrics()
}

// Stats holds the current library statistics
type Stats struct {
	TotalFolders      int
	ActiveFolders     int
	TotalVideos       int
	AvailableVideos   int
	PendingExtraction int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	dbUpdater     DBMetricsUpdater
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// SetDBMetricsUpdater registers a hook called on every collection cycle.
func (c *Collector) SetDBMetricsUpdater(u DBMetricsUpdater) {
	c.dbUpdater = u
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.dbUpdater != nil {
		c.dbUpdater.UpdateDBMetrics()
	}

	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	LibraryFolders.WithLabelValues("active").Set(float64(stats.ActiveFolders))
	LibraryFolders.WithLabelValues("inactive").Set(float64(stats.TotalFolders - stats.ActiveFolders))
	LibraryVideos.WithLabelValues("available").Set(float64(stats.AvailableVideos))
	LibraryVideos.WithLabelValues("unavailable").Set(float64(stats.TotalVideos - stats.AvailableVideos))
	LibraryPendingExtraction.Set(float64(stats.PendingExtraction))

	logging.Debug("Metrics collected: folders=%d, videos=%d (available=%d), pending=%d",
		stats.TotalFolders, stats.TotalVideos, stats.AvailableVideos, stats.PendingExtraction)
}
