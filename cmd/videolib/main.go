package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"videolib/internal/database"
	"videolib/internal/events"
	"videolib/internal/extract"
	"videolib/internal/filesystem"
	"videolib/internal/handlers"
	"videolib/internal/library"
	"videolib/internal/logging"
	"videolib/internal/metrics"
	"videolib/internal/middleware"
	"videolib/internal/startup"
	"videolib/internal/volume"

	"github.com/gorilla/mux"
)

const (
	pendingBacklog    = 1000
	collectorInterval = time.Minute
	shutdownTimeout   = 30 * time.Second
)

func main() {
	startTime := time.Now()

	startup.ConfigureMemory()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	filesystem.SetObserver(metrics.NewFilesystemObserver())
	metrics.InitializeMetrics()

	bus := events.NewBus()
	notifier := events.Multi{events.NewLogNotifier(), bus}

	var queue *extract.Queue
	if config.ExtractEnabled && config.ThumbnailsEnabled {
		queue = extract.New(db, extract.Config{CacheDir: config.ThumbnailDir})
	}
	if queue != nil && queue.Enabled() {
		queue.Start()
		startup.LogExtractInit(true, queue.Workers())
	} else {
		startup.LogExtractInit(false, 0)
	}

	lib := library.New(db, volume.NewSystem(), library.Config{
		ReconnectInterval: config.ReconnectInterval,
		SyncInterval:      config.SyncInterval,
		SyncOnStart:       config.SyncOnStart,
		Watch:             config.WatchEnabled,
		WatchSettle:       config.WatchSettle,
	})
	lib.SetNotifier(notifier)
	if queue != nil && queue.Enabled() {
		lib.SetExtractor(queue)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registerFolders(ctx, lib, config.Folders)
	stats, err := db.CalculateStats(ctx)
	if err != nil {
		logging.Warn("Failed to read library stats: %v", err)
	}
	startup.LogLibraryInit(stats.TotalFolders, stats.ActiveFolders)
	startup.LogReconnectInit(config.ReconnectInterval)
	startup.LogWatcherInit(config.WatchEnabled, stats.ActiveFolders)

	lib.Start(ctx)

	if queue != nil && queue.Enabled() {
		go func() {
			n, err := queue.RequestPending(ctx, pendingBacklog)
			if err != nil {
				logging.Warn("Failed to queue pending extractions: %v", err)
				return
			}
			if n > 0 {
				logging.Info("Queued %d videos left pending by a previous run", n)
			}
		}()
	}

	collector := metrics.NewCollector(db, collectorInterval)
	collector.SetDBMetricsUpdater(db)
	if config.MetricsEnabled {
		collector.Start()
	}

	router := newRouter(db, lib, bus, config.MetricsEnabled)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           middleware.Logger(loggingConfig)(router),
		ReadHeaderTimeout: 15 * time.Second,
		// No write timeout: /api/events streams for as long as the client stays.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		handleShutdown(srv, cancel, lib, queue, collector, config.MetricsEnabled)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

// newRouter builds the API router with request metrics attached.
func newRouter(db handlers.Store, lib handlers.Library, bus handlers.Subscriber, metricsEnabled bool) *mux.Router {
	r := mux.NewRouter()
	if metricsEnabled {
		r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	}
	handlers.New(db, lib, bus).Register(r, metricsEnabled)
	return r
}

// registerFolders adds the configured folders. Folders already in the
// library are found again by volume and left as they are.
func registerFolders(ctx context.Context, lib *library.Library, paths []string) int {
	added := 0
	for _, p := range paths {
		f, err := lib.AddFolder(ctx, p)
		if err != nil {
			logging.Warn("Skipping configured folder %s: %v", p, err)
			continue
		}
		logging.Debug("Configured folder %s is folder %d", p, f.ID)
		added++
	}
	return added
}

func handleShutdown(srv *http.Server, cancel context.CancelFunc, lib *library.Library, queue *extract.Queue, collector *metrics.Collector, collectorRunning bool) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancelTimeout := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelTimeout()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if collectorRunning {
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	startup.LogShutdownStep("Stopping library")
	cancel()
	lib.Stop()
	startup.LogShutdownStepComplete("Library stopped")

	if queue != nil {
		startup.LogShutdownStep("Stopping extraction")
		queue.Stop()
		startup.LogShutdownStepComplete("Extraction stopped")
	}

	startup.LogShutdownComplete()
}
