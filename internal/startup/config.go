package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"videolib/internal/logging"
	"videolib/internal/workers"
)

// Config holds all application configuration
type Config struct {
	CacheDir          string
	DatabaseDir       string
	Port              string
	ReconnectInterval time.Duration
	SyncInterval      time.Duration
	WatchEnabled      bool
	WatchSettle       time.Duration
	ExtractEnabled    bool
	SyncOnStart       bool
	MetricsEnabled    bool
	LogHealthChecks   bool

	// Folders are registered at startup if not already in the library.
	Folders []string

	// Derived paths
	DatabasePath string
	ThumbnailDir string

	// ThumbnailsEnabled is false when the cache directory is not writable.
	ThumbnailsEnabled bool
}

// fileConfig is the layout of the optional CONFIG_FILE. Environment
// variables override anything set here.
type fileConfig struct {
	CacheDir          string   `yaml:"cache_dir"`
	DatabaseDir       string   `yaml:"database_dir"`
	Port              string   `yaml:"port"`
	ReconnectInterval string   `yaml:"reconnect_interval"`
	SyncInterval      string   `yaml:"sync_interval"`
	Watch             *bool    `yaml:"watch"`
	WatchSettle       string   `yaml:"watch_settle"`
	Extract           *bool    `yaml:"extract"`
	SyncOnStart       *bool    `yaml:"sync_on_start"`
	Metrics           *bool    `yaml:"metrics"`
	Folders           []string `yaml:"folders"`
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}

// LoadConfig loads and validates configuration from CONFIG_FILE and
// environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	configFile := getEnv("CONFIG_FILE", "")
	fc, err := loadFile(configFile)
	if err != nil {
		return nil, err
	}

	cacheDir := getEnv("CACHE_DIR", or(fc.CacheDir, "/cache"))
	databaseDir := getEnv("DATABASE_DIR", or(fc.DatabaseDir, "/database"))
	port := getEnv("PORT", or(fc.Port, "8080"))
	reconnectInterval := getEnvDuration("RECONNECT_INTERVAL", parseDurationOr(fc.ReconnectInterval, 30*time.Second))
	syncInterval := getEnvInterval("SYNC_INTERVAL", parseIntervalOr(fc.SyncInterval, 30*time.Minute))
	watchEnabled := getEnvBool("WATCH_ENABLED", boolOr(fc.Watch, true))
	watchSettle := getEnvDuration("WATCH_SETTLE", parseDurationOr(fc.WatchSettle, 2*time.Second))
	extractEnabled := getEnvBool("EXTRACT_ENABLED", boolOr(fc.Extract, true))
	syncOnStart := getEnvBool("SYNC_ON_START", boolOr(fc.SyncOnStart, true))
	metricsEnabled := getEnvBool("METRICS_ENABLED", boolOr(fc.Metrics, true))
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)

	folders := fc.Folders
	if env := os.Getenv("FOLDERS"); env != "" {
		folders = filepath.SplitList(env)
	}

	logging.Info("  CONFIG_FILE:         %s", or(configFile, "(none)"))
	logging.Info("  CACHE_DIR:           %s", cacheDir)
	logging.Info("  DATABASE_DIR:        %s", databaseDir)
	logging.Info("  PORT:                %s", port)
	logging.Info("  RECONNECT_INTERVAL:  %v", reconnectInterval)
	logging.Info("  SYNC_INTERVAL:       %v", syncInterval)
	logging.Info("  WATCH_ENABLED:       %v", watchEnabled)
	logging.Info("  WATCH_SETTLE:        %v", watchSettle)
	logging.Info("  EXTRACT_ENABLED:     %v", extractEnabled)
	logging.Info("  EXTRACT_WORKERS:     %s", or(os.Getenv(workers.EnvOverride), "auto"))
	logging.Info("  SYNC_ON_START:       %v", syncOnStart)
	logging.Info("  METRICS_ENABLED:     %v", metricsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", logHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
	logging.Info("  Folders configured:  %d", len(folders))

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	cacheDir, err = filepath.Abs(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	logging.Info("  Cache directory (absolute): %s", cacheDir)

	databaseDir, err = filepath.Abs(databaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", databaseDir)

	config := &Config{
		CacheDir:          cacheDir,
		DatabaseDir:       databaseDir,
		Port:              port,
		ReconnectInterval: reconnectInterval,
		SyncInterval:      syncInterval,
		WatchEnabled:      watchEnabled,
		WatchSettle:       watchSettle,
		ExtractEnabled:    extractEnabled,
		SyncOnStart:       syncOnStart,
		MetricsEnabled:    metricsEnabled,
		LogHealthChecks:   logHealthChecks,
		Folders:           folders,
		DatabasePath:      filepath.Join(databaseDir, "library.db"),
		ThumbnailDir:      filepath.Join(cacheDir, "thumbnails"),
	}

	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}

	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	config.ThumbnailsEnabled = setupOptionalDir(config.ThumbnailDir, "thumbnails")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:    ENABLED (required)")
	logging.Info("    Thumbnails:  %s", enabledString(config.ThumbnailsEnabled && config.ExtractEnabled))
	logging.Info("    Watcher:     %s", enabledString(config.WatchEnabled))
	logging.Info("    Metrics:     %s", enabledString(config.MetricsEnabled))

	return config, nil
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}
	if err := testWriteAccess(path); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	return envDuration(key, defaultValue, false)
}

// getEnvInterval is getEnvDuration for settings where 0 means off.
func getEnvInterval(key string, defaultValue time.Duration) time.Duration {
	return envDuration(key, defaultValue, true)
}

func envDuration(key string, defaultValue time.Duration, allowZero bool) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 || (parsed == 0 && !allowZero) {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func or(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func boolOr(value *bool, fallback bool) bool {
	if value != nil {
		return *value
	}
	return fallback
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	return fileDuration(value, fallback, false)
}

func parseIntervalOr(value string, fallback time.Duration) time.Duration {
	return fileDuration(value, fallback, true)
}

func fileDuration(value string, fallback time.Duration, allowZero bool) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		logging.Warn("Invalid duration in config file: %q, using default: %v", value, fallback)
		return fallback
	}
	return d
}
