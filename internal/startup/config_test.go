package startup

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		setEnv       bool
		want         string
	}{
		{name: "unset returns default", key: "VIDEOLIB_TEST_UNSET", defaultValue: "default", want: "default"},
		{name: "set returns value", key: "VIDEOLIB_TEST_SET", defaultValue: "default", envValue: "custom", setEnv: true, want: "custom"},
		{name: "empty returns default", key: "VIDEOLIB_TEST_EMPTY", defaultValue: "default", envValue: "", setEnv: true, want: "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.envValue)
			}
			if got := getEnv(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		envValue     string
		defaultValue bool
		want         bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"false", true, false},
		{"1", false, true},
		{"0", true, false},
		{"yes", true, true},
		{"yes", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("VIDEOLIB_TEST_BOOL", tt.envValue)
			if got := getEnvBool("VIDEOLIB_TEST_BOOL", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.envValue, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		envValue string
		want     time.Duration
	}{
		{"", time.Minute},
		{"45s", 45 * time.Second},
		{"2h", 2 * time.Hour},
		{"soon", time.Minute},
		{"-5s", time.Minute},
		{"0", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("VIDEOLIB_TEST_DURATION", tt.envValue)
			if got := getEnvDuration("VIDEOLIB_TEST_DURATION", time.Minute); got != tt.want {
				t.Errorf("getEnvDuration(%q) = %v, want %v", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvInterval(t *testing.T) {
	tests := []struct {
		envValue string
		want     time.Duration
	}{
		{"", time.Minute},
		{"0", 0},
		{"0s", 0},
		{"10m", 10 * time.Minute},
		{"-1m", time.Minute},
		{"never", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("VIDEOLIB_TEST_INTERVAL", tt.envValue)
			if got := getEnvInterval("VIDEOLIB_TEST_INTERVAL", time.Minute); got != tt.want {
				t.Errorf("getEnvInterval(%q) = %v, want %v", tt.envValue, got, tt.want)
			}
		})
	}

	if got := parseIntervalOr("0", time.Minute); got != 0 {
		t.Errorf("parseIntervalOr(\"0\") = %v, want 0", got)
	}
	if got := parseDurationOr("0", time.Minute); got != time.Minute {
		t.Errorf("parseDurationOr(\"0\") = %v, want 1m", got)
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "videolib.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfigFile(t, `
port: "9000"
reconnect_interval: 1m
watch: false
folders:
  - /mnt/usb/Movies
  - /srv/tv
`)
	fc, err := loadFile(path)
	if err != nil {
		t.Fatalf("loadFile: %v", err)
	}
	if fc.Port != "9000" || fc.ReconnectInterval != "1m" {
		t.Errorf("scalars = %+v", fc)
	}
	if fc.Watch == nil || *fc.Watch {
		t.Errorf("watch = %v, want false", fc.Watch)
	}
	if fc.Extract != nil {
		t.Errorf("extract = %v, want unset", *fc.Extract)
	}
	if !slices.Equal(fc.Folders, []string{"/mnt/usb/Movies", "/srv/tv"}) {
		t.Errorf("folders = %v", fc.Folders)
	}

	if _, err := loadFile(writeConfigFile(t, "folders: [unterminated")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := loadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected read error")
	}
	if fc, err := loadFile(""); err != nil || fc.Port != "" {
		t.Errorf("loadFile(\"\") = %+v, %v", fc, err)
	}
}

func TestLoadConfig(t *testing.T) {
	base := t.TempDir()
	file := writeConfigFile(t, `
cache_dir: `+filepath.Join(base, "cache")+`
port: "9000"
watch: false
watch_settle: 5s
sync_interval: 10m
folders: [/from/file]
`)
	t.Setenv("CONFIG_FILE", file)
	t.Setenv("DATABASE_DIR", filepath.Join(base, "db"))
	t.Setenv("PORT", "7000")
	t.Setenv("FOLDERS", "/a"+string(os.PathListSeparator)+"/b")
	t.Setenv("RECONNECT_INTERVAL", "")
	t.Setenv("SYNC_INTERVAL", "")
	t.Setenv("WATCH_ENABLED", "")
	t.Setenv("WATCH_SETTLE", "")
	t.Setenv("CACHE_DIR", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Port != "7000" {
		t.Errorf("Port = %s, env should win over file", cfg.Port)
	}
	if cfg.WatchEnabled {
		t.Error("WatchEnabled = true, file said false")
	}
	if cfg.WatchSettle != 5*time.Second {
		t.Errorf("WatchSettle = %v", cfg.WatchSettle)
	}
	if cfg.SyncInterval != 10*time.Minute {
		t.Errorf("SyncInterval = %v", cfg.SyncInterval)
	}
	if cfg.ReconnectInterval != 30*time.Second {
		t.Errorf("ReconnectInterval = %v, want default", cfg.ReconnectInterval)
	}
	if !slices.Equal(cfg.Folders, []string{"/a", "/b"}) {
		t.Errorf("Folders = %v", cfg.Folders)
	}
	if cfg.DatabasePath != filepath.Join(base, "db", "library.db") {
		t.Errorf("DatabasePath = %s", cfg.DatabasePath)
	}
	if !cfg.ThumbnailsEnabled {
		t.Error("thumbnails disabled with a writable cache dir")
	}
	if _, err := os.Stat(filepath.Join(base, "cache", "thumbnails")); err != nil {
		t.Errorf("thumbnail dir not created: %v", err)
	}
}

func TestLoadConfigBadFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", writeConfigFile(t, ":\n\t- nope"))
	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for malformed config file")
	}
}

func TestLoadConfigSyncIntervalOff(t *testing.T) {
	base := t.TempDir()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CACHE_DIR", filepath.Join(base, "cache"))
	t.Setenv("DATABASE_DIR", filepath.Join(base, "db"))
	t.Setenv("SYNC_INTERVAL", "0")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.SyncInterval != 0 {
		t.Errorf("SyncInterval = %v, want 0 (periodic sync off)", cfg.SyncInterval)
	}
}
