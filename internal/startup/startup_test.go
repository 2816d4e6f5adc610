package startup

import (
	"net/http"
	"runtime/debug"
	"testing"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
	if info.OS == "" || info.Arch == "" {
		t.Errorf("Expected OS/Arch to be set, got %q/%q", info.OS, info.Arch)
	}
}

func TestGetRoutes(t *testing.T) {
	noop := func(http.ResponseWriter, *http.Request) {}
	r := mux.NewRouter()
	r.HandleFunc("/health", noop).Methods(http.MethodGet)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/folders", noop).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/folders/{id}/sync", noop).Methods(http.MethodPost).Name("sync")

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatalf("GetRoutes: %v", err)
	}

	var syncRoute *RouteInfo
	count := 0
	for i := range routes {
		if routes[i].Path == "/api/folders" {
			count++
		}
		if routes[i].Name == "sync" {
			syncRoute = &routes[i]
		}
	}
	if count != 2 {
		t.Errorf("got %d entries for /api/folders, want one per method", count)
	}
	if syncRoute == nil || syncRoute.Method != http.MethodPost || syncRoute.Path != "/api/folders/{id}/sync" {
		t.Errorf("sync route = %+v", syncRoute)
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "health"},
		{"/api/folders", "api/folders"},
		{"/api/folders/{id}/sync", "api/folders"},
		{"/api/reconnect", "api/reconnect"},
		{"/", ""},
	}
	for _, tt := range tests {
		if got := getRouteGroup(tt.path); got != tt.want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestConfigureMemory(t *testing.T) {
	prev := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(prev) })

	t.Run("none", func(t *testing.T) {
		t.Setenv("GOMEMLIMIT", "")
		t.Setenv("MEMORY_LIMIT", "")
		if got := ConfigureMemory(); got.Source != "none" {
			t.Errorf("Source = %s, want none", got.Source)
		}
	})

	t.Run("container limit", func(t *testing.T) {
		t.Setenv("GOMEMLIMIT", "")
		t.Setenv("MEMORY_LIMIT", "1073741824")
		t.Setenv("MEMORY_RATIO", "0.5")
		got := ConfigureMemory()
		if got.Source != "MEMORY_LIMIT" || got.GoMemLimit != 536870912 || got.Ratio != 0.5 {
			t.Errorf("ConfigureMemory() = %+v", got)
		}
		if limit := debug.SetMemoryLimit(-1); limit != 536870912 {
			t.Errorf("runtime limit = %d", limit)
		}
	})

	t.Run("bad ratio uses default", func(t *testing.T) {
		t.Setenv("GOMEMLIMIT", "")
		t.Setenv("MEMORY_LIMIT", "1000")
		t.Setenv("MEMORY_RATIO", "3")
		if got := ConfigureMemory(); got.Ratio != defaultMemoryRatio {
			t.Errorf("Ratio = %v, want %v", got.Ratio, defaultMemoryRatio)
		}
	})

	t.Run("bad limit", func(t *testing.T) {
		t.Setenv("GOMEMLIMIT", "")
		t.Setenv("MEMORY_LIMIT", "lots")
		if got := ConfigureMemory(); got.Source != "none" {
			t.Errorf("Source = %s, want none", got.Source)
		}
	})

}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1 << 30, "1.0 GiB"},
		{5 << 40, "5.0 TiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
