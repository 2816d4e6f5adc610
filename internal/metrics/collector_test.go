package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockStatsProvider struct {
	stats Stats
}

func (m *mockStatsProvider) GetStats() Stats {
	return m.stats
}

type mockDBUpdater struct {
	mu    sync.Mutex
	calls int
}

func (m *mockDBUpdater) UpdateDBMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
}

func (m *mockDBUpdater) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestNewCollector(t *testing.T) {
	provider := &mockStatsProvider{}
	collector := NewCollector(provider, 5*time.Second)

	if collector.statsProvider != provider {
		t.Error("statsProvider not set correctly")
	}
	if collector.interval != 5*time.Second {
		t.Errorf("interval = %v, want %v", collector.interval, 5*time.Second)
	}
	if collector.stopChan == nil {
		t.Error("stopChan not initialized")
	}
}

func TestCollectorCollectSetsGauges(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{
		TotalFolders:      4,
		ActiveFolders:     3,
		TotalVideos:       10,
		AvailableVideos:   7,
		PendingExtraction: 2,
	}}
	collector := NewCollector(provider, time.Minute)
	collector.collect()

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"active folders", testutil.ToFloat64(LibraryFolders.WithLabelValues("active")), 3},
		{"inactive folders", testutil.ToFloat64(LibraryFolders.WithLabelValues("inactive")), 1},
		{"available videos", testutil.ToFloat64(LibraryVideos.WithLabelValues("available")), 7},
		{"unavailable videos", testutil.ToFloat64(LibraryVideos.WithLabelValues("unavailable")), 3},
		{"pending extraction", testutil.ToFloat64(LibraryPendingExtraction), 2},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestCollectorNilProvider(_ *testing.T) {
	collector := NewCollector(nil, time.Minute)
	collector.collect()
}

func TestCollectorStartStopCallsDBUpdater(t *testing.T) {
	updater := &mockDBUpdater{}
	collector := NewCollector(&mockStatsProvider{}, 20*time.Millisecond)
	collector.SetDBMetricsUpdater(updater)

	collector.Start()
	time.Sleep(70 * time.Millisecond)
	collector.Stop()

	if updater.count() < 2 {
		t.Errorf("expected at least 2 db metric updates, got %d", updater.count())
	}
}
