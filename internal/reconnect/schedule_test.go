package reconnect

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"videolib/internal/database"
	"videolib/internal/volume"
)

// countingStore counts passes and can be told to panic.
type countingStore struct {
	calls  atomic.Int32
	panics atomic.Int32
}

func (s *countingStore) FindFoldersNeedingReconnectCheck(context.Context) ([]database.Folder, error) {
	s.calls.Add(1)
	if s.panics.Load() > 0 {
		s.panics.Add(-1)
		panic("boom")
	}
	return nil, nil
}

func (s *countingStore) FindVideosByFolder(context.Context, int64) ([]database.Video, error) {
	return nil, nil
}

func (s *countingStore) UpdateFolderLocation(context.Context, int64, string, string) error {
	return nil
}

func (s *countingStore) UpdateVideoPathAndAvailability(context.Context, int64, string, time.Time, bool) error {
	return nil
}

func (s *countingStore) SetLastReconnectPass(context.Context, time.Time) error {
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunEveryRunsImmediately(t *testing.T) {
	t.Parallel()
	store := &countingStore{}
	m := New(store, volume.NewStatic())

	h := m.RunEvery(context.Background(), time.Hour)
	waitFor(t, func() bool { return store.calls.Load() == 1 })
	h.Stop()

	if got := store.calls.Load(); got != 1 {
		t.Errorf("passes = %d, want 1", got)
	}
}

func TestRunEverySurvivesPanic(t *testing.T) {
	t.Parallel()
	store := &countingStore{}
	store.panics.Store(1)
	m := New(store, volume.NewStatic())

	h := m.RunEvery(context.Background(), 10*time.Millisecond)
	defer h.Stop()
	waitFor(t, func() bool { return store.calls.Load() >= 3 })

	// The guard was released by the panicking pass.
	if _, err := m.ScanForReconnections(context.Background()); err != nil && err != ErrPassInProgress {
		t.Errorf("ScanForReconnections: %v", err)
	}
}

func TestRunEveryStopsWithContext(t *testing.T) {
	t.Parallel()
	store := &countingStore{}
	m := New(store, volume.NewStatic())

	ctx, cancel := context.WithCancel(context.Background())
	h := m.RunEvery(ctx, 10*time.Millisecond)
	waitFor(t, func() bool { return store.calls.Load() >= 1 })
	cancel()

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("driver did not stop after cancel")
	}
}

func TestRunEveryRejectsNonPositiveInterval(t *testing.T) {
	t.Parallel()
	for _, interval := range []time.Duration{0, -time.Second} {
		store := &countingStore{}
		m := New(store, volume.NewStatic())

		h := m.RunEvery(context.Background(), interval)
		waitFor(t, func() bool { return store.calls.Load() >= 1 })
		h.Stop()
	}
}
