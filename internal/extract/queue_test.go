package extract

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"videolib/internal/database"
)

type fakeTool struct {
	probeErr error
	frameErr error
	frames   int
	mu       sync.Mutex
}

func (f *fakeTool) Probe(context.Context, string) (Info, error) {
	if f.probeErr != nil {
		return Info{}, f.probeErr
	}
	return Info{Duration: 90, Width: 1280, Height: 720, VideoCodec: "h264", AudioCodec: "aac"}, nil
}

func (f *fakeTool) Frame(context.Context, string) (image.Image, error) {
	f.mu.Lock()
	f.frames++
	f.mu.Unlock()
	if f.frameErr != nil {
		return nil, f.frameErr
	}
	return image.NewRGBA(image.Rect(0, 0, 1280, 720)), nil
}

type fakeStore struct {
	mu      sync.Mutex
	results map[int64]database.Extraction
	pending []database.Video
}

func (s *fakeStore) UpdateVideoExtraction(_ context.Context, id int64, e database.Extraction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.results == nil {
		s.results = make(map[int64]database.Extraction)
	}
	s.results[id] = e
	return nil
}

func (s *fakeStore) ListPendingExtraction(_ context.Context, limit int) ([]database.Video, error) {
	if limit < len(s.pending) {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *fakeStore) result(id int64) (database.Extraction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.results[id]
	return e, ok
}

func waitResult(t *testing.T, s *fakeStore, id int64) database.Extraction {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if e, ok := s.result(id); ok {
			return e
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no extraction result for video %d", id)
	return database.Extraction{}
}

func video(t *testing.T, dir string, id int64) database.Video {
	path := filepath.Join(dir, "movie.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return database.Video{ID: id, Path: path, ContentKey: "0123456789abcdef0123456789abcdef"}
}

func TestQueueExtractsFrame(t *testing.T) {
	t.Parallel()
	store, tool := &fakeStore{}, &fakeTool{}
	cache := t.TempDir()
	q := newQueue(store, tool, Config{CacheDir: cache, Workers: 2})
	q.Start()
	defer q.Stop()

	v := video(t, t.TempDir(), 7)
	if !q.Request(v) {
		t.Fatal("Request refused")
	}

	got := waitResult(t, store, 7)
	if got.Status != database.ExtractionDone {
		t.Fatalf("status = %s, want done", got.Status)
	}
	if got.Duration != 90 || got.Width != 1280 || got.VideoCodec != "h264" || got.AudioCodec != "aac" {
		t.Errorf("metadata = %+v", got)
	}
	if got.ThumbnailPath != ThumbnailPath(cache, v.ContentKey) {
		t.Errorf("thumbnail path = %s", got.ThumbnailPath)
	}

	img, err := imaging.Open(got.ThumbnailPath)
	if err != nil {
		t.Fatalf("open thumbnail: %v", err)
	}
	if b := img.Bounds(); b.Dx() != defaultThumbSize || b.Dy() != 180 {
		t.Errorf("thumbnail is %dx%d, want %dx180", b.Dx(), b.Dy(), defaultThumbSize)
	}
}

func TestQueuePrefersSidecarPoster(t *testing.T) {
	t.Parallel()
	store, tool := &fakeStore{}, &fakeTool{}
	q := newQueue(store, tool, Config{CacheDir: t.TempDir(), Workers: 1, ThumbSize: 100})
	q.Start()
	defer q.Stop()

	dir := t.TempDir()
	v := video(t, dir, 1)

	poster := image.NewRGBA(image.Rect(0, 0, 50, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 50; x++ {
			poster.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	f, err := os.Create(filepath.Join(dir, "movie.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, poster); err != nil {
		t.Fatal(err)
	}
	f.Close()

	q.Request(v)
	got := waitResult(t, store, 1)
	if got.Status != database.ExtractionDone {
		t.Fatalf("status = %s", got.Status)
	}
	if tool.frames != 0 {
		t.Errorf("grabbed %d frames despite a poster", tool.frames)
	}
	img, err := imaging.Open(got.ThumbnailPath)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 100 {
		t.Errorf("thumbnail is %dx%d, want 50x100", b.Dx(), b.Dy())
	}
}

func TestQueueRecordsFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tool *fakeTool
	}{
		{"probe fails", &fakeTool{probeErr: errors.New("moov atom not found")}},
		{"frame fails", &fakeTool{frameErr: errors.New("no frames")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := &fakeStore{}
			q := newQueue(store, tt.tool, Config{CacheDir: t.TempDir(), Workers: 1})
			q.Start()
			defer q.Stop()

			q.Request(video(t, t.TempDir(), 3))
			if got := waitResult(t, store, 3); got.Status != database.ExtractionFailed {
				t.Errorf("status = %s, want failed", got.Status)
			}
		})
	}
}

func TestQueueDisabledWithoutTool(t *testing.T) {
	t.Parallel()
	q := newQueue(&fakeStore{}, nil, Config{})
	q.Start()
	defer q.Stop()

	if q.Enabled() {
		t.Error("queue without a tool reports enabled")
	}
	if q.Request(database.Video{ID: 1}) {
		t.Error("disabled queue accepted a request")
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	t.Parallel()
	q := newQueue(&fakeStore{}, &fakeTool{}, Config{QueueSize: 2})

	// Workers are not started so nothing drains.
	for i := int64(1); i <= 2; i++ {
		if !q.Request(database.Video{ID: i}) {
			t.Fatalf("request %d refused", i)
		}
	}
	if q.Request(database.Video{ID: 3}) {
		t.Error("full queue accepted a request")
	}
}

func TestRequestPending(t *testing.T) {
	t.Parallel()
	store := &fakeStore{pending: []database.Video{{ID: 1}, {ID: 2}, {ID: 3}}}
	q := newQueue(store, &fakeTool{}, Config{QueueSize: 10})

	n, err := q.RequestPending(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || len(q.jobs) != 2 {
		t.Errorf("queued %d (%d in channel), want 2", n, len(q.jobs))
	}
}

func TestStopRefusesRequests(t *testing.T) {
	t.Parallel()
	q := newQueue(&fakeStore{}, &fakeTool{}, Config{CacheDir: t.TempDir(), Workers: 1})
	q.Start()
	q.Stop()
	q.Stop()

	if q.Request(database.Video{ID: 1}) {
		t.Error("stopped queue accepted a request")
	}
}
