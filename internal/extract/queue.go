package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"videolib/internal/database"
	"videolib/internal/logging"
	"videolib/internal/metrics"
	"videolib/internal/workers"
)

const (
	defaultQueueSize = 256
	defaultThumbSize = 320
	maxWorkers       = 8
	jobTimeout       = 2 * time.Minute
)

// Store is where extraction results are written.
type Store interface {
	UpdateVideoExtraction(ctx context.Context, id int64, e database.Extraction) error
	ListPendingExtraction(ctx context.Context, limit int) ([]database.Video, error)
}

// Config configures a Queue.
type Config struct {
	// CacheDir receives thumbnails named <content key>.jpg.
	CacheDir string
	// Workers defaults to workers.ForIO.
	Workers int
	// QueueSize bounds waiting jobs; Request drops beyond it.
	QueueSize int
	// ThumbSize is the bounding box of thumbnails in pixels.
	ThumbSize int
}

// Queue probes new videos and renders their thumbnails on a worker pool.
type Queue struct {
	store Store
	tool  Tool
	cfg   Config
	jobs  chan database.Video
	log   logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New creates a queue backed by ffmpeg. When ffmpeg is not installed the
// queue is disabled and every request is refused; records stay pending.
func New(store Store, cfg Config) *Queue {
	tool, err := FindFFmpeg()
	if err != nil {
		logging.Warn("Extraction disabled: %v", err)
		return newQueue(store, nil, cfg)
	}
	return newQueue(store, tool, cfg)
}

func newQueue(store Store, tool Tool, cfg Config) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = workers.ForIO(maxWorkers)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.ThumbSize <= 0 {
		cfg.ThumbSize = defaultThumbSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		store:  store,
		tool:   tool,
		cfg:    cfg,
		jobs:   make(chan database.Video, cfg.QueueSize),
		log:    logging.For("extract"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Enabled reports whether the queue can do any work.
func (q *Queue) Enabled() bool {
	return q.tool != nil
}

// Workers returns the size of the worker pool.
func (q *Queue) Workers() int {
	return q.cfg.Workers
}

// Start launches the workers.
func (q *Queue) Start() {
	if !q.Enabled() {
		return
	}
	if err := os.MkdirAll(q.cfg.CacheDir, 0o755); err != nil {
		q.log.Warn("failed to create thumbnail dir %s: %v", q.cfg.CacheDir, err)
	}
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.log.Info("extraction started with %d workers", q.cfg.Workers)
}

// Stop cancels running jobs and waits for the workers to exit. Waiting
// requests are dropped and stay pending.
func (q *Queue) Stop() {
	q.once.Do(func() {
		q.cancel()
		q.wg.Wait()
	})
}

// Request enqueues v without blocking. It returns false when the queue is
// disabled, stopped or full.
func (q *Queue) Request(v database.Video) bool {
	if !q.Enabled() || q.ctx.Err() != nil {
		return false
	}
	select {
	case q.jobs <- v:
		metrics.ExtractQueueDepth.Set(float64(len(q.jobs)))
		return true
	default:
		metrics.ExtractJobsTotal.WithLabelValues("dropped").Inc()
		q.log.Warn("extraction queue full, dropping %s", v.Path)
		return false
	}
}

// RequestPending enqueues up to limit videos still waiting for extraction,
// such as those left over from a previous run.
func (q *Queue) RequestPending(ctx context.Context, limit int) (int, error) {
	if !q.Enabled() {
		return 0, nil
	}
	videos, err := q.store.ListPendingExtraction(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending extraction: %w", err)
	}
	n := 0
	for _, v := range videos {
		if !q.Request(v) {
			break
		}
		n++
	}
	return n, nil
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case v := <-q.jobs:
			metrics.ExtractQueueDepth.Set(float64(len(q.jobs)))
			q.run(v)
		case <-q.ctx.Done():
			return
		}
	}
}

func (q *Queue) run(v database.Video) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(q.ctx, jobTimeout)
	defer cancel()

	result, err := q.extract(ctx, v)
	metrics.ExtractDuration.Observe(time.Since(start).Seconds())
	if errors.Is(err, context.Canceled) && q.ctx.Err() != nil {
		return
	}

	status := "done"
	if err != nil {
		q.log.Warn("extraction of %s failed: %v", v.Path, err)
		result.Status = database.ExtractionFailed
		status = "failed"
	}
	metrics.ExtractJobsTotal.WithLabelValues(status).Inc()

	// The result is stored even if the job ran out of time.
	if err := q.store.UpdateVideoExtraction(context.WithoutCancel(ctx), v.ID, result); err != nil {
		q.log.Error("could not store extraction for video %d: %v", v.ID, err)
	}
}

// extract probes v and writes its thumbnail. A sidecar poster next to the
// video wins over a grabbed frame.
func (q *Queue) extract(ctx context.Context, v database.Video) (database.Extraction, error) {
	info, err := q.tool.Probe(ctx, v.Path)
	if err != nil {
		return database.Extraction{}, err
	}
	result := database.Extraction{
		Status:     database.ExtractionDone,
		Duration:   info.Duration,
		Width:      info.Width,
		Height:     info.Height,
		VideoCodec: info.VideoCodec,
		AudioCodec: info.AudioCodec,
	}

	img, err := sidecarPoster(v.Path)
	if err != nil {
		img, err = q.tool.Frame(ctx, v.Path)
		if err != nil {
			return result, err
		}
	}

	thumb, err := q.writeThumbnail(v.ContentKey, img)
	if err != nil {
		return result, err
	}
	result.ThumbnailPath = thumb
	return result, nil
}

func (q *Queue) writeThumbnail(key string, img image.Image) (string, error) {
	thumb := imaging.Fit(img, q.cfg.ThumbSize, q.cfg.ThumbSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	path := ThumbnailPath(q.cfg.CacheDir, key)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write thumbnail: %w", err)
	}
	return path, nil
}

// ThumbnailPath is where the thumbnail of a content key is stored.
func ThumbnailPath(cacheDir, key string) string {
	return filepath.Join(cacheDir, key+".jpg")
}

var posterExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// sidecarPoster loads "<name>.jpg" (or png/webp) or "<name>-poster.jpg"
// from next to the video.
func sidecarPoster(videoPath string) (image.Image, error) {
	base := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	for _, stem := range []string{base, base + "-poster"} {
		for _, ext := range posterExtensions {
			img, err := imaging.Open(stem+ext, imaging.AutoOrientation(true))
			if err == nil {
				return img, nil
			}
		}
	}
	return nil, errors.New("no sidecar poster")
}
