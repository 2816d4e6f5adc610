package scanner

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"path/filepath"
	"time"

	"videolib/internal/contentkey"
	"videolib/internal/filesystem"
	"videolib/internal/logging"
	"videolib/internal/mediatypes"
	"videolib/internal/metrics"
	"videolib/internal/pathcodec"
)

var log = logging.For("scanner")

// FileEntry is a video file found by a scan.
type FileEntry struct {
	FileName     string
	AbsolutePath string
	RelativePath string
	Size         int64
	ModTime      time.Time
	ContentKey   string
	VolumeID     string
}

// Progress is reported once per discovered video.
type Progress struct {
	Count int
	Path  string
}

// Options configure one scan.
type Options struct {
	// Root is the directory to walk.
	Root string
	// VolumeID and MountPoint describe the volume Root lives on and feed the
	// relative path and content key of every entry.
	VolumeID   string
	MountPoint string
	// OnProgress, if set, is called for each video found.
	OnProgress func(Progress)
	// Retry controls stat retries on stale network handles.
	Retry filesystem.RetryConfig
}

// Scan returns a sequence of the video files under opts.Root.
//
// Each range over the sequence is a fresh, complete walk. Unreadable entries
// are logged and skipped. When ctx is cancelled the walk stops and the
// sequence ends with whatever was already yielded.
func Scan(ctx context.Context, opts Options) iter.Seq[FileEntry] {
	if opts.Retry == (filesystem.RetryConfig{}) {
		opts.Retry = filesystem.DefaultRetryConfig()
	}

	return func(yield func(FileEntry) bool) {
		root, err := filepath.Abs(opts.Root)
		if err != nil {
			log.Warn("cannot resolve %s: %v", opts.Root, err)
			return
		}

		count := 0
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return fs.SkipAll
			}
			if err != nil {
				log.Warn("skipping %s: %v", path, err)
				metrics.ScanFilesSkipped.Inc()
				if d != nil && d.IsDir() && path != root {
					return fs.SkipDir
				}
				return nil
			}

			if path != root && mediatypes.IsHidden(d.Name()) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !mediatypes.IsVideoFile(d.Name()) {
				return nil
			}

			entry, ok := buildEntry(path, d.Name(), opts)
			if !ok {
				return nil
			}

			count++
			if opts.OnProgress != nil {
				opts.OnProgress(Progress{Count: count, Path: path})
			}
			if !yield(entry) {
				return fs.SkipAll
			}
			return nil
		})
		if err != nil && !errors.Is(err, fs.SkipAll) {
			log.Warn("walk of %s ended early: %v", root, err)
		}
		if ctx.Err() != nil {
			log.Info("scan of %s cancelled after %d files", root, count)
		}
	}
}

func buildEntry(path, name string, opts Options) (FileEntry, bool) {
	entry, err := Entry(path, opts)
	if err != nil {
		log.Warn("skipping %s: %v", path, err)
		metrics.ScanFilesSkipped.Inc()
		return FileEntry{}, false
	}
	entry.FileName = name
	return entry, true
}

// ErrNotRegular is returned by Entry for directories, devices and the like.
var ErrNotRegular = errors.New("not a regular file")

// Entry describes a single file the way a scan would. Only opts.VolumeID,
// opts.MountPoint and opts.Retry are used.
func Entry(path string, opts Options) (FileEntry, error) {
	if opts.Retry == (filesystem.RetryConfig{}) {
		opts.Retry = filesystem.DefaultRetryConfig()
	}
	// Stat rather than d.Info so that symlinked videos report the target's size.
	info, err := filesystem.StatWithRetry(path, opts.Retry)
	if err != nil {
		return FileEntry{}, err
	}
	if !info.Mode().IsRegular() {
		return FileEntry{}, ErrNotRegular
	}

	rel := pathcodec.RelativeTo(path, opts.MountPoint)
	return FileEntry{
		FileName:     filepath.Base(path),
		AbsolutePath: path,
		RelativePath: rel,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		ContentKey:   contentkey.Derive(opts.VolumeID, rel, info.Size()),
		VolumeID:     opts.VolumeID,
	}, nil
}

// Collect runs a full scan and materialises it. The returned error is the
// context's error when the scan was cancelled; entries gathered up to that
// point are still returned.
func Collect(ctx context.Context, opts Options) ([]FileEntry, error) {
	var entries []FileEntry
	for e := range Scan(ctx, opts) {
		entries = append(entries, e)
	}
	return entries, ctx.Err()
}
