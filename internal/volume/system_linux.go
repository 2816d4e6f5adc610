//go:build linux

package volume

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

type linuxStrategy struct {
	mountinfo string
	byUUID    string
	run       commandRunner
}

func newPlatformStrategy(run commandRunner) strategy {
	return &linuxStrategy{
		mountinfo: "/proc/self/mountinfo",
		byUUID:    "/dev/disk/by-uuid",
		run:       run,
	}
}

func (l *linuxStrategy) mounts() ([]mountEntry, error) {
	data, err := os.ReadFile(l.mountinfo)
	if err != nil {
		return nil, err
	}
	return parseMountInfo(data)
}

func (l *linuxStrategy) mountPointOf(path string) (string, error) {
	entries, err := l.mounts()
	if err != nil {
		return "", err
	}
	e, ok := longestMount(entries, resolveExisting(path))
	if !ok {
		return "", fmt.Errorf("no mount contains %s", path)
	}
	return e.MountPoint, nil
}

func (l *linuxStrategy) volumeID(ctx context.Context, path, mountPoint string) (string, Method, error) {
	entries, err := l.mounts()
	if err != nil {
		return "", "", err
	}
	e, ok := entryAt(entries, mountPoint)
	if !ok {
		if e, ok = longestMount(entries, resolveExisting(path)); !ok {
			return "", "", fmt.Errorf("no mount contains %s", path)
		}
	}
	if !filepath.IsAbs(e.Source) {
		return "", "", fmt.Errorf("%s is a %s mount without a block device", e.MountPoint, e.FSType)
	}

	if id := l.uuidFromLinks(e); id != "" {
		return id, MethodUUID, nil
	}

	out, err := l.run(ctx, "blkid", "-s", "UUID", "-o", "value", e.Source)
	if err != nil {
		return "", "", fmt.Errorf("blkid %s: %w", e.Source, err)
	}
	if id := strings.TrimSpace(string(out)); id != "" {
		return id, MethodUUID, nil
	}
	return "", "", fmt.Errorf("%s has no filesystem UUID", e.Source)
}

// uuidFromLinks finds the /dev/disk/by-uuid link pointing at the mount's device.
func (l *linuxStrategy) uuidFromLinks(e mountEntry) string {
	links, err := os.ReadDir(l.byUUID)
	if err != nil {
		return ""
	}
	dev := resolveExisting(e.Source)
	for _, link := range links {
		target, err := filepath.EvalSymlinks(filepath.Join(l.byUUID, link.Name()))
		if err != nil {
			continue
		}
		if target == dev || sameDevice(target, e.Major, e.Minor) {
			return link.Name()
		}
	}
	return ""
}

func (l *linuxStrategy) locate(ctx context.Context, id string) (string, bool, error) {
	entries, err := l.mounts()
	if err != nil {
		return "", false, err
	}

	if major, minor, ok := parseDeviceID(id); ok {
		return pickMount(entries, func(e mountEntry) bool {
			return e.Major == major && e.Minor == minor
		})
	}

	dev, err := filepath.EvalSymlinks(filepath.Join(l.byUUID, id))
	if err != nil {
		out, runErr := l.run(ctx, "blkid", "-U", id)
		if runErr != nil {
			// blkid exits non-zero when no device carries the UUID.
			return "", false, nil
		}
		dev = resolveExisting(strings.TrimSpace(string(out)))
	}
	if dev == "" {
		return "", false, nil
	}

	major, minor, hasDev := deviceNumbers(dev)
	return pickMount(entries, func(e mountEntry) bool {
		if resolveExisting(e.Source) == dev {
			return true
		}
		return hasDev && e.Major == major && e.Minor == minor
	})
}

// pickMount returns the mount point of the best matching entry, preferring
// mounts of the filesystem root over bind mounts of subdirectories.
func pickMount(entries []mountEntry, match func(mountEntry) bool) (string, bool, error) {
	var fallback string
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if !match(e) {
			continue
		}
		if e.Root == "/" {
			return e.MountPoint, true, nil
		}
		if fallback == "" {
			fallback = e.MountPoint
		}
	}
	if fallback != "" {
		return fallback, true, nil
	}
	return "", false, nil
}

func deviceNumbers(devPath string) (uint32, uint32, bool) {
	var st unix.Stat_t
	if err := unix.Stat(devPath, &st); err != nil {
		return 0, 0, false
	}
	rdev := uint64(st.Rdev)
	if rdev == 0 {
		return 0, 0, false
	}
	return unix.Major(rdev), unix.Minor(rdev), true
}

func sameDevice(devPath string, major, minor uint32) bool {
	if major == 0 && minor == 0 {
		return false
	}
	a, b, ok := deviceNumbers(devPath)
	return ok && a == major && b == minor
}
