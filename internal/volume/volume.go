package volume

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"videolib/internal/logging"
	"videolib/internal/metrics"
)

// Method records how a volume identifier was obtained.
type Method string

const (
	// MethodUUID is a filesystem UUID (Linux, macOS).
	MethodUUID Method = "uuid"
	// MethodSerial is a volume serial number (Windows).
	MethodSerial Method = "serial"
	// MethodDevice is the OS device number. Degraded: it changes between
	// machines and often between plug-ins of the same drive.
	MethodDevice Method = "device"
	// MethodDerived is a name-based UUID over host and mount point. Degraded.
	MethodDerived Method = "derived"
	// MethodRandom is a random UUID, used only when nothing else is known. Degraded.
	MethodRandom Method = "random"
)

const (
	devicePrefix  = "dev-"
	derivedPrefix = "derived-"
	randomPrefix  = "random-"

	commandTimeout = 5 * time.Second
)

// Identity describes the volume holding a path.
type Identity struct {
	ID         string `json:"id"`
	MountPoint string `json:"mountPoint"`
	Method     Method `json:"method"`
	Degraded   bool   `json:"degraded"`
}

// Resolver derives and looks up volume identities.
type Resolver interface {
	// Identify returns the identity of the volume containing path. It never
	// fails; when no stable identifier is available it returns a degraded one.
	Identify(ctx context.Context, path string) Identity
	// Locate returns the current mount point of the volume with the given id.
	// found is false when the volume is not attached, which is not an error.
	Locate(ctx context.Context, id string) (mountPoint string, found bool, err error)
	// MountPointOf returns the root directory of the mount containing path.
	MountPointOf(path string) string
}

// IsDegraded reports whether id came from one of the fallback schemes and
// therefore cannot be relied upon after a remount.
func IsDegraded(id string) bool {
	return strings.HasPrefix(id, devicePrefix) ||
		strings.HasPrefix(id, derivedPrefix) ||
		strings.HasPrefix(id, randomPrefix)
}

// strategy is the per-OS part of identification.
type strategy interface {
	mountPointOf(path string) (string, error)
	volumeID(ctx context.Context, path, mountPoint string) (string, Method, error)
	locate(ctx context.Context, id string) (string, bool, error)
}

// commandRunner runs an external command and returns its stdout.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %s: %w (stderr: %s)", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// System resolves identities using the host operating system.
type System struct {
	s        strategy
	hostname string
	log      logging.Logger
}

// NewSystem returns a Resolver for the current platform.
func NewSystem() *System {
	return newSystem(newPlatformStrategy(execRunner))
}

func newSystem(s strategy) *System {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return &System{s: s, hostname: host, log: logging.For("volume")}
}

// MountPointOf returns the nearest ancestor of path that is a mount point.
func (v *System) MountPointOf(path string) string {
	abs := absClean(path)
	mp, err := v.s.mountPointOf(abs)
	if err == nil && mp != "" {
		return mp
	}
	if err != nil {
		v.log.Debug("platform mount lookup failed for %s: %v", abs, err)
	}
	return walkMountPoint(abs)
}

// Identify returns the identity of the volume containing path.
func (v *System) Identify(ctx context.Context, path string) Identity {
	abs := absClean(path)
	mp := v.MountPointOf(abs)

	id, method, err := v.s.volumeID(ctx, abs, mp)
	if err == nil && id != "" {
		metrics.VolumeIdentifyTotal.WithLabelValues(string(method)).Inc()
		v.log.Debug("%s is on volume %s (%s) mounted at %s", abs, id, method, mp)
		return Identity{ID: id, MountPoint: mp, Method: method}
	}

	v.log.Warn("no stable identifier for volume at %s (%v); falling back, remounts may not be recognised", mp, err)
	return v.fallback(abs, mp)
}

func (v *System) fallback(path, mountPoint string) Identity {
	metrics.VolumeDegradedTotal.Inc()

	for _, p := range []string{path, mountPoint} {
		if p == "" {
			continue
		}
		if id, err := deviceID(p); err == nil {
			metrics.VolumeIdentifyTotal.WithLabelValues(string(MethodDevice)).Inc()
			return Identity{ID: id, MountPoint: mountPoint, Method: MethodDevice, Degraded: true}
		}
	}

	if mountPoint != "" {
		metrics.VolumeIdentifyTotal.WithLabelValues(string(MethodDerived)).Inc()
		return Identity{
			ID:         derivedID(v.hostname, mountPoint),
			MountPoint: mountPoint,
			Method:     MethodDerived,
			Degraded:   true,
		}
	}

	metrics.VolumeIdentifyTotal.WithLabelValues(string(MethodRandom)).Inc()
	return Identity{ID: randomPrefix + uuid.NewString(), Method: MethodRandom, Degraded: true}
}

// Locate returns the current mount point of volume id.
func (v *System) Locate(ctx context.Context, id string) (string, bool, error) {
	if id == "" || strings.HasPrefix(id, derivedPrefix) || strings.HasPrefix(id, randomPrefix) {
		metrics.VolumeLocateTotal.WithLabelValues("not_found").Inc()
		return "", false, nil
	}

	mp, found, err := v.s.locate(ctx, id)
	switch {
	case err != nil:
		metrics.VolumeLocateTotal.WithLabelValues("error").Inc()
		return "", false, fmt.Errorf("locate volume %s: %w", id, err)
	case !found:
		metrics.VolumeLocateTotal.WithLabelValues("not_found").Inc()
		return "", false, nil
	default:
		metrics.VolumeLocateTotal.WithLabelValues("found").Inc()
		return mp, true, nil
	}
}

func derivedID(hostname, mountPoint string) string {
	return derivedPrefix + uuid.NewSHA1(uuid.NameSpaceURL, []byte("volume://"+hostname+mountPoint)).String()
}

func absClean(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// resolveExisting follows symlinks when path exists and returns it unchanged otherwise.
func resolveExisting(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}
