package volume

import (
	"context"
	"sync"

	"videolib/internal/pathcodec"
)

// Static is a Resolver backed by an explicit table of mounted volumes.
// Tests and tools use it to simulate plugging drives in and out.
type Static struct {
	mu     sync.RWMutex
	mounts map[string]string // id -> mount point
}

// NewStatic returns an empty Static resolver.
func NewStatic() *Static {
	return &Static{mounts: make(map[string]string)}
}

// Mount attaches volume id at mountPoint, replacing any previous location.
func (s *Static) Mount(id, mountPoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounts[id] = mountPoint
}

// Unmount detaches volume id.
func (s *Static) Unmount(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mounts, id)
}

func (s *Static) lookup(path string) (string, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bestID, bestMount string
	for id, mp := range s.mounts {
		if pathcodec.IsUnder(path, mp) && len(mp) > len(bestMount) {
			bestID, bestMount = id, mp
		}
	}
	return bestID, bestMount, bestID != ""
}

// Identify returns the mounted volume containing path, or a degraded
// identity derived from the filesystem root when none matches.
func (s *Static) Identify(_ context.Context, path string) Identity {
	if id, mp, ok := s.lookup(path); ok {
		return Identity{ID: id, MountPoint: mp, Method: MethodUUID}
	}
	root := walkMountPoint(path)
	return Identity{ID: derivedID("static", root), MountPoint: root, Method: MethodDerived, Degraded: true}
}

// Locate returns where volume id is mounted.
func (s *Static) Locate(_ context.Context, id string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mp, ok := s.mounts[id]
	return mp, ok, nil
}

// MountPointOf returns the mount point of the volume containing path.
func (s *Static) MountPointOf(path string) string {
	if _, mp, ok := s.lookup(path); ok {
		return mp
	}
	return walkMountPoint(path)
}
