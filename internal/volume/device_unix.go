//go:build unix

package volume

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// deviceID identifies the filesystem holding path by its device number.
func deviceID(path string) (string, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return "", err
	}
	dev := uint64(st.Dev)
	return fmt.Sprintf("%s%d-%d", devicePrefix, unix.Major(dev), unix.Minor(dev)), nil
}

// walkMountPoint climbs from path until the parent directory sits on a
// different device. Missing trailing components are skipped first.
func walkMountPoint(path string) string {
	p := filepath.Clean(path)
	for {
		if _, err := os.Stat(p); err == nil {
			break
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}

	var st unix.Stat_t
	if err := unix.Stat(p, &st); err != nil {
		return string(filepath.Separator)
	}
	for {
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		var pst unix.Stat_t
		if err := unix.Stat(parent, &pst); err != nil || pst.Dev != st.Dev {
			return p
		}
		p = parent
	}
}
