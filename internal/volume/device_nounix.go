//go:build !unix

package volume

import (
	"fmt"
	"path/filepath"
	"runtime"
)

func deviceID(string) (string, error) {
	return "", fmt.Errorf("device numbers are not available on %s", runtime.GOOS)
}

func walkMountPoint(path string) string {
	if v := filepath.VolumeName(path); v != "" {
		return v + string(filepath.Separator)
	}
	return string(filepath.Separator)
}
