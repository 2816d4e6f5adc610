//go:build darwin

package volume

import (
	"context"
	"fmt"
	"strings"
)

type darwinStrategy struct {
	run commandRunner
}

func newPlatformStrategy(run commandRunner) strategy {
	return &darwinStrategy{run: run}
}

func (d *darwinStrategy) mountPointOf(path string) (string, error) {
	return walkMountPoint(path), nil
}

func (d *darwinStrategy) volumeID(ctx context.Context, _, mountPoint string) (string, Method, error) {
	out, err := d.run(ctx, "diskutil", "info", mountPoint)
	if err != nil {
		return "", "", err
	}
	info := parseDiskutilInfo(out)
	for _, key := range []string{"Volume UUID", "Disk / Partition UUID"} {
		if id := info[key]; id != "" {
			return id, MethodUUID, nil
		}
	}
	return "", "", fmt.Errorf("diskutil reported no UUID for %s", mountPoint)
}

func (d *darwinStrategy) locate(ctx context.Context, id string) (string, bool, error) {
	if strings.HasPrefix(id, devicePrefix) {
		return "", false, nil
	}
	out, err := d.run(ctx, "diskutil", "info", id)
	if err != nil {
		// "Could not find disk" exits non-zero.
		return "", false, nil
	}
	info := parseDiskutilInfo(out)
	if strings.EqualFold(info["Mounted"], "No") || info["Mount Point"] == "" {
		return "", false, nil
	}
	return info["Mount Point"], true, nil
}
