//go:build windows

package volume

import (
	"context"

	"golang.org/x/sys/windows"
)

type windowsStrategy struct{}

func newPlatformStrategy(commandRunner) strategy {
	return windowsStrategy{}
}

func (windowsStrategy) mountPointOf(path string) (string, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return "", err
	}
	buf := make([]uint16, windows.MAX_PATH+1)
	if err := windows.GetVolumePathName(p, &buf[0], uint32(len(buf))); err != nil {
		return "", err
	}
	return windows.UTF16ToString(buf), nil
}

func (windowsStrategy) volumeID(_ context.Context, _, mountPoint string) (string, Method, error) {
	serial, err := volumeSerial(mountPoint)
	if err != nil {
		return "", "", err
	}
	return formatSerial(serial), MethodSerial, nil
}

func (windowsStrategy) locate(_ context.Context, id string) (string, bool, error) {
	mask, err := windows.GetLogicalDrives()
	if err != nil {
		return "", false, err
	}
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		root := string(rune('A'+i)) + `:\`
		serial, err := volumeSerial(root)
		if err != nil {
			// Empty card readers and disconnected network drives.
			continue
		}
		if formatSerial(serial) == id {
			return root, true, nil
		}
	}
	return "", false, nil
}

func volumeSerial(root string) (uint32, error) {
	r, err := windows.UTF16PtrFromString(root)
	if err != nil {
		return 0, err
	}
	var serial uint32
	if err := windows.GetVolumeInformation(r, nil, 0, &serial, nil, nil, nil, 0); err != nil {
		return 0, err
	}
	return serial, nil
}
