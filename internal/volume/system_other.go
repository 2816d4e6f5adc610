//go:build !linux && !darwin && !windows

package volume

import (
	"context"
	"fmt"
	"runtime"
)

type genericStrategy struct{}

func newPlatformStrategy(commandRunner) strategy {
	return genericStrategy{}
}

func (genericStrategy) mountPointOf(path string) (string, error) {
	return walkMountPoint(path), nil
}

func (genericStrategy) volumeID(context.Context, string, string) (string, Method, error) {
	return "", "", fmt.Errorf("volume UUID lookup is not supported on %s", runtime.GOOS)
}

func (genericStrategy) locate(context.Context, string) (string, bool, error) {
	return "", false, nil
}
