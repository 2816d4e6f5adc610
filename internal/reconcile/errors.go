package reconcile

import (
	"errors"
	"fmt"
)

// ErrVolumeMismatch reports that a folder's path now lives on a different
// volume than the one recorded for it.
var ErrVolumeMismatch = errors.New("volume mismatch")

// MismatchError carries the details of an ErrVolumeMismatch.
type MismatchError struct {
	FolderID int64
	Path     string
	Recorded string
	Live     string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf(
		"folder %d (%s) was recorded on volume %s but that path is now on volume %s; remove the folder and add it again",
		e.FolderID, e.Path, e.Recorded, e.Live)
}

func (e *MismatchError) Unwrap() error {
	return ErrVolumeMismatch
}
