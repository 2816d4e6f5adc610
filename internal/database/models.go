package database

import "time"

// ExtractionStatus tracks thumbnail/metadata extraction for a video.
type ExtractionStatus string

const (
	ExtractionPending ExtractionStatus = "pending"
	ExtractionDone    ExtractionStatus = "done"
	ExtractionFailed  ExtractionStatus = "failed"
)

// Folder is a watched folder. VolumeID, MountPoint and RelativePath are
// empty until the folder's volume has been identified.
type Folder struct {
	ID           int64     `json:"id"`
	Path         string    `json:"path"`
	VolumeID     string    `json:"volumeId,omitempty"`
	MountPoint   string    `json:"mountPoint,omitempty"`
	RelativePath string    `json:"relativePath,omitempty"`
	Active       bool      `json:"active"`
	LastScanned  time.Time `json:"lastScanned,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasVolume reports whether the folder's volume identity is known.
func (f *Folder) HasVolume() bool {
	return f.VolumeID != ""
}

// Video is one indexed video file.
type Video struct {
	ID               int64            `json:"id"`
	FolderID         int64            `json:"folderId"`
	Title            string           `json:"title"`
	FileName         string           `json:"fileName"`
	Path             string           `json:"path"`
	RelativePath     string           `json:"relativePath,omitempty"`
	VolumeID         string           `json:"volumeId,omitempty"`
	ContentKey       string           `json:"contentKey"`
	Size             int64            `json:"size"`
	ModTime          time.Time        `json:"modTime"`
	Available        bool             `json:"available"`
	ThumbnailPath    string           `json:"thumbnailPath,omitempty"`
	Duration         float64          `json:"duration,omitempty"`
	Width            int              `json:"width,omitempty"`
	Height           int              `json:"height,omitempty"`
	VideoCodec       string           `json:"videoCodec,omitempty"`
	AudioCodec       string           `json:"audioCodec,omitempty"`
	ExtractionStatus ExtractionStatus `json:"extractionStatus"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// IsLegacy reports whether the record predates volume-relative keys.
func (v *Video) IsLegacy() bool {
	return v.VolumeID == ""
}

// Extraction is the result of probing a video file.
type Extraction struct {
	Status        ExtractionStatus
	ThumbnailPath string
	Duration      float64
	Width         int
	Height        int
	VideoCodec    string
	AudioCodec    string
}

// SyncHistory summarises one reconcile run of a folder.
type SyncHistory struct {
	ID        int64 `json:"id"`
	FolderID  int64 `json:"folderId"`
	Added     int   `json:"added"`
	Updated   int   `json:"updated"`
	Unchanged int   `json:"unchanged"`
	Removed   int   `json:"removed"`
	// Disconnected runs found the folder unreachable and scanned nothing.
	Disconnected bool      `json:"disconnected"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
}
