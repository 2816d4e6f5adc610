package mediatypes

import (
	"path/filepath"
	"strings"
)

// VideoExtensions is the allow-list of video file extensions the scanner and
// the live watcher index. Keys are lowercase and include the leading dot.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".mpeg": true,
	".mpg":  true,
	".m2ts": true,
	".mts":  true,
	".ts":   true,
	".vob":  true,
	".3gp":  true,
	".ogv":  true,
}

// MimeTypes maps video extensions to their MIME types.
var MimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".m2ts": "video/mp2t",
	".mts":  "video/mp2t",
	".ts":   "video/mp2t",
	".vob":  "video/dvd",
	".3gp":  "video/3gpp",
	".ogv":  "video/ogg",
}

// IsVideoFile reports whether name has a recognized video extension.
// The comparison is case-insensitive.
func IsVideoFile(name string) bool {
	return VideoExtensions[strings.ToLower(filepath.Ext(name))]
}

// GetMimeType returns the MIME type for a file name.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(name string) string {
	if mime, ok := MimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsHidden reports whether a directory entry should be skipped: dot-files
// and the temporary names written by download clients and copy tools.
func IsHidden(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	lower := strings.ToLower(name)
	for _, suffix := range []string{".part", ".partial", ".tmp", ".crdownload", ".!qb"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// Title derives a display title from a file name by dropping the extension.
func Title(name string) string {
	title := strings.TrimSuffix(name, filepath.Ext(name))
	if title == "" {
		return name
	}
	return title
}
