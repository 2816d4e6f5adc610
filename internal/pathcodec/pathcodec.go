// Package pathcodec converts between absolute paths and paths rooted at a
// volume's mount point.
//
// Relative paths always use '/' and always start with '/', so "/Movies/a.mkv"
// means "Movies/a.mkv at the root of whatever volume this is". Reconstructing
// with the volume's current mount point yields the file's current absolute
// path, which is what lets records survive a remount.
//
// All functions are pure string manipulation and never touch the disk.
package pathcodec

import (
	"path"
	"path/filepath"
	"strings"
)

// Separator is the canonical separator of normalized and relative paths.
const Separator = "/"

// Normalize converts every backslash to '/' and cleans the result.
// The empty string stays empty.
func Normalize(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(strings.ReplaceAll(p, `\`, Separator))
}

// RelativeTo returns absolutePath relative to mountPoint, rooted with a
// leading '/'. If absolutePath is not under mountPoint the normalized
// absolute path is returned rooted instead, so the result never contains "..".
func RelativeTo(absolutePath, mountPoint string) string {
	p := Normalize(absolutePath)
	m := Normalize(mountPoint)

	if m == "" || m == Separator || m == "." {
		return rooted(p)
	}

	if len(p) == len(m) && strings.EqualFold(p, m) {
		return Separator
	}

	prefix := m
	if !strings.HasSuffix(prefix, Separator) {
		prefix += Separator
	}
	if len(p) > len(prefix) && hasPrefixFold(p, prefix) {
		return Separator + p[len(prefix):]
	}

	return rooted(p)
}

// Reconstruct is the inverse of RelativeTo: it joins relativePath onto the
// normalized mount point.
func Reconstruct(mountPoint, relativePath string) string {
	m := Normalize(mountPoint)
	rel := strings.TrimLeft(Normalize(relativePath), Separator)
	if rel == "." {
		rel = ""
	}

	switch {
	case m == "" || m == ".":
		return Separator + rel
	case rel == "":
		return m
	case strings.HasSuffix(m, Separator):
		return m + rel
	default:
		return m + Separator + rel
	}
}

// Native converts a normalized path to the host's separator.
func Native(p string) string {
	return filepath.FromSlash(p)
}

// IsUnder reports whether absolutePath is mountPoint or lies beneath it.
func IsUnder(absolutePath, mountPoint string) bool {
	p := Normalize(absolutePath)
	m := Normalize(mountPoint)
	if m == Separator {
		return strings.HasPrefix(p, Separator)
	}
	if strings.EqualFold(p, m) {
		return true
	}
	return hasPrefixFold(p, strings.TrimSuffix(m, Separator)+Separator)
}

func rooted(p string) string {
	// Drive-letter paths ("C:/x") become "/C:/x" so the result is still rooted.
	return Separator + strings.TrimLeft(p, Separator)
}

// hasPrefixFold compares case-insensitively, which only matters for
// Windows drive letters and case-insensitive volumes.
func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && (s[:len(prefix)] == prefix || strings.EqualFold(s[:len(prefix)], prefix))
}
