// Package contentkey derives the key that decides whether two observations
// of a file are the same file.
//
// A key is the hex MD5 of "<volumeID>-<relativePath>-<size>". Because none of
// the inputs depend on where the volume is mounted, a file keeps its key when
// its drive comes back under a different mount point. MD5 is used as a
// deduplication digest here, not as a security boundary.
package contentkey

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
)

// Length is the length of a key in hex characters.
const Length = md5.Size * 2

// Derive returns the content key for a file identified by its volume, its
// path relative to the volume's mount point and its size in bytes.
func Derive(volumeID, relativePath string, size int64) string {
	rel := strings.ReplaceAll(relativePath, `\`, "/")
	return digest(volumeID + "-" + rel + "-" + strconv.FormatInt(size, 10))
}

// DeriveLegacy reproduces the key format used before volume identities were
// recorded (absolute path and size only). It exists so migration code can
// recognise old rows; new records never use it.
func DeriveLegacy(absolutePath string, size int64) string {
	return digest(absolutePath + "-" + strconv.FormatInt(size, 10))
}

// IsKey reports whether s looks like a key produced by this package.
func IsKey(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func digest(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
