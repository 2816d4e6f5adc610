package volume

import (
	"bufio"
	"bytes"
	"strings"
)

// parseDiskutilInfo turns the "Key: Value" lines printed by
// `diskutil info` into a map. Section headers and blank lines are ignored.
func parseDiskutilInfo(out []byte) map[string]string {
	info := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		info[key] = strings.TrimSpace(value)
	}
	return info
}
