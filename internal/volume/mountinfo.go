package volume

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"videolib/internal/pathcodec"
)

// mountEntry is one line of /proc/self/mountinfo.
type mountEntry struct {
	Major, Minor uint32
	Root         string
	MountPoint   string
	FSType       string
	Source       string
}

// parseMountInfo parses the mountinfo format described in proc(5):
//
//	36 35 98:0 /mnt1 /mnt2 rw,noatime master:1 - ext3 /dev/root rw,errors=continue
func parseMountInfo(data []byte) ([]mountEntry, error) {
	var entries []mountEntry
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		sep := -1
		for i := 6; i < len(fields); i++ {
			if fields[i] == "-" {
				sep = i
				break
			}
		}
		if len(fields) < 5 || sep < 0 || sep+2 >= len(fields) {
			return nil, fmt.Errorf("malformed mountinfo line: %q", line)
		}

		major, minor, err := parseMajorMinor(fields[2])
		if err != nil {
			return nil, fmt.Errorf("malformed device %q: %w", fields[2], err)
		}

		entries = append(entries, mountEntry{
			Major:      major,
			Minor:      minor,
			Root:       unescapeMount(fields[3]),
			MountPoint: unescapeMount(fields[4]),
			FSType:     fields[sep+1],
			Source:     unescapeMount(fields[sep+2]),
		})
	}
	return entries, sc.Err()
}

func parseMajorMinor(s string) (uint32, uint32, error) {
	maj, min, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("missing ':'")
	}
	a, err := strconv.ParseUint(maj, 10, 32)
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.ParseUint(min, 10, 32)
	if err != nil {
		return 0, 0, err
	}
	return uint32(a), uint32(b), nil
}

// unescapeMount decodes the octal escapes (\040 for space etc.) the kernel
// uses in mount paths.
func unescapeMount(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// longestMount returns the entry whose mount point is the longest prefix of
// path. Later entries win ties, since they shadow earlier mounts.
func longestMount(entries []mountEntry, path string) (mountEntry, bool) {
	var best mountEntry
	found := false
	for _, e := range entries {
		if !pathcodec.IsUnder(path, e.MountPoint) {
			continue
		}
		if !found || len(e.MountPoint) >= len(best.MountPoint) {
			best = e
			found = true
		}
	}
	return best, found
}

// entryAt returns the last entry mounted exactly at mountPoint.
func entryAt(entries []mountEntry, mountPoint string) (mountEntry, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].MountPoint == mountPoint {
			return entries[i], true
		}
	}
	return mountEntry{}, false
}

// parseDeviceID splits a "dev-<major>-<minor>" identifier.
func parseDeviceID(id string) (uint32, uint32, bool) {
	rest, ok := strings.CutPrefix(id, devicePrefix)
	if !ok {
		return 0, 0, false
	}
	maj, min, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, 0, false
	}
	a, err1 := strconv.ParseUint(maj, 10, 32)
	b, err2 := strconv.ParseUint(min, 10, 32)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return uint32(a), uint32(b), true
}
