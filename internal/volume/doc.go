// Package volume derives stable identifiers for storage volumes and finds
// where a known volume is currently mounted.
//
// On Linux the identifier is the filesystem UUID, read from
// /dev/disk/by-uuid or blkid, with mount points taken from
// /proc/self/mountinfo. On macOS it is the "Volume UUID" reported by
// diskutil. On Windows it is the volume serial number in XXXX-XXXX form.
//
// When none of those is available the identity is degraded: first the
// device number, then a name-based UUID over host and mount point, then a
// random UUID. Degraded identities are logged and counted because a folder
// anchored to one will not be recognised after the drive is remounted.
package volume
