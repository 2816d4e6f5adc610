// Package reconnect watches for removable volumes coming back. A pass looks
// up every volume that has missing videos; when one is mounted again,
// possibly under a new mount point, its folders are re-anchored and the
// missing videos restored from their volume-relative paths.
//
// A folder whose reconstructed path turns out to be on a different volume is
// never reattached.
package reconnect
