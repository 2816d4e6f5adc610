// Package scanner walks a watched folder and yields the video files in it,
// each with its volume-relative path and content key.
package scanner
