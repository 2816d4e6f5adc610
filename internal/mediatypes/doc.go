// Package mediatypes holds the video extension allow-list and small name
// helpers shared by the scanner, the live watcher and the extraction queue.
//
// It is dependency-free so any package can import it without cycles.
//
//	if mediatypes.IsVideoFile(name) && !mediatypes.IsHidden(name) {
//	    // index it
//	}
package mediatypes
