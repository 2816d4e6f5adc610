// Package main provides libctl, a maintenance tool that works on the
// library database directly.
//
// It can register, sync and remove folders, run a reconnect pass and show
// the volume identity of any path, without going through the server. Sync
// progress is redrawn in place when stdout is a terminal, and removing a
// folder asks for confirmation unless -y is given.
package main
