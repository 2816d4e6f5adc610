package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"videolib/internal/database"
	"videolib/internal/events"
	"videolib/internal/library"
	"videolib/internal/reconcile"
	"videolib/internal/volume"

	"golang.org/x/term"
)

const (
	// Default timeout for single database operations
	defaultTimeout = 30 * time.Second
	// Default database directory path
	defaultDatabaseDir = "/database"
)

// app is one libctl invocation.
type app struct {
	db          *database.Database
	resolver    volume.Resolver
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer
	interactive bool
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	databaseDir := os.Getenv("DATABASE_DIR")
	if databaseDir == "" {
		databaseDir = defaultDatabaseDir
	}
	dbPath := filepath.Join(databaseDir, "library.db")

	db, err := database.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATABASE_DIR is set correctly (current: %s)\n", databaseDir)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	a := &app{
		db:          db,
		resolver:    volume.NewSystem(),
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		interactive: term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())),
	}
	if code := a.run(ctx, os.Args[1:]); code != 0 {
		db.Close()
		os.Exit(code)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "videolib library maintenance")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: libctl <command> [arguments]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  status             - Library totals and last reconnect pass")
	fmt.Fprintln(w, "  folders            - List watched folders")
	fmt.Fprintln(w, "  add <path>         - Register a folder")
	fmt.Fprintln(w, "  remove [-y] <id>   - Remove a folder and its videos")
	fmt.Fprintln(w, "  sync <id|all>      - Sync one folder or every folder")
	fmt.Fprintln(w, "  history <id>       - Recent syncs of a folder")
	fmt.Fprintln(w, "  reconnect          - Look for returning volumes now")
	fmt.Fprintln(w, "  identify <path>    - Show the volume identity of a path")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  DATABASE_DIR - Path to database directory (default: %s)\n", defaultDatabaseDir)
}

// run executes args and returns the exit code.
func (a *app) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		printUsage(a.stdout)
		return 1
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "status":
		err = a.status(ctx)
	case "folders":
		err = a.folders(ctx)
	case "add":
		err = a.add(ctx, rest)
	case "remove":
		err = a.remove(ctx, rest)
	case "sync":
		err = a.sync(ctx, rest)
	case "history":
		err = a.history(ctx, rest)
	case "reconnect":
		err = a.reconnect(ctx)
	case "identify":
		err = a.identify(ctx, rest)
	case "help", "-h", "--help":
		printUsage(a.stdout)
	default:
		fmt.Fprintf(a.stderr, "Unknown command: %s\n", sanitizeCommand(cmd))
		printUsage(a.stderr)
		return 1
	}

	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// sanitizeCommand returns a safe representation of a command string for display.
// Anything outside [a-zA-Z0-9_-] is replaced with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func (a *app) library() *library.Library {
	lib := library.New(a.db, a.resolver, library.Config{})
	lib.SetNotifier(&progressPrinter{w: a.stdout, interactive: a.interactive})
	return lib
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New("expected a folder id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid folder id %q", args[0])
	}
	return id, nil
}

func (a *app) status(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	stats, err := a.db.CalculateStats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Folders:            %d (%d active)\n", stats.TotalFolders, stats.ActiveFolders)
	fmt.Fprintf(a.stdout, "Videos:             %d (%d available)\n", stats.TotalVideos, stats.AvailableVideos)
	fmt.Fprintf(a.stdout, "Pending extraction: %d\n", stats.PendingExtraction)

	last, err := a.db.GetLastReconnectPass(ctx)
	if err != nil {
		return err
	}
	if last.IsZero() {
		fmt.Fprintln(a.stdout, "Last reconnect:     never")
	} else {
		fmt.Fprintf(a.stdout, "Last reconnect:     %s\n", last.Local().Format(time.RFC3339))
	}
	return nil
}

func (a *app) folders(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	folders, err := a.db.ListFolders(ctx)
	if err != nil {
		return err
	}
	if len(folders) == 0 {
		fmt.Fprintln(a.stdout, "No folders registered.")
		return nil
	}
	for _, f := range folders {
		state := "active"
		if !f.Active {
			state = "disconnected"
		}
		vol := f.VolumeID
		if vol == "" {
			vol = "(unidentified)"
		}
		fmt.Fprintf(a.stdout, "%4d  %-12s  %s  [%s]\n", f.ID, state, f.Path, vol)
	}
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("expected a folder path")
	}
	f, err := a.library().AddFolder(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Folder %d registered at %s (volume %s)\n", f.ID, f.Path, f.VolumeID)
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	yes := false
	if len(args) > 0 && args[0] == "-y" {
		yes, args = true, args[1:]
	}
	id, err := parseID(args)
	if err != nil {
		return err
	}

	f, err := a.db.GetFolder(ctx, id)
	if err != nil {
		return fmt.Errorf("folder %d: %w", id, err)
	}

	if !yes {
		if !a.interactive {
			return errors.New("refusing to remove without -y when not on a terminal")
		}
		fmt.Fprintf(a.stdout, "Remove folder %d (%s) and all its videos? [y/N] ", f.ID, f.Path)
		answer, _ := bufio.NewReader(a.stdin).ReadString('\n')
		if ans := strings.ToLower(strings.TrimSpace(answer)); ans != "y" && ans != "yes" {
			fmt.Fprintln(a.stdout, "Aborted.")
			return nil
		}
	}

	if err := a.library().RemoveFolder(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Folder %d removed.\n", id)
	return nil
}

func (a *app) sync(ctx context.Context, args []string) error {
	lib := a.library()

	if len(args) == 1 && args[0] == "all" {
		synced, failed, err := lib.SyncAll(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "%d folders synced, %d failed\n", synced, failed)
		if failed > 0 {
			return fmt.Errorf("%d folders failed to sync", failed)
		}
		return nil
	}

	id, err := parseID(args)
	if err != nil {
		return err
	}
	stats, err := lib.SyncFolder(ctx, id)
	var mismatch *reconcile.MismatchError
	if errors.As(err, &mismatch) {
		fmt.Fprintf(a.stderr, "Folder %d is recorded on volume %s, but %s is now on volume %s.\n",
			mismatch.FolderID, mismatch.Recorded, mismatch.Path, mismatch.Live)
		fmt.Fprintln(a.stderr, "Remove the folder and add it again if this is intended.")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%d added, %d updated, %d unchanged, %d removed\n",
		stats.Added, stats.Updated, stats.Unchanged, stats.Removed)
	return nil
}

func (a *app) history(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	history, err := a.db.ListSyncHistory(ctx, id, 20)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintln(a.stdout, "No syncs recorded.")
		return nil
	}
	for _, h := range history {
		note := ""
		if h.Disconnected {
			note = "  (not reachable)"
		}
		fmt.Fprintf(a.stdout, "%s  %6s  +%d ~%d =%d -%d%s\n",
			h.StartedAt.Local().Format("2006-01-02 15:04:05"),
			h.FinishedAt.Sub(h.StartedAt).Round(time.Millisecond),
			h.Added, h.Updated, h.Unchanged, h.Removed, note)
	}
	return nil
}

func (a *app) reconnect(ctx context.Context) error {
	lib := a.library()
	stats, err := lib.Reconnect(ctx)
	if err != nil {
		return err
	}
	// Reconnected folders are resynced in the background.
	lib.Wait()
	fmt.Fprintf(a.stdout, "%d volumes found, %d folders restored, %d rejected, %d videos restored, %d still missing\n",
		stats.DisksFound, stats.FoldersRestored, stats.FoldersRejected, stats.VideosRestored, stats.VideosFailed)
	return nil
}

func (a *app) identify(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("expected a path")
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}

	id := a.resolver.Identify(ctx, path)
	fmt.Fprintf(a.stdout, "Volume:      %s\n", id.ID)
	fmt.Fprintf(a.stdout, "Mount point: %s\n", id.MountPoint)
	fmt.Fprintf(a.stdout, "Method:      %s\n", id.Method)
	if id.Degraded {
		fmt.Fprintln(a.stdout, "Warning: this identity is not portable; the volume will not be recognised under another mount point.")
	}
	return nil
}

// progressPrinter shows sync progress. On a terminal the count is redrawn
// in place; otherwise only completions are printed.
type progressPrinter struct {
	w           io.Writer
	interactive bool
}

func (p *progressPrinter) Notify(e events.Event) {
	switch e.Kind {
	case events.SyncProgress:
		if p.interactive {
			fmt.Fprintf(p.w, "\r  scanning folder %d: %d videos", e.FolderID, e.Count)
		}
	case events.SyncComplete:
		if p.interactive {
			fmt.Fprint(p.w, "\r\033[K")
		}
		fmt.Fprintf(p.w, "Folder %d: +%d ~%d =%d -%d\n", e.FolderID, e.Added, e.Updated, e.Unchanged, e.Removed)
	case events.FolderReconnected:
		fmt.Fprintf(p.w, "Folder %d reconnected at %s\n", e.FolderID, e.Path)
	}
}
