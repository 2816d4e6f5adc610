package reconnect

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"videolib/internal/database"
	"videolib/internal/events"
	"videolib/internal/reconcile"
	"videolib/internal/volume"
)

type fixture struct {
	t        *testing.T
	db       *database.Database
	resolver *volume.Static
	rec      *reconcile.Reconciler
	mon      *Monitor
	mount    string
	folder   *database.Folder
}

// newFixture creates a library with one folder holding n videos on vol-A
// and syncs it once.
func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	if testing.Short() {
		t.Skip("sqlite integration test")
	}

	ctx := context.Background()
	db, err := database.New(ctx, filepath.Join(t.TempDir(), "lib.db"))
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		t:        t,
		db:       db,
		resolver: volume.NewStatic(),
		mount:    filepath.Join(t.TempDir(), "usb"),
	}
	f.resolver.Mount("vol-A", f.mount)
	f.rec = reconcile.New(db, f.resolver, nil)
	f.mon = New(db, f.resolver)

	dir := filepath.Join(f.mount, "Movies")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		name := filepath.Join(dir, string(rune('a'+i))+".mkv")
		if err := os.WriteFile(name, make([]byte, 100+i), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	f.folder, err = db.CreateFolder(ctx, database.Folder{Path: dir})
	if err != nil {
		t.Fatal(err)
	}
	stats, err := f.rec.SyncFolder(ctx, f.folder.ID)
	if err != nil {
		t.Fatalf("initial sync: %v", err)
	}
	if stats.Added != n {
		t.Fatalf("initial sync added %d, want %d", stats.Added, n)
	}
	return f
}

// unplug removes the drive and lets a sync notice it.
func (f *fixture) unplug() {
	f.t.Helper()
	f.resolver.Unmount("vol-A")
	if err := os.Rename(f.mount, f.mount+".away"); err != nil {
		f.t.Fatal(err)
	}
	if _, err := f.rec.SyncFolder(context.Background(), f.folder.ID); err != nil {
		f.t.Fatalf("sync while unplugged: %v", err)
	}
}

// plugIn mounts the drive again at a new place.
func (f *fixture) plugIn() string {
	f.t.Helper()
	newMount := filepath.Join(f.t.TempDir(), "usb-again")
	if err := os.Rename(f.mount+".away", newMount); err != nil {
		f.t.Fatal(err)
	}
	f.resolver.Mount("vol-A", newMount)
	return newMount
}

func (f *fixture) videos() []database.Video {
	f.t.Helper()
	v, err := f.db.FindVideosByFolder(context.Background(), f.folder.ID)
	if err != nil {
		f.t.Fatal(err)
	}
	return v
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingNotifier) Notify(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingNotifier) count(kind events.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestDisconnectReconnectCycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 5)
	before := f.videos()

	f.unplug()
	for _, v := range f.videos() {
		if v.Available {
			t.Fatalf("video %d still available after unplug", v.ID)
		}
	}

	newMount := f.plugIn()
	n := &recordingNotifier{}
	f.mon.SetNotifier(n)

	stats, err := f.mon.ScanForReconnections(context.Background())
	if err != nil {
		t.Fatalf("ScanForReconnections: %v", err)
	}
	want := Stats{DisksFound: 1, FoldersRestored: 1, VideosRestored: 5}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	after := f.videos()
	if len(after) != len(before) {
		t.Fatalf("got %d records, want %d", len(after), len(before))
	}
	for i, v := range after {
		if !v.Available {
			t.Errorf("video %d not restored", v.ID)
		}
		if v.ID != before[i].ID || v.ContentKey != before[i].ContentKey {
			t.Errorf("record %d changed identity", i)
		}
		if got := filepath.Dir(filepath.Dir(v.Path)); got != newMount {
			t.Errorf("video path %s not under %s", v.Path, newMount)
		}
	}

	folder, err := f.db.GetFolder(context.Background(), f.folder.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !folder.Active || folder.MountPoint != newMount || folder.Path != filepath.Join(newMount, "Movies") {
		t.Errorf("folder not re-anchored: %+v", folder)
	}

	if got := n.count(events.FolderReconnected); got != 1 {
		t.Errorf("folder-reconnected events = %d, want 1", got)
	}
	if got := n.count(events.VideoRestored); got != 5 {
		t.Errorf("video-restored events = %d, want 5", got)
	}

	if last, err := f.db.GetLastReconnectPass(context.Background()); err != nil || last.IsZero() {
		t.Errorf("last pass not recorded: %v %v", last, err)
	}

	// A second pass has nothing left to do.
	stats, err = f.mon.ScanForReconnections(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats != (Stats{}) {
		t.Errorf("second pass stats = %+v, want zero", stats)
	}
}

func TestReconnectCountsMissingFiles(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 3)
	f.unplug()

	if err := os.Remove(filepath.Join(f.mount+".away", "Movies", "b.mkv")); err != nil {
		t.Fatal(err)
	}
	f.plugIn()

	stats, err := f.mon.ScanForReconnections(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.VideosRestored != 2 || stats.VideosFailed != 1 {
		t.Errorf("stats = %+v, want 2 restored and 1 failed", stats)
	}
}

func TestReconnectSkipsChangedSize(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	f.unplug()

	if err := os.WriteFile(filepath.Join(f.mount+".away", "Movies", "a.mkv"), make([]byte, 4096), 0o644); err != nil {
		t.Fatal(err)
	}
	f.plugIn()

	stats, err := f.mon.ScanForReconnections(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.VideosRestored != 1 || stats.VideosFailed != 1 {
		t.Errorf("stats = %+v, want 1 restored and 1 failed", stats)
	}
}

func TestReconnectWhileStillUnplugged(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	f.unplug()

	stats, err := f.mon.ScanForReconnections(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats != (Stats{}) {
		t.Errorf("stats = %+v, want zero", stats)
	}
	for _, v := range f.videos() {
		if v.Available {
			t.Errorf("video %d available while unplugged", v.ID)
		}
	}
}

func TestReconnectRejectsDifferentVolumeAtPath(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	f.unplug()
	newMount := f.plugIn()

	// Another drive is mounted right where the folder would be.
	f.resolver.Mount("vol-B", filepath.Join(newMount, "Movies"))

	stats, err := f.mon.ScanForReconnections(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FoldersRejected != 1 || stats.FoldersRestored != 0 || stats.VideosRestored != 0 {
		t.Errorf("stats = %+v, want one rejected folder and nothing restored", stats)
	}

	folder, err := f.db.GetFolder(context.Background(), f.folder.ID)
	if err != nil {
		t.Fatal(err)
	}
	if folder.Active {
		t.Error("folder reactivated on a different volume")
	}
}

func TestReconnectMissingFolderOnReturnedVolume(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	f.unplug()

	if err := os.RemoveAll(filepath.Join(f.mount+".away", "Movies")); err != nil {
		t.Fatal(err)
	}
	f.plugIn()

	stats, err := f.mon.ScanForReconnections(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := Stats{DisksFound: 1, VideosFailed: 2}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestStaleKeyIsNotRestored(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 1)
	ctx := context.Background()
	old := f.videos()[0]

	// The size was refreshed without the key, as older installs did.
	if err := os.WriteFile(old.Path, make([]byte, 500), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := f.db.UpdateVideoFileInfo(ctx, old.ID, old.ContentKey, 500, old.ModTime); err != nil {
		t.Fatal(err)
	}
	stats, err := f.rec.SyncFolder(ctx, f.folder.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Added != 1 || stats.Removed != 1 {
		t.Fatalf("sync stats = %+v, want one added and one removed", stats)
	}

	pass, err := f.mon.ScanForReconnections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pass.VideosRestored != 0 || pass.VideosFailed != 1 {
		t.Errorf("pass stats = %+v, want nothing restored and one failed", pass)
	}

	available := 0
	for _, v := range f.videos() {
		if v.Available {
			available++
			if v.ID == old.ID {
				t.Errorf("stale record %d restored", v.ID)
			}
		}
	}
	if available != 1 {
		t.Errorf("%d available records for one file, want 1", available)
	}

	stats, err = f.rec.SyncFolder(ctx, f.folder.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Added != 0 || stats.Removed != 0 || stats.Unchanged != 1 {
		t.Errorf("resync stats = %+v, want one unchanged", stats)
	}
}
