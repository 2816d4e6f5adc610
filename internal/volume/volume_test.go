package volume

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubStrategy struct {
	mount     string
	id        string
	method    Method
	idErr     error
	locateMP  string
	found     bool
	locateErr error
	located   []string
}

func (s *stubStrategy) mountPointOf(string) (string, error) {
	if s.mount == "" {
		return "", errors.New("unknown")
	}
	return s.mount, nil
}

func (s *stubStrategy) volumeID(context.Context, string, string) (string, Method, error) {
	return s.id, s.method, s.idErr
}

func (s *stubStrategy) locate(_ context.Context, id string) (string, bool, error) {
	s.located = append(s.located, id)
	return s.locateMP, s.found, s.locateErr
}

func TestSystemIdentify(t *testing.T) {
	sys := newSystem(&stubStrategy{mount: "/media/usb", id: "ABCD-1234", method: MethodUUID})

	got := sys.Identify(context.Background(), "/media/usb/Movies")
	want := Identity{ID: "ABCD-1234", MountPoint: "/media/usb", Method: MethodUUID}
	if got != want {
		t.Errorf("Identify = %+v, want %+v", got, want)
	}
}

func TestSystemIdentifyDegrades(t *testing.T) {
	dir := t.TempDir()
	sys := newSystem(&stubStrategy{idErr: errors.New("no uuid")})

	got := sys.Identify(context.Background(), dir)
	if !got.Degraded {
		t.Fatalf("Identify = %+v, want degraded", got)
	}
	if got.ID == "" || !IsDegraded(got.ID) {
		t.Errorf("degraded id %q not recognised by IsDegraded", got.ID)
	}
	if got.Method != MethodDevice && got.Method != MethodDerived {
		t.Errorf("Method = %s, want device or derived", got.Method)
	}

	again := sys.Identify(context.Background(), dir)
	if again.ID != got.ID {
		t.Errorf("degraded identity not stable across calls: %q then %q", got.ID, again.ID)
	}
}

func TestDerivedIDIsDeterministic(t *testing.T) {
	a := derivedID("host", "/media/usb")
	b := derivedID("host", "/media/usb")
	c := derivedID("host", "/media/other")
	if a != b {
		t.Errorf("derivedID not deterministic: %q vs %q", a, b)
	}
	if a == c {
		t.Error("derivedID collides for different mount points")
	}
	if !strings.HasPrefix(a, derivedPrefix) {
		t.Errorf("derivedID %q lacks prefix", a)
	}
}

func TestSystemLocate(t *testing.T) {
	stub := &stubStrategy{locateMP: "/media/new", found: true}
	sys := newSystem(stub)
	ctx := context.Background()

	mp, found, err := sys.Locate(ctx, "ABCD-1234")
	if err != nil || !found || mp != "/media/new" {
		t.Errorf("Locate = %q, %v, %v", mp, found, err)
	}

	for _, id := range []string{"", derivedID("h", "/x"), randomPrefix + "abc"} {
		if _, found, err := sys.Locate(ctx, id); found || err != nil {
			t.Errorf("Locate(%q) = found %v, err %v; want not found", id, found, err)
		}
	}
	if len(stub.located) != 1 {
		t.Errorf("strategy consulted %d times, want 1 (unlocatable ids short-circuit)", len(stub.located))
	}

	stub.locateErr = errors.New("boom")
	if _, _, err := sys.Locate(ctx, "ABCD-1234"); err == nil {
		t.Error("Locate swallowed strategy error")
	}
}

func TestIsDegraded(t *testing.T) {
	tests := map[string]bool{
		"ABCD-1234":     false,
		"dev-8-17":      true,
		"derived-xx":    true,
		"random-xx":     true,
		"6A1C8B3E-0D57": false,
	}
	for id, want := range tests {
		if got := IsDegraded(id); got != want {
			t.Errorf("IsDegraded(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestStatic(t *testing.T) {
	s := NewStatic()
	s.Mount("vol-a", "/media/a")
	s.Mount("vol-b", "/media/a/nested")
	ctx := context.Background()

	if id := s.Identify(ctx, "/media/a/Movies/x.mkv"); id.ID != "vol-a" || id.Degraded {
		t.Errorf("Identify = %+v, want vol-a", id)
	}
	if id := s.Identify(ctx, "/media/a/nested/x.mkv"); id.ID != "vol-b" {
		t.Errorf("Identify nested = %+v, want vol-b", id)
	}
	if id := s.Identify(ctx, "/elsewhere"); !id.Degraded {
		t.Errorf("Identify unmatched = %+v, want degraded", id)
	}

	s.Unmount("vol-a")
	if _, found, _ := s.Locate(ctx, "vol-a"); found {
		t.Error("vol-a still located after Unmount")
	}
	s.Mount("vol-a", "/media/z")
	if mp, found, _ := s.Locate(ctx, "vol-a"); !found || mp != "/media/z" {
		t.Errorf("Locate after remount = %q, %v", mp, found)
	}
	if mp := s.MountPointOf("/media/z/foo"); mp != "/media/z" {
		t.Errorf("MountPointOf = %q", mp)
	}
}
