package contentkey

import (
	"crypto/md5"
	"encoding/hex"
	"testing"
)

func TestDeriveIsDeterministic(t *testing.T) {
	a := Derive("1234-ABCD", "/Movies/a.mkv", 1048576)
	b := Derive("1234-ABCD", "/Movies/a.mkv", 1048576)
	if a != b {
		t.Fatalf("same inputs produced %q and %q", a, b)
	}
	if !IsKey(a) {
		t.Errorf("%q is not a valid key", a)
	}
}

func TestDeriveChangesWithEachInput(t *testing.T) {
	base := Derive("vol-a", "/Movies/a.mkv", 100)

	variants := map[string]string{
		"volume": Derive("vol-b", "/Movies/a.mkv", 100),
		"path":   Derive("vol-a", "/Movies/b.mkv", 100),
		"size":   Derive("vol-a", "/Movies/a.mkv", 101),
	}
	for name, k := range variants {
		if k == base {
			t.Errorf("changing the %s did not change the key", name)
		}
	}
}

func TestDeriveNormalizesSeparators(t *testing.T) {
	if Derive("v", `\Movies\a.mkv`, 1) != Derive("v", "/Movies/a.mkv", 1) {
		t.Error("backslash and slash relative paths must produce the same key")
	}
}

func TestDeriveMatchesDocumentedFormat(t *testing.T) {
	sum := md5.Sum([]byte("vol-1-/Movies/a.mkv-42"))
	want := hex.EncodeToString(sum[:])
	if got := Derive("vol-1", "/Movies/a.mkv", 42); got != want {
		t.Errorf("Derive() = %q, want %q", got, want)
	}
}

func TestDeriveLegacyDiffersFromDerive(t *testing.T) {
	legacy := DeriveLegacy("/media/usb/Movies/a.mkv", 100)
	if !IsKey(legacy) {
		t.Fatalf("legacy key %q is not a valid key", legacy)
	}
	if legacy == Derive("", "/media/usb/Movies/a.mkv", 100) {
		t.Error("legacy and volume keys must not collide for the same path")
	}
	if legacy != DeriveLegacy("/media/usb/Movies/a.mkv", 100) {
		t.Error("legacy key is not deterministic")
	}
}

func TestIsKey(t *testing.T) {
	tests := map[string]bool{
		"0123456789abcdef0123456789abcdef":  true,
		"0123456789ABCDEF0123456789abcdef":  false,
		"0123456789abcdef0123456789abcde":   false,
		"0123456789abcdef0123456789abcdefa": false,
		"g123456789abcdef0123456789abcdef":  false,
		"":                                  false,
	}
	for in, want := range tests {
		if got := IsKey(in); got != want {
			t.Errorf("IsKey(%q) = %v, want %v", in, got, want)
		}
	}
}
