package pathcodec

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"/media/usb/", "/media/usb"},
		{"/media//usb/./Movies/../Shows", "/media/usb/Shows"},
		{`E:\Videos\Clips`, "E:/Videos/Clips"},
		{`E:\`, "E:"},
		{"/", "/"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRelativeTo(t *testing.T) {
	tests := []struct {
		name, abs, mount, want string
	}{
		{"posix nested", "/media/usb/Movies/a.mkv", "/media/usb", "/Movies/a.mkv"},
		{"trailing slash mount", "/media/usb/Movies/a.mkv", "/media/usb/", "/Movies/a.mkv"},
		{"root mount", "/home/me/v.mp4", "/", "/home/me/v.mp4"},
		{"mount itself", "/media/usb", "/media/usb", "/"},
		{"windows drive", `E:\Videos\a.mp4`, `E:\`, "/Videos/a.mp4"},
		{"windows drive case", `e:\Videos\a.mp4`, `E:\`, "/Videos/a.mp4"},
		{"macos volume", "/Volumes/Backup Drive/Films/x.mov", "/Volumes/Backup Drive", "/Films/x.mov"},
		{"sibling prefix is not a parent", "/media/usb2/a.mkv", "/media/usb", "/media/usb2/a.mkv"},
		{"outside mount", "/srv/a.mkv", "/media/usb", "/srv/a.mkv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RelativeTo(tt.abs, tt.mount)
			if got != tt.want {
				t.Errorf("RelativeTo(%q, %q) = %q, want %q", tt.abs, tt.mount, got, tt.want)
			}
			if !strings.HasPrefix(got, "/") || strings.Contains(got, "..") {
				t.Errorf("RelativeTo result %q is not a rooted path", got)
			}
		})
	}
}

func TestReconstruct(t *testing.T) {
	tests := []struct {
		mount, rel, want string
	}{
		{"/media/usb2", "/Movies/a.mkv", "/media/usb2/Movies/a.mkv"},
		{"/", "/home/me/v.mp4", "/home/me/v.mp4"},
		{`F:\`, "/Videos/a.mp4", "F:/Videos/a.mp4"},
		{"/media/usb", "/", "/media/usb"},
		{"/media/usb/", "Movies/a.mkv", "/media/usb/Movies/a.mkv"},
		{"", "/a.mkv", "/a.mkv"},
	}
	for _, tt := range tests {
		if got := Reconstruct(tt.mount, tt.rel); got != tt.want {
			t.Errorf("Reconstruct(%q, %q) = %q, want %q", tt.mount, tt.rel, got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []struct{ mount, abs string }{
		{"/media/usb", "/media/usb/Movies/2020/a.mkv"},
		{"/media/usb", "/media/usb"},
		{"/", "/var/lib/videos/x.mp4"},
		{`D:\`, `D:\Films\Old\b.avi`},
		{"/Volumes/My Passport", "/Volumes/My Passport/clips/ü.mov"},
		{"/mnt/a/", "/mnt/a//b/./c.ts"},
	}
	for _, c := range cases {
		rel := RelativeTo(c.abs, c.mount)
		got := Reconstruct(c.mount, rel)
		if got != Normalize(c.abs) {
			t.Errorf("round trip of %q under %q: rel=%q reconstructed=%q want %q",
				c.abs, c.mount, rel, got, Normalize(c.abs))
		}
	}
}

func TestRemountKeepsRelativePath(t *testing.T) {
	rel := RelativeTo("/media/alice/USB/Movies/a.mkv", "/media/alice/USB")
	moved := Reconstruct("/run/media/alice/USB1", rel)
	if moved != "/run/media/alice/USB1/Movies/a.mkv" {
		t.Errorf("reconstructed path on new mount = %q", moved)
	}
}

func TestIsUnder(t *testing.T) {
	tests := []struct {
		abs, mount string
		want       bool
	}{
		{"/media/usb/a", "/media/usb", true},
		{"/media/usb", "/media/usb", true},
		{"/media/usb2/a", "/media/usb", false},
		{"/anything", "/", true},
		{`C:\x`, `c:\`, true},
	}
	for _, tt := range tests {
		if got := IsUnder(tt.abs, tt.mount); got != tt.want {
			t.Errorf("IsUnder(%q, %q) = %v, want %v", tt.abs, tt.mount, got, tt.want)
		}
	}
}
