package drainer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/zachfi/stationdrain/pkg/station"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Wren", "Wren"},
		{"AC/DC", "AC_DC"},
		{`back\slash`, "back_slash"},
		{"tab\there", "tab_here"},
		{`"Quoted" Name's`, `"Quoted" Name's`},
		{"", "_"},
		{".", "_"},
		{"..", "__"},
		{"Sigur Rós", "Sigur Rós"},
	}

	for _, tt := range tests {
		if got := sanitize(tt.in); got != tt.want {
			t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSession_TrackPath(t *testing.T) {
	s := newSession("42", "songs")
	s.station.Apply(station.Metadata{Name: "Late/Night"})

	got := s.trackPath(station.Track{Artist: "Wren", Title: "Echo"}, ".m4a")
	if want := filepath.Join("songs", "Late_Night", "Wren - Echo.m4a"); got != want {
		t.Errorf("trackPath = %q, want %q", got, want)
	}

	got = s.trackPath(station.Track{Artist: `Wren "W"`, Title: "Echo's/Reprise"}, "mp3")
	if want := filepath.Join("songs", "Late_Night", `Wren "W" - Echo's_Reprise.mp3`); got != want {
		t.Errorf("trackPath = %q, want %q", got, want)
	}
}

func TestSession_EnsureDirectoriesIsIdempotent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "songs", "nested")
	s := newSession("42", root)
	s.station.Name = "Late Night"

	for i := 0; i < 2; i++ {
		if err := s.ensureDirectories(); err != nil {
			t.Fatalf("ensureDirectories #%d: %v", i+1, err)
		}
	}
	info, err := os.Stat(filepath.Join(root, "Late Night"))
	if err != nil || !info.IsDir() {
		t.Fatalf("station dir missing: %v", err)
	}
}

func TestSession_EnsureDirectoriesFailsOnFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "Late Night"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	s := newSession("42", root)
	s.station.Name = "Late Night"
	if err := s.ensureDirectories(); err == nil {
		t.Error("ensureDirectories returned nil error for a station file")
	}

	s.dir = filepath.Join(root, "Late Night", "songs")
	if err := s.ensureDirectories(); err == nil {
		t.Error("ensureDirectories returned nil error for a root under a file")
	}
}

func TestSession_WaitHonoursContext(t *testing.T) {
	s := newSession("42", t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.wait(ctx); err == nil {
		t.Fatal("wait returned nil before bootstrap")
	}

	close(s.ready)
	if err := s.wait(context.Background()); err != nil {
		t.Fatalf("wait after ready: %v", err)
	}
}
