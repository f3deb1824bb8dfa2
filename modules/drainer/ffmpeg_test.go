package drainer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestFFmpeg_Args(t *testing.T) {
	f := NewFFmpeg("")
	got := f.Args("/tmp/src", `songs/Late Night/Wren "the" Bird - Echo's.m4a`, Tags{
		Artist: `Wren "the" Bird`,
		Title:  "Echo's",
		Album:  "Signals",
	})

	want := []string{
		"-y",
		"-i", "/tmp/src",
		"-metadata", `artist=Wren "the" Bird`,
		"-metadata", "title=Echo's",
		"-metadata", "album=Signals",
		`songs/Late Night/Wren "the" Bird - Echo's.m4a`,
	}
	if strings.Join(got, "\x00") != strings.Join(want, "\x00") {
		t.Errorf("Args =\n%q\nwant\n%q", got, want)
	}
	if f.path != defaultFFmpegPath {
		t.Errorf("path = %q, want %q", f.path, defaultFFmpegPath)
	}
}

func TestFFmpeg_Transcode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as ffmpeg")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "ffmpeg")
	// Copies the input to the last argument and records the arguments.
	body := "#!/bin/sh\nprintf '%s\\n' \"$@\" > \"$0.args\"\neval \"dst=\\${$#}\"\ncp \"$3\" \"$dst\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(dir, "src")
	if err := os.WriteFile(src, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, `Wren - Echo "Live".m4a`)

	err := NewFFmpeg(script).Transcode(context.Background(), src, dst, Tags{Artist: "Wren", Title: `Echo "Live"`, Album: "Signals"})
	if err != nil {
		t.Fatalf("Transcode returned error: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "audio" {
		t.Fatalf("dst = %q, %v", data, err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source removed: %v", err)
	}

	args, err := os.ReadFile(script + ".args")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(args), "title=Echo \"Live\"\n") {
		t.Errorf("title not passed verbatim:\n%s", args)
	}
}

func TestFFmpeg_Failure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as ffmpeg")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "ffmpeg")
	body := "#!/bin/sh\necho 'Input #0'\necho 'src: Invalid data found when processing input' >&2\nexit 1\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}

	err := NewFFmpeg(script).Transcode(context.Background(), "src", filepath.Join(dir, "out.m4a"), Tags{})
	if err == nil {
		t.Fatal("Transcode returned nil error")
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Errorf("error = %v, want ffmpeg's last line", err)
	}
}

func TestFFmpeg_MissingBinary(t *testing.T) {
	err := NewFFmpeg(filepath.Join(t.TempDir(), "no-ffmpeg")).Transcode(context.Background(), "src", "dst", Tags{})
	if err == nil {
		t.Fatal("Transcode returned nil error")
	}
}
