package drainer

import (
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// FFmpeg rewrites container metadata by stream-copying through ffmpeg.
type FFmpeg struct {
	path string
}

func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = defaultFFmpegPath
	}
	return &FFmpeg{path: path}
}

// Args builds the ffmpeg argument list. Every value is its own argv element
// so quotes and spaces in tags never need escaping.
func (f *FFmpeg) Args(src, dst string, tags Tags) []string {
	return []string{
		"-y",
		"-i", src,
		"-metadata", "artist=" + tags.Artist,
		"-metadata", "title=" + tags.Title,
		"-metadata", "album=" + tags.Album,
		dst,
	}
}

func (f *FFmpeg) Transcode(ctx context.Context, src, dst string, tags Tags) error {
	cmd := exec.CommandContext(ctx, f.path, f.Args(src, dst, tags)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "ffmpeg failed: %s", lastLine(out))
	}
	return nil
}

// lastLine returns the final non-empty line of ffmpeg's output, which is
// where it reports the reason for a failure.
func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
