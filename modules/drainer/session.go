package drainer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/zachfi/stationdrain/pkg/station"
)

// session is the run's view of a station: its metadata, its output
// directory and the tracks retrieved so far. ready is closed once metadata
// is applied and the directories exist; nothing is stored before that.
type session struct {
	station *station.Station
	dir     string
	ready   chan struct{}
}

func newSession(id, dir string) *session {
	return &session{
		station: station.New(id),
		dir:     dir,
		ready:   make(chan struct{}),
	}
}

// bootstrap fetches the station metadata and prepares the output tree.
func (s *session) bootstrap(ctx context.Context, client *station.Client) error {
	md, err := client.Metadata(ctx, s.station.ID)
	if err != nil {
		return errors.Wrap(err, "failed to fetch station")
	}
	s.station.Apply(md)

	if err := s.ensureDirectories(); err != nil {
		return err
	}
	close(s.ready)
	return nil
}

// wait blocks until bootstrap has completed or ctx is done.
func (s *session) wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ensureDirectories creates the root and station directories. Existing
// directories are fine.
func (s *session) ensureDirectories() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", s.dir)
	}
	dir := s.stationDir()
	err := os.Mkdir(dir, 0o755)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return errors.Wrapf(err, "failed to create %s", dir)
	}
	if info, statErr := os.Stat(dir); statErr != nil || !info.IsDir() {
		return errors.Wrapf(err, "%s exists and is not a directory", dir)
	}
	return nil
}

func (s *session) stationDir() string {
	return filepath.Join(s.dir, sanitize(s.station.Name))
}

// trackPath is where a track is stored: <dir>/<station>/<artist> - <title>.<ext>
func (s *session) trackPath(t station.Track, ext string) string {
	name := sanitize(t.Artist) + " - " + sanitize(t.Title) + "." + strings.TrimPrefix(ext, ".")
	return filepath.Join(s.stationDir(), name)
}

// sanitize makes a single path element out of name. Path separators and
// control characters become underscores, everything else is kept.
func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, name)
	switch name {
	case "", ".":
		return "_"
	case "..":
		return "__"
	}
	return name
}
