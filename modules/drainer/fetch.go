package drainer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// ErrFetch marks a failed asset download. The drainer skips the track and
// keeps polling when it sees it.
var ErrFetch = errors.New("asset fetch failed")

// Fetcher streams listen URLs into temp files.
type Fetcher struct {
	client  *http.Client
	tempDir string
	now     func() time.Time
}

func NewFetcher(client *http.Client, tempDir string) *Fetcher {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Fetcher{
		client:  client,
		tempDir: tempDir,
		now:     time.Now,
	}
}

// Fetch downloads url to a new temp file and returns its path. Download
// failures wrap ErrFetch and leave nothing behind. There is no retry.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	name := f.tempPath()
	out, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "failed to create temp file")
	}

	if err := f.download(ctx, url, out); err != nil {
		_ = out.Close()
		_ = os.Remove(name)
		return "", err
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(name)
		return "", errors.Wrap(err, "failed to close temp file")
	}
	return name, nil
}

func (f *Fetcher) download(ctx context.Context, url string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: got response code %d from CDN", ErrFetch, resp.StatusCode)
	}

	tw := &trackedWriter{w: w}
	if _, err := io.Copy(tw, resp.Body); err != nil {
		if tw.err != nil {
			return errors.Wrap(tw.err, "failed to write temp file")
		}
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return nil
}

// trackedWriter remembers the first write error so local disk failures are
// not mistaken for a broken download.
type trackedWriter struct {
	w   io.Writer
	err error
}

func (t *trackedWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}
	return n, err
}

// tempPath names a download after the current time in base-36 nanoseconds.
func (f *Fetcher) tempPath() string {
	return filepath.Join(f.tempDir, "stationdrain-"+strconv.FormatInt(f.now().UnixNano(), 36))
}
