package drainer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func newTestFetcher(t *testing.T, handler http.HandlerFunc) (*Fetcher, string, string) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	f := NewFetcher(&http.Client{Transport: &http.Transport{DisableKeepAlives: true}}, dir)
	return f, dir, server.URL + "/track.m4a"
}

func TestFetcher_WritesTempFile(t *testing.T) {
	f, dir, url := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("audio"))
	})
	now := time.Unix(1700000000, 123)
	f.now = func() time.Time { return now }

	path, err := f.Fetch(context.Background(), url)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	want := filepath.Join(dir, "stationdrain-"+strconv.FormatInt(now.UnixNano(), 36))
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "audio" {
		t.Errorf("content = %q, want %q", data, "audio")
	}
}

func TestFetcher_FailuresAreFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name:    "dropped connection",
			handler: dropConnection,
		},
		{
			name: "truncated body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Length", "100")
				_, _ = w.Write([]byte("short"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, dir, url := newTestFetcher(t, tt.handler)

			_, err := f.Fetch(context.Background(), url)
			if !errors.Is(err, ErrFetch) {
				t.Fatalf("error = %v, want ErrFetch", err)
			}
			if left := tempFiles(t, dir); len(left) != 0 {
				t.Errorf("partial files left behind: %v", left)
			}
		})
	}
}

func TestFetcher_MissingTempDirIsNotAFetchError(t *testing.T) {
	f, dir, url := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("audio"))
	})
	f.tempDir = filepath.Join(dir, "missing")

	_, err := f.Fetch(context.Background(), url)
	if err == nil {
		t.Fatal("Fetch returned nil error")
	}
	if errors.Is(err, ErrFetch) {
		t.Errorf("error = %v, should not be absorbed as a fetch failure", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("file too large")
}

func TestFetcher_WriteFailureIsNotAFetchError(t *testing.T) {
	f, _, url := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 1<<20))
	})

	err := f.download(context.Background(), url, failingWriter{})
	if err == nil {
		t.Fatal("download returned nil error")
	}
	if errors.Is(err, ErrFetch) {
		t.Errorf("error = %v, should not be absorbed as a fetch failure", err)
	}
	if !strings.Contains(err.Error(), "file too large") {
		t.Errorf("error = %v, want the write error", err)
	}
}
