package drainer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/grafana/dskit/modules"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zachfi/zkit/pkg/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/zachfi/stationdrain/pkg/station"
)

var module = "drainer"

// Drainer polls a station until it runs dry, storing every track it is
// handed. It handles one track at a time.
type Drainer struct {
	services.Service
	cfg    *Config
	logger *slog.Logger
	tracer trace.Tracer

	httpClient *http.Client
	client     *station.Client
	fetcher    *Fetcher
	transcoder Transcoder
	metrics    *metrics
}

type Option func(*Drainer)

// WithTranscoder replaces the transcoder selected by the config.
func WithTranscoder(t Transcoder) Option {
	return func(d *Drainer) { d.transcoder = t }
}

// WithHTTPClient replaces the client shared by API calls and downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Drainer) { d.httpClient = c }
}

// New creates and returns a new Drainer.
func New(cfg Config, logger *slog.Logger, reg prometheus.Registerer, opts ...Option) (*Drainer, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Extension == "" {
		cfg.Extension = defaultExtension
	}

	d := &Drainer{
		cfg:     &cfg,
		logger:  logger.With("module", module),
		tracer:  otel.Tracer(module),
		metrics: newMetrics(reg),
	}
	for _, o := range opts {
		o(d)
	}

	if d.httpClient == nil {
		c, err := station.NewHTTPClient(cfg.UserAgent)
		if err != nil {
			return nil, err
		}
		d.httpClient = c
	}

	client, err := station.NewClient(cfg.Endpoint, d.httpClient, cfg.RequestTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create station client")
	}
	d.client = client
	d.fetcher = NewFetcher(d.httpClient, cfg.TempDir)

	if d.transcoder == nil {
		t, err := NewTranscoder(cfg)
		if err != nil {
			return nil, err
		}
		d.transcoder = t
	}

	d.Service = services.NewBasicService(nil, d.running, d.stopping)

	return d, nil
}

func (d *Drainer) running(ctx context.Context) error {
	n, err := d.Drain(ctx)
	if err != nil {
		if ctx.Err() != nil {
			d.logger.Info("interrupted", "tracks", n)
			return nil
		}
		return err
	}

	// The station is exhausted; take the rest of the process down with us.
	return modules.ErrStopProcess
}

func (d *Drainer) stopping(_ error) error {
	d.logger.Info("stopping")
	return nil
}

// Drain runs one station to completion and returns the number of tracks
// retrieved. Fetching the station metadata runs alongside the first poll; a
// failure of either ends the run.
func (d *Drainer) Drain(ctx context.Context) (int, error) {
	s := newSession(d.cfg.StationID, d.cfg.Dir)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.bootstrap(gctx, d.client); err != nil {
			return err
		}
		d.logger.Info("station ready", "name", s.station.Name, "description", s.station.Description, "dir", s.stationDir())
		return nil
	})

	var total int
	g.Go(func() error {
		n, err := d.poll(gctx, s)
		total = n
		return err
	})

	err := g.Wait()
	return total, err
}

func (d *Drainer) poll(ctx context.Context, s *session) (int, error) {
	var n int

	timer := time.NewTimer(d.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return n, ctx.Err()
		case <-timer.C:
		}

		outcome, err := d.next(ctx, s.station.ID)
		if err != nil {
			return n, err
		}

		switch outcome.Kind {
		case station.OutcomeEnd:
			d.logger.Info(fmt.Sprintf("retrieved %d tracks from API", n), "message", outcome.Message)
			return n, nil
		case station.OutcomeError:
			return n, outcome.Err()
		}

		n = s.station.Add(outcome.Track)
		d.logger.Info(fmt.Sprintf("%d. %s", n, outcome.Track))

		if err := d.process(ctx, s, outcome.Track, outcome.ListenURL); err != nil {
			return n, err
		}

		timer.Reset(d.cfg.PollInterval)
	}
}

func (d *Drainer) next(ctx context.Context, id string) (outcome station.Outcome, err error) {
	ctx, span := d.tracer.Start(ctx, "Drainer.next")
	defer func() { _ = tracing.ErrHandler(span, err, "poll failed", nil) }()

	outcome, err = d.client.Next(ctx, id)
	if err != nil {
		d.metrics.polls.WithLabelValues("failed").Inc()
		return outcome, err
	}
	d.metrics.polls.WithLabelValues(outcome.Kind.String()).Inc()
	span.SetAttributes(attribute.String("outcome", outcome.Kind.String()))

	return outcome, nil
}

// process fetches and stores one track. A failed download is logged and
// skipped. Anything that goes wrong after that ends the run and leaves the
// downloaded file where it is.
func (d *Drainer) process(ctx context.Context, s *session, track station.Track, listenURL string) (err error) {
	ctx, span := d.tracer.Start(ctx, "Drainer.process", trace.WithAttributes(
		attribute.String("track", track.String()),
	))
	defer func() { _ = tracing.ErrHandler(span, err, "failed to store track", nil) }()

	src, err := d.fetcher.Fetch(ctx, listenURL)
	if err != nil {
		if errors.Is(err, ErrFetch) {
			d.logger.Warn("skipping track", "track", track.String(), "err", err)
			d.metrics.tracks.WithLabelValues("skipped").Inc()
			return nil
		}
		return err
	}

	if err := s.wait(ctx); err != nil {
		_ = os.Remove(src)
		return err
	}

	dst := s.trackPath(track, d.cfg.Extension)
	tags := Tags{
		Artist: track.Artist,
		Title:  track.Title,
		Album:  track.Album,
	}

	if d.cfg.EmbedArtwork && track.CoverURL != "" {
		art, err := fetchArtwork(ctx, d.httpClient, track.CoverURL, d.cfg.ArtworkMaxSize)
		if err != nil {
			d.logger.Warn("no artwork for track", "track", track.String(), "err", err)
		} else {
			tags.Artwork = art
		}
	}

	start := time.Now()
	if err := d.transcoder.Transcode(ctx, src, dst, tags); err != nil {
		return errors.Wrapf(err, "failed to tag %q, download kept at %s", track.String(), src)
	}
	d.metrics.transcodeDuration.Observe(time.Since(start).Seconds())

	if err := os.Remove(src); err != nil {
		return errors.Wrap(err, "failed to remove temp file")
	}

	d.metrics.tracks.WithLabelValues("stored").Inc()
	d.logger.Debug("stored track", "path", dst)
	return nil
}
