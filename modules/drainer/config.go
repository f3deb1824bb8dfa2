package drainer

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/zachfi/zkit/pkg/util"

	"github.com/zachfi/stationdrain/pkg/station"
)

const (
	TranscoderFFmpeg = "ffmpeg"
	TranscoderID3    = "id3"

	defaultDir            = "songs"
	defaultExtension      = "m4a"
	defaultPollInterval   = 500 * time.Millisecond
	defaultRequestTimeout = 60 * time.Second
	defaultFFmpegPath     = "ffmpeg"
	defaultArtworkMaxSize = 500
)

type Config struct {
	StationID      string        `yaml:"station-id,omitempty"`
	Endpoint       string        `yaml:"endpoint,omitempty"`
	Dir            string        `yaml:"dir,omitempty"`
	TempDir        string        `yaml:"temp-dir,omitempty"`
	Extension      string        `yaml:"extension,omitempty"`
	PollInterval   time.Duration `yaml:"poll-interval,omitempty"`   // wait before every poll, including the first
	RequestTimeout time.Duration `yaml:"request-timeout,omitempty"` // per API call; asset downloads are bound only by the run
	UserAgent      string        `yaml:"user-agent,omitempty"`
	Transcoder     string        `yaml:"transcoder,omitempty"`
	FFmpegPath     string        `yaml:"ffmpeg-path,omitempty"`
	EmbedArtwork   bool          `yaml:"embed-artwork,omitempty"`
	ArtworkMaxSize int           `yaml:"artwork-max-size,omitempty"` // pixels, longest edge
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.StationID, util.PrefixConfig(prefix, "station-id"), "", "The station to drain. May also be given as the first argument or through STATION_ID.")
	f.StringVar(&cfg.Endpoint, util.PrefixConfig(prefix, "endpoint"), station.DefaultEndpoint, "Base URL of the station API.")
	f.StringVar(&cfg.Dir, util.PrefixConfig(prefix, "dir"), defaultDir, "The directory under which a folder per station is created.")
	f.StringVar(&cfg.TempDir, util.PrefixConfig(prefix, "temp-dir"), os.TempDir(), "The directory downloads are staged in before tagging.")
	f.StringVar(&cfg.Extension, util.PrefixConfig(prefix, "extension"), defaultExtension, "File extension of stored tracks.")
	f.DurationVar(&cfg.PollInterval, util.PrefixConfig(prefix, "poll-interval"), defaultPollInterval, "Delay before each request to the next-track endpoint.")
	f.DurationVar(&cfg.RequestTimeout, util.PrefixConfig(prefix, "request-timeout"), defaultRequestTimeout, "Timeout for a single station API request.")
	f.StringVar(&cfg.UserAgent, util.PrefixConfig(prefix, "user-agent"), station.DefaultUserAgent, "User-Agent sent with every request.")
	f.StringVar(&cfg.Transcoder, util.PrefixConfig(prefix, "transcoder"), TranscoderFFmpeg, "How tracks are tagged: ffmpeg or id3.")
	f.StringVar(&cfg.FFmpegPath, util.PrefixConfig(prefix, "ffmpeg-path"), defaultFFmpegPath, "Path to the ffmpeg binary.")
	f.BoolVar(&cfg.EmbedArtwork, util.PrefixConfig(prefix, "embed-artwork"), false, "Embed the track cover as front cover art (id3 transcoder only).")
	f.IntVar(&cfg.ArtworkMaxSize, util.PrefixConfig(prefix, "artwork-max-size"), defaultArtworkMaxSize, "Embedded artwork is scaled down to fit this many pixels.")
}

// Validate reports configuration that cannot produce a run.
func (cfg *Config) Validate() error {
	if cfg.StationID == "" {
		return fmt.Errorf("no station id given")
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}
	switch cfg.Transcoder {
	case TranscoderFFmpeg, TranscoderID3:
	default:
		return fmt.Errorf("unknown transcoder %q", cfg.Transcoder)
	}
	if cfg.Extension == "" {
		return fmt.Errorf("extension must not be empty")
	}
	// An ID3 header in front of anything but MP3 corrupts the container.
	if cfg.Transcoder == TranscoderID3 && !strings.EqualFold(strings.TrimPrefix(cfg.Extension, "."), "mp3") {
		return fmt.Errorf("the %s transcoder only writes mp3, got extension %q", TranscoderID3, cfg.Extension)
	}
	return nil
}
