package main

import (
	"errors"
	"flag"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/grafana/dskit/flagext"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/version"

	"github.com/zachfi/zkit/pkg/tracing"

	"github.com/zachfi/stationdrain/app"
)

const appName = "stationdrain"

// Version is set via build flag -ldflags -X main.Version
var (
	Version  string
	Branch   string
	Revision string
)

func init() {
	version.Version = Version
	version.Branch = Branch
	version.Revision = Revision
	prometheus.MustRegister(version.NewCollector(appName))
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load .env", "err", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(os.Args[1:], flag.CommandLine)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	level := new(slog.LevelVar)
	l, _ := app.ParseLevel(cfg.LogLevel)
	level.Set(l)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	shutdownTracer, err := tracing.InstallOpenTelemetryTracer(&cfg.Tracing, logger, appName, Version)
	if err != nil {
		logger.Error("error initialising tracer", "err", err)
		os.Exit(1)
	}

	a, err := app.New(*cfg, logger)
	if err != nil {
		logger.Error("failed to create", "app", appName, "err", err)
		shutdownTracer()
		os.Exit(1)
	}

	if err := a.Run(); err != nil {
		logger.Error("error running", "app", appName, "err", err)
		shutdownTracer()
		os.Exit(1)
	}

	shutdownTracer()
}

// loadConfig applies flag defaults, then the config file, then the command
// line. The station id may also come from the first positional argument or
// the environment.
func loadConfig(args []string, f *flag.FlagSet) (*app.Config, error) {
	const (
		configFileOption = "config.file"
	)

	var configFile string

	config := &app.Config{}

	// first get the config file
	cf := flag.NewFlagSet("", flag.ContinueOnError)
	cf.SetOutput(io.Discard)

	cf.StringVar(&configFile, configFileOption, "", "")

	// Try to find -config.file. As Parsing stops on the first error, eg. unknown flag,
	// we simply try remaining parameters until we find config flag, or there are no params left.
	for rest := args; len(rest) > 0; rest = rest[1:] {
		_ = cf.Parse(rest)
	}

	// load config defaults and register flags
	config.RegisterFlagsAndApplyDefaults("", f)

	// overlay with config file if provided
	if configFile != "" {
		if err := app.LoadFile(configFile, config); err != nil {
			return nil, err
		}
	}

	// overlay with cli
	flagext.IgnoredFlag(f, configFileOption, "Configuration file to load")
	if err := f.Parse(args); err != nil {
		return nil, err
	}

	if config.Drainer.StationID == "" {
		config.Drainer.StationID = fallbackStationID(f.Args())
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func fallbackStationID(positional []string) string {
	if len(positional) > 0 {
		return positional[0]
	}
	for _, key := range []string{"STATION_ID", "PLAYLIST_ID"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
