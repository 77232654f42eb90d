// Package app wires the kona components together from Settings.
package app

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/handiism/kona-downloader/internal/archive"
	"github.com/handiism/kona-downloader/internal/config"
	"github.com/handiism/kona-downloader/internal/delivery"
	"github.com/handiism/kona-downloader/internal/discovery"
	"github.com/handiism/kona-downloader/internal/http"
	"github.com/handiism/kona-downloader/internal/logging"
	"github.com/handiism/kona-downloader/internal/model"
	"github.com/handiism/kona-downloader/internal/pipeline"
	"github.com/handiism/kona-downloader/internal/progress"
)

// Options customizes the wiring. The zero value uses the real disk.
type Options struct {
	// OnProgress receives pipeline events.
	OnProgress func(pipeline.ProgressEvent)
	// OnEntry receives every progress entry change.
	OnEntry func(model.Entry)

	// ScratchFs holds the archive while it is being written.
	ScratchFs afero.Fs
	// OutputFs receives the delivered archive.
	OutputFs afero.Fs
	// HTTPOptions are appended to the options derived from Settings.
	HTTPOptions []http.Option
}

// App holds the components of one downloader instance.
type App struct {
	Settings  *config.Settings
	Client    *http.Client
	Scanner   *discovery.Scanner
	Manager   *pipeline.Manager
	Deliverer *delivery.Deliverer
}

// New builds an App from settings.
//
// When no ScratchFs is given the scratch archive lives on disk and Open
// checks the volume's free space against scratch_capacity.
func New(settings *config.Settings, opts Options) *App {
	scratchOpts := []archive.ScratchOption{}
	if opts.ScratchFs == nil {
		opts.ScratchFs = afero.NewOsFs()
		scratchOpts = append(scratchOpts, archive.WithSpaceProbe(archive.DiskSpace))
	}
	if opts.OutputFs == nil {
		opts.OutputFs = afero.NewOsFs()
	}

	httpOpts := append([]http.Option{
		http.WithUserAgent(settings.UserAgent),
		http.WithTimeout(settings.FetchTimeout),
	}, opts.HTTPOptions...)
	client := http.NewClient(httpOpts...)

	scratch := archive.NewScratch(opts.ScratchFs, settings.ScratchDir, settings.ArchiveName+".part", scratchOpts...)
	tracker := progress.NewTracker(opts.OnEntry)

	return &App{
		Settings:  settings,
		Client:    client,
		Scanner:   discovery.NewScanner(settings.LinkSelector, settings.EntrySelector),
		Manager:   pipeline.NewManager(client, scratch, tracker, settings.ScratchCapacity, opts.OnProgress),
		Deliverer: delivery.New(opts.OutputFs, settings.OutputDir, settings.ArchiveName),
	}
}

// Discover loads the page at source and returns its file links.
//
// baseURL, when set, replaces the base relative links are resolved against.
// It is needed for saved pages whose links are relative.
func (a *App) Discover(ctx context.Context, source, baseURL string) ([]model.Link, error) {
	logger := logging.FromContext(logging.WithComponent(ctx, "discovery"))

	doc, base, err := discovery.LoadDocument(ctx, a.Client, source)
	if err != nil {
		return nil, err
	}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		if base, err = url.Parse(baseURL); err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
		}
	}

	if !a.Scanner.Attachable(doc) {
		logger.Warn().Str("source", source).Str("selector", a.Settings.EntrySelector).Msg("page has no file list")
	}

	links, err := a.Scanner.ScanDocument(doc, base)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("source", source).Int("links", len(links)).Msg("links discovered")
	return links, nil
}

// Download runs the pipeline over links and saves the archive.
func (a *App) Download(ctx context.Context, links []model.Link) (string, error) {
	blob, err := a.Manager.RunAll(ctx, links)
	if err != nil {
		return "", err
	}
	return a.Deliverer.Save(ctx, blob)
}

// Logger builds the logger described by settings, writing to out.
func Logger(settings *config.Settings, out io.Writer) zerolog.Logger {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(settings.LogLevel)
	if settings.Verbose && cfg.Level > zerolog.DebugLevel {
		cfg.Level = zerolog.DebugLevel
	}
	cfg.Format = settings.LogFormat
	cfg.Output = out
	return logging.New(cfg)
}
