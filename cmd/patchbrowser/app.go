package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tsanders/patchbrowser/internal/logging"
	"github.com/tsanders/patchbrowser/pkg/browser"
	"github.com/tsanders/patchbrowser/pkg/config"
	"github.com/tsanders/patchbrowser/pkg/feed"
)

// app bundles what every command needs: resolved configuration, a logger and
// a controller wired to both feeds.
type app struct {
	cfg        *config.Config
	log        *zap.Logger
	controller *browser.Controller
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	fetcher := feed.NewSourceFetcher(cfg.Feeds.Timeout, cfg.Feeds.CacheBust)
	patches := feed.NewPatchLoader(feed.PatchOptions{
		Source:      cfg.Feeds.Patches,
		Fetcher:     fetcher,
		MinInterval: cfg.Feeds.MinInterval,
		Logger:      log,
	})
	sw := feed.NewSoftwareLoader(feed.SoftwareOptions{
		Source:  cfg.Feeds.Software,
		Fetcher: fetcher,
		Logger:  log,
	})

	return &app{
		cfg:        cfg,
		log:        log,
		controller: browser.NewController(browser.NewState(), patches, sw, log),
	}, nil
}

// loadConfig reads --config or the discovered config file and applies the
// persistent flag overrides.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.LoadOrDefault()
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if patchesFeed != "" {
		cfg.Feeds.Patches = patchesFeed
	}
	if softwareFeed != "" {
		cfg.Feeds.Software = softwareFeed
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}
