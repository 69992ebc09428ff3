// Package app wires configuration into the services shared by the HTTP
// server, the MCP server and the CLI.
package app

import (
	"database/sql"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/hpungsan/remixer/internal/cache"
	"github.com/hpungsan/remixer/internal/config"
	"github.com/hpungsan/remixer/internal/db"
	"github.com/hpungsan/remixer/internal/logging"
	"github.com/hpungsan/remixer/internal/metrics"
	"github.com/hpungsan/remixer/internal/ops"
	"github.com/hpungsan/remixer/internal/remix"
	"github.com/hpungsan/remixer/internal/social"
)

// App holds the long-lived services. Fields are set once by New.
type App struct {
	Config  *config.Config
	BaseDir string
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	DB    *sql.DB
	Items *db.SavedItems

	Cache    *cache.TTLCache
	Fetcher  *social.Fetcher
	Resolver *social.Resolver
	Invoker  *remix.Invoker
}

// Options overrides collaborators, mainly for tests.
type Options struct {
	Logger *zap.Logger

	// Generator replaces the Anthropic adapter.
	Generator remix.Generator

	// SocialHTTPClient replaces the social API client's transport.
	SocialHTTPClient *http.Client
}

// New opens the database under baseDir and builds every service from cfg.
// The caller must Close the App.
func New(baseDir string, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		l, err := logging.New(cfg.Log)
		if err != nil {
			return nil, err
		}
		logger = l
	}

	database, err := db.Init(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	ttlCache, err := cache.New(cfg.Social.CacheTTL, cfg.Social.CacheMaxEntries)
	if err != nil {
		database.Close()
		return nil, err
	}

	m := metrics.New()

	client := social.NewClient(social.ClientConfig{
		APIBase:           cfg.Social.APIBase,
		BearerToken:       cfg.Social.BearerToken,
		Timeout:           cfg.Social.Timeout,
		RequestsPerSecond: cfg.Social.RequestsPerSecond,
		HTTPClient:        opts.SocialHTTPClient,
	})
	fetcher := social.NewFetcher(client, ttlCache, social.FetcherConfig{
		MaxRetries: cfg.Social.MaxRetries,
		BaseDelay:  cfg.Social.BaseDelay,
	}, social.WithLogger(logger.Named("social")), social.WithMetrics(m))
	resolver := social.NewResolver(fetcher,
		social.WithResolverLogger(logger.Named("thread")),
		social.WithResolverMetrics(m),
	)

	gen := opts.Generator
	if gen == nil {
		gen = remix.NewAnthropic(remix.AnthropicConfig{
			APIKey:    cfg.Generation.APIKey,
			Model:     cfg.Generation.Model,
			MaxTokens: int64(cfg.Generation.MaxTokens),
		})
	}
	invoker := remix.NewInvoker(gen,
		remix.WithLogger(logger.Named("remix")),
		remix.WithMetrics(m),
		remix.WithMaxPDFBytes(cfg.Generation.MaxPDFBytes),
	)

	return &App{
		Config:   cfg,
		BaseDir:  baseDir,
		Logger:   logger,
		Metrics:  m,
		DB:       database,
		Items:    db.NewSavedItems(database),
		Cache:    ttlCache,
		Fetcher:  fetcher,
		Resolver: resolver,
		Invoker:  invoker,
	}, nil
}

// ExportsDir is the default directory for export files.
func (a *App) ExportsDir() string {
	return ops.ExportsDir(a.BaseDir)
}

// Close flushes the logger and closes the database.
func (a *App) Close() error {
	_ = a.Logger.Sync()
	return a.DB.Close()
}
