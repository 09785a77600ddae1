package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/xcaeag/menufromproject/internal/cache"
	"github.com/xcaeag/menufromproject/internal/config"
	"github.com/xcaeag/menufromproject/internal/ctxlog"
	"github.com/xcaeag/menufromproject/internal/docstore"
	"github.com/xcaeag/menufromproject/internal/httpfetch"
	"github.com/xcaeag/menufromproject/internal/inmemoryworkspace"
	"github.com/xcaeag/menufromproject/internal/loader"
)

// Option customizes an App.
type Option func(*options)

type options struct {
	logW    io.Writer
	storage docstore.ProjectStorage
}

// WithLogWriter sends logs to w instead of the output writer.
func WithLogWriter(w io.Writer) Option {
	return func(o *options) { o.logW = w }
}

// WithProjectStorage replaces the database project storage.
func WithProjectStorage(s docstore.ProjectStorage) Option {
	return func(o *options) { o.storage = s }
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	model   *config.Model
	fetcher *httpfetch.Client
	storage docstore.ProjectStorage
	cache   *cache.Cache
	ws      *inmemoryworkspace.Workspace
	loader  *loader.Loader
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger. A projects file
// that cannot be loaded is a fatal startup error and panics.
func NewApp(outW io.Writer, appConfig *Config, cfgLoader config.Loader, opts ...Option) *App {
	o := options{logW: outW}
	for _, opt := range opts {
		opt(&o)
	}

	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, o.logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := cfgLoader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded and translated into unified model.", "projects", len(model.Projects))

	a := &App{
		outW:    outW,
		logger:  logger,
		config:  appConfig,
		model:   model,
		fetcher: httpfetch.New(appConfig.Timeout),
		storage: o.storage,
		ws:      inmemoryworkspace.New(),
	}

	if appConfig.NoCache {
		logger.Debug("Cache disabled.")
	} else {
		root := appConfig.CacheDir
		if root == "" {
			if root, err = cache.DefaultRoot(); err != nil {
				panic(err)
			}
		}
		a.cache = cache.New(root, cache.WithFetcher(a.fetcher), cache.WithValidationTimeout(appConfig.Timeout))
		logger.Debug("Cache configured.", "root", root)
	}

	a.loader = loader.New(a.ws, func() loader.Store { return a.newStore() }, model.Options)
	return a
}

// newStore opens a document store for one resolution pass or activation.
func (a *App) newStore() *docstore.Store {
	opts := []docstore.Option{docstore.WithFetcher(a.fetcher)}
	if a.storage != nil {
		opts = append(opts, docstore.WithProjectStorage(a.storage))
	}
	return docstore.New(opts...)
}

// Model returns the loaded configuration model.
func (a *App) Model() *config.Model {
	return a.model
}

// Workspace returns the workspace activations load into.
func (a *App) Workspace() *inmemoryworkspace.Workspace {
	return a.ws
}

// Close releases the shared HTTP client.
func (a *App) Close() error {
	return a.fetcher.Close()
}
