package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/xcaeag/menufromproject/internal/config"
	"github.com/xcaeag/menufromproject/internal/ctxlog"
	"github.com/xcaeag/menufromproject/internal/menuconf"
	"github.com/xcaeag/menufromproject/internal/resolver"
)

// Result is the outcome of resolving one project.
type Result struct {
	Descriptor  *config.ProjectDescriptor
	Config      *menuconf.MenuProjectConfig
	FromCache   bool
	Diagnostics []resolver.Diagnostic
	// Err is set for invalid projects; Config is then nil.
	Err error
}

// Valid reports whether the project resolved.
func (r Result) Valid() bool { return r.Config != nil }

// Resolve resolves every configured project, in parallel up to the worker
// count. A failing project is reported invalid without affecting the others.
// Results keep the descriptor order.
func (a *App) Resolve(ctx context.Context) []Result {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	projects := a.model.Projects
	results := make([]Result, len(projects))

	var g errgroup.Group
	g.SetLimit(a.config.WorkerCount)
	for i, d := range projects {
		i, d := i, d
		g.Go(func() error {
			results[i] = a.resolveProject(ctx, d)
			return nil
		})
	}
	_ = g.Wait()

	valid := 0
	for _, r := range results {
		if r.Valid() {
			valid++
		}
	}
	a.logger.Info("Projects resolved.", "total", len(results), "valid", valid)
	return results
}

func (a *App) resolveProject(ctx context.Context, d *config.ProjectDescriptor) Result {
	ctx, logger := ctxlog.With(ctx, "project", d.ID, "uri", d.URI)
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	res := Result{Descriptor: d}
	if a.cache != nil && a.config.RefreshCache {
		if err := a.cache.Invalidate(d); err != nil {
			logger.Warn("Failed to invalidate cache entry.", "error", err)
		}
	}
	if a.cache != nil {
		if cfg, ok := a.cache.Get(ctx, d); ok {
			logger.Debug("Project configuration served from cache.")
			res.Config, res.FromCache = cfg, true
			return res
		}
	}

	store := a.newStore()
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close document store.", "error", err)
		}
	}()

	doc, err := store.OpenAs(ctx, d.URI, d.StorageKind)
	if err != nil {
		res.Err = fmt.Errorf("open project %s: %w", d.ID, err)
		logger.Warn("Project invalid.", "error", res.Err)
		return res
	}

	r := resolver.New(store)
	cfg, err := r.Resolve(ctx, d, doc)
	res.Diagnostics = r.Diagnostics()
	if err != nil {
		res.Err = fmt.Errorf("resolve project %s: %w", d.ID, err)
		logger.Warn("Project invalid.", "error", res.Err)
		return res
	}
	res.Config = cfg

	if a.cache != nil && d.Cache.Enabled {
		if err := a.cache.Put(ctx, d, cfg); err != nil {
			logger.Warn("Failed to cache project configuration.", "error", err)
		}
	}
	logger.Debug("Project resolved.", "name", cfg.ProjectName, "diagnostics", len(res.Diagnostics))
	return res
}

// plan folds valid results into menus.
func plan(results []Result) []*menuconf.Menu {
	entries := make([]menuconf.Entry, 0, len(results))
	for _, r := range results {
		entries = append(entries, menuconf.Entry{Descriptor: r.Descriptor, Config: r.Config})
	}
	return menuconf.Plan(entries)
}
