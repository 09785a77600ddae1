package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/xcaeag/menufromproject/internal/ctxlog"
	"github.com/xcaeag/menufromproject/internal/loader"
	"github.com/xcaeag/menufromproject/internal/menuconf"
)

var (
	// ErrUnknownProject is returned for project ids absent from the configuration.
	ErrUnknownProject = errors.New("unknown project")
	// ErrUnknownEntry is returned for layers or groups absent from a project menu.
	ErrUnknownEntry = errors.New("unknown menu entry")
)

// Activate loads the layer entry layerID of project projectID into the workspace.
func (a *App) Activate(ctx context.Context, projectID, layerID string) (*loader.LoadedLayer, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	cfg, title, err := a.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	entry, ok := menuconf.FindLayer(cfg, layerID)
	if !ok {
		return nil, fmt.Errorf("%w: layer %s in project %s", ErrUnknownEntry, layerID, projectID)
	}
	return a.loader.Activate(ctx, entry, title)
}

// LoadAll loads every layer entry of the group named groupName of project
// projectID; an empty name is the project's root group.
func (a *App) LoadAll(ctx context.Context, projectID, groupName string) ([]*loader.LoadedLayer, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	cfg, title, err := a.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	group := cfg.RootGroup
	if groupName != "" {
		g, ok := menuconf.FindGroup(cfg, groupName)
		if !ok {
			return nil, fmt.Errorf("%w: group %q in project %s", ErrUnknownEntry, groupName, projectID)
		}
		group = g
	}
	return a.loader.LoadAll(ctx, group, title)
}

// project resolves the configuration of projectID and returns it with the
// title of the menu it is shown in.
func (a *App) project(ctx context.Context, projectID string) (*menuconf.MenuProjectConfig, string, error) {
	results := a.Resolve(ctx)

	var found *Result
	for i := range results {
		if results[i].Descriptor.ID == projectID {
			found = &results[i]
			break
		}
	}
	if found == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownProject, projectID)
	}
	if !found.Valid() {
		return nil, "", found.Err
	}

	for _, m := range plan(results) {
		for _, p := range m.Projects {
			if p == found.Config {
				return found.Config, m.Title, nil
			}
		}
	}
	return found.Config, found.Config.ProjectName, nil
}
