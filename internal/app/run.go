package app

import (
	"context"
	"fmt"

	"github.com/xcaeag/menufromproject/internal/ctxlog"
	"github.com/xcaeag/menufromproject/internal/loader"
)

// Run executes the configured command and writes its report to the output writer.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", string(a.config.Command))

	switch a.config.Command {
	case CommandResolve:
		rep := a.resolveReport(a.Resolve(ctx))
		return a.write(a.outW, rep, rep.writeText)

	case CommandLoad:
		res, err := a.Activate(ctx, a.config.ProjectID, a.config.LayerID)
		if err != nil {
			return fmt.Errorf("load failed: %w", err)
		}
		rep := a.loadReport([]*loader.LoadedLayer{res}, nil)
		return a.write(a.outW, rep, rep.writeText)

	case CommandLoadAll:
		loaded, err := a.LoadAll(ctx, a.config.ProjectID, a.config.GroupName)
		if loaded == nil && err != nil {
			return fmt.Errorf("load-all failed: %w", err)
		}
		rep := a.loadReport(loaded, err)
		return a.write(a.outW, rep, rep.writeText)
	}

	return fmt.Errorf("unknown command %q", a.config.Command)
}
