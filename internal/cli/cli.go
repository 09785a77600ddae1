package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/xcaeag/menufromproject/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const usage = `
MenuFromProject - Build layer menus from QGIS projects and load their layers.

Usage:
  menufromproject [options] [command [command options]]

Commands:
  resolve
    Print the menus of every configured project (default).
  load -project ID -layer LAYER_ID
    Load one layer entry with its related and joined layers.
  load-all -project ID [-group NAME]
    Load every layer entry of a group; the root group when -group is empty.

Options:
`

// Parse processes command-line arguments. It returns a populated AppConfig,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("menufromproject", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usage)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the projects file or a directory of .hcl files.")
	cFlag := flagSet.String("c", "", "Path to the projects file or directory (shorthand).")
	cacheDirFlag := flagSet.String("cache-dir", "", "Cache directory. Defaults to the per-user cache directory.")
	noCacheFlag := flagSet.Bool("no-cache", false, "Disable the menu configuration cache.")
	refreshFlag := flagSet.Bool("refresh-cache", false, "Drop cached menu configurations before resolving.")
	outputFlag := flagSet.String("output", "text", "Report format. Options: 'text', 'json' or 'yaml'.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 4, "Number of projects resolved concurrently.")
	timeoutFlag := flagSet.Duration("timeout", 30*time.Second, "Time limit for resolving one project.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := *configFlag
	if path == "" {
		path = *cFlag
	}
	if path == "" {
		slog.Debug("No projects file provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	cfg := app.Config{
		ConfigPath:   path,
		CacheDir:     *cacheDirFlag,
		NoCache:      *noCacheFlag,
		RefreshCache: *refreshFlag,
		Command:      app.CommandResolve,
		Output:       strings.ToLower(*outputFlag),
		WorkerCount:  *workersFlag,
		Timeout:      *timeoutFlag,
	}

	if rest := flagSet.Args(); len(rest) > 0 {
		exit, err := parseCommand(&cfg, rest, output)
		if err != nil || exit {
			return nil, exit, err
		}
	}

	cfg.LogFormat = strings.ToLower(*logFormatFlag)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	cfg.LogLevel = strings.ToLower(*logLevelFlag)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// parseCommand reads the command name and its flags into cfg.
func parseCommand(cfg *app.Config, args []string, output io.Writer) (bool, error) {
	cmd := app.Command(args[0])
	fs := flag.NewFlagSet(string(cmd), flag.ContinueOnError)
	fs.SetOutput(output)

	var project, layer, group *string
	switch cmd {
	case app.CommandResolve:
	case app.CommandLoad:
		project = fs.String("project", "", "Id of the project holding the layer.")
		layer = fs.String("layer", "", "Source id of the layer to load.")
	case app.CommandLoadAll:
		project = fs.String("project", "", "Id of the project holding the group.")
		group = fs.String("group", "", "Name of the group to load. Empty means the whole project.")
	default:
		return false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", cmd)}
	}

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}
		return false, &ExitError{Code: 2, Message: err.Error()}
	}
	if fs.NArg() > 0 {
		return false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected argument %q", fs.Arg(0))}
	}

	cfg.Command = cmd
	if project != nil {
		cfg.ProjectID = *project
	}
	if layer != nil {
		cfg.LayerID = *layer
	}
	if group != nil {
		cfg.GroupName = *group
	}
	return false, nil
}
