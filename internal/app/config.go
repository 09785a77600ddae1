package app

import (
	"errors"
	"fmt"
	"time"
)

// Command selects what Run does.
type Command string

const (
	// CommandResolve prints the menus of every configured project.
	CommandResolve Command = "resolve"
	// CommandLoad activates one layer entry.
	CommandLoad Command = "load"
	// CommandLoadAll activates every layer entry of a group.
	CommandLoadAll Command = "load-all"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath   string // hcl file or directory of hcl files
	CacheDir     string // "" means the per-user cache dir
	NoCache      bool
	RefreshCache bool // drop cached entries before resolving

	Command   Command
	ProjectID string
	LayerID   string
	GroupName string

	Output      string // text, json or yaml
	LogFormat   string
	LogLevel    string
	WorkerCount int
	Timeout     time.Duration
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if cfg.Command == "" {
		cfg.Command = CommandResolve
	}
	switch cfg.Command {
	case CommandResolve:
	case CommandLoad:
		if cfg.ProjectID == "" || cfg.LayerID == "" {
			return nil, errors.New("load requires a project and a layer")
		}
	case CommandLoadAll:
		if cfg.ProjectID == "" {
			return nil, errors.New("load-all requires a project")
		}
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}

	if cfg.Output == "" {
		cfg.Output = "text"
	}
	switch cfg.Output {
	case "text", "json", "yaml":
	default:
		return nil, fmt.Errorf("invalid output %q: must be 'text', 'json' or 'yaml'", cfg.Output)
	}
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("invalid worker count %d: must be at least 1", cfg.WorkerCount)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("invalid timeout %s: must be positive", cfg.Timeout)
	}
	return &cfg, nil
}
