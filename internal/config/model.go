package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Model is the unified, format-agnostic representation of the projects file.
type Model struct {
	Projects []*ProjectDescriptor
	Options  Options
}

// StorageKind names where a project document lives.
type StorageKind string

const (
	StorageFile     StorageKind = "file"
	StorageDatabase StorageKind = "database"
	StorageHTTP     StorageKind = "http"
)

// Placement controls how a project's menu is attached to the menu bar.
type Placement string

const (
	PlacementNewMenu           Placement = "new"
	PlacementAppendToLayerMenu Placement = "layer"
	PlacementMergeWithPrevious Placement = "merge"
)

// ParsePlacement validates a placement token. An empty token means NewMenu.
func ParsePlacement(s string) (Placement, error) {
	switch p := Placement(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PlacementNewMenu, nil
	case PlacementNewMenu, PlacementAppendToLayerMenu, PlacementMergeWithPrevious:
		return p, nil
	default:
		return "", fmt.Errorf("invalid location %q: want one of new, layer, merge", s)
	}
}

// ProjectDescriptor identifies one project the menus are built from.
// It is read-only to the core.
type ProjectDescriptor struct {
	ID          string
	Name        string
	URI         string
	StorageKind StorageKind
	Placement   Placement
	Cache       CachePolicy
}

// CachePolicy controls reuse of a resolved menu configuration.
type CachePolicy struct {
	Enabled bool
	// RefreshPeriod is the maximum age of a cache entry; zero disables the check.
	RefreshPeriod time.Duration
	// ValidationURI points to a small JSON document carrying last_release.
	ValidationURI string
}

// Options are the global activation preferences.
type Options struct {
	CreateGroup     bool
	LoadAll         bool
	OpenLinks       bool
	Tooltip         bool
	MetadataSources []string
}

// DefaultMetadataSources is the tooltip metadata precedence used when none is configured.
var DefaultMetadataSources = []string{"ogc", "layer", "note"}

// DefaultOptions returns the options used when the projects file sets none.
func DefaultOptions() Options {
	return Options{
		OpenLinks:       true,
		Tooltip:         true,
		MetadataSources: append([]string(nil), DefaultMetadataSources...),
	}
}

// GuessStorageKind infers the storage kind from the URI prefix.
func GuessStorageKind(uri string) (StorageKind, error) {
	lower := strings.ToLower(uri)
	switch {
	case strings.HasPrefix(lower, "postgresql:"), strings.HasPrefix(lower, "postgres:"):
		return StorageDatabase, nil
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return StorageHTTP, nil
	case strings.HasPrefix(lower, "file://"):
		return StorageFile, nil
	}
	if u, err := url.Parse(uri); err == nil && len(u.Scheme) > 1 {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return StorageFile, nil
}

// ParseStorageKind validates an explicit storage token, guessing from uri when empty.
func ParseStorageKind(s, uri string) (StorageKind, error) {
	switch k := StorageKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return GuessStorageKind(uri)
	case StorageFile, StorageDatabase, StorageHTTP:
		return k, nil
	default:
		return "", fmt.Errorf("invalid storage %q: want one of file, database, http", s)
	}
}
