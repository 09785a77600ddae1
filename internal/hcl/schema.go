package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is used to decode all top-level blocks of a projects file.
type fileRoot struct {
	Options  []*optionsBlock `hcl:"options,block"`
	Projects []*projectBlock `hcl:"project,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

// optionsBlock holds the global activation options. Unset attributes keep
// their defaults.
type optionsBlock struct {
	CreateGroup     *bool    `hcl:"create_group,optional"`
	LoadAll         *bool    `hcl:"load_all,optional"`
	OpenLinks       *bool    `hcl:"open_links,optional"`
	Tooltip         *bool    `hcl:"tooltip,optional"`
	MetadataSources []string `hcl:"metadata_sources,optional"`
}

type projectBlock struct {
	ID       string      `hcl:"id,label"`
	Name     string      `hcl:"name,optional"`
	URI      string      `hcl:"uri"`
	Storage  string      `hcl:"storage,optional"`
	Location string      `hcl:"location,optional"`
	Cache    *cacheBlock `hcl:"cache,block"`
}

type cacheBlock struct {
	Enabled       *bool  `hcl:"enabled,optional"`
	RefreshDays   *int   `hcl:"refresh_days,optional"`
	ValidationURI string `hcl:"validation_uri,optional"`
}
