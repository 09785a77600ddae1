package hcl

import (
	"fmt"
	"strings"
	"time"

	"github.com/xcaeag/menufromproject/internal/config"
)

var metadataSources = map[string]bool{"ogc": true, "layer": true, "note": true}

// translator merges decoded files into a config.Model.
type translator struct {
	options     config.Options
	optionsFile string
	projects    []*config.ProjectDescriptor
	ids         map[string]string // project id -> declaring file
}

func newTranslator() *translator {
	return &translator{options: config.DefaultOptions(), ids: make(map[string]string)}
}

func (t *translator) add(file string, root *fileRoot) error {
	for _, o := range root.Options {
		if t.optionsFile != "" {
			return fmt.Errorf("%s: duplicate options block, already declared in %s", file, t.optionsFile)
		}
		t.optionsFile = file
		if err := t.translateOptions(o); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}

	for _, p := range root.Projects {
		if prev, ok := t.ids[p.ID]; ok {
			return fmt.Errorf("%s: duplicate project %q, already declared in %s", file, p.ID, prev)
		}
		t.ids[p.ID] = file

		d, err := translateProject(p)
		if err != nil {
			return fmt.Errorf("%s: project %q: %w", file, p.ID, err)
		}
		t.projects = append(t.projects, d)
	}
	return nil
}

func (t *translator) model() *config.Model {
	return &config.Model{Projects: t.projects, Options: t.options}
}

// translateOptions applies the set attributes of o over the defaults.
func (t *translator) translateOptions(o *optionsBlock) error {
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&t.options.CreateGroup, o.CreateGroup)
	set(&t.options.LoadAll, o.LoadAll)
	set(&t.options.OpenLinks, o.OpenLinks)
	set(&t.options.Tooltip, o.Tooltip)

	if o.MetadataSources != nil {
		sources := make([]string, 0, len(o.MetadataSources))
		for _, s := range o.MetadataSources {
			s = strings.ToLower(strings.TrimSpace(s))
			if !metadataSources[s] {
				return fmt.Errorf("invalid metadata source %q: want one of ogc, layer, note", s)
			}
			sources = append(sources, s)
		}
		t.options.MetadataSources = sources
	}
	return nil
}

func translateProject(p *projectBlock) (*config.ProjectDescriptor, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, fmt.Errorf("empty project id")
	}
	uri := strings.TrimSpace(p.URI)
	if uri == "" {
		return nil, fmt.Errorf("empty uri")
	}

	kind, err := config.ParseStorageKind(p.Storage, uri)
	if err != nil {
		return nil, err
	}
	placement, err := config.ParsePlacement(p.Location)
	if err != nil {
		return nil, err
	}

	d := &config.ProjectDescriptor{
		ID:          p.ID,
		Name:        strings.TrimSpace(p.Name),
		URI:         uri,
		StorageKind: kind,
		Placement:   placement,
	}
	if p.Cache != nil {
		d.Cache.Enabled = true
		if p.Cache.Enabled != nil {
			d.Cache.Enabled = *p.Cache.Enabled
		}
		if p.Cache.RefreshDays != nil {
			if *p.Cache.RefreshDays < 0 {
				return nil, fmt.Errorf("refresh_days must not be negative")
			}
			d.Cache.RefreshPeriod = time.Duration(*p.Cache.RefreshDays) * 24 * time.Hour
		}
		d.Cache.ValidationURI = strings.TrimSpace(p.Cache.ValidationURI)
	}
	return d, nil
}
