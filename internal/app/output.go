package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xcaeag/menufromproject/internal/config"
	"github.com/xcaeag/menufromproject/internal/loader"
	"github.com/xcaeag/menufromproject/internal/menuconf"
)

// Entry kinds of a menu report.
const (
	kindGroup     = "group"
	kindLayer     = "layer"
	kindSeparator = "separator"
	kindTitle     = "title"
)

type resolveReport struct {
	Menus    []menuReport    `json:"menus" yaml:"menus"`
	Projects []projectReport `json:"projects" yaml:"projects"`
}

type menuReport struct {
	Title     string        `json:"title" yaml:"title"`
	Placement string        `json:"placement" yaml:"placement"`
	Entries   []entryReport `json:"entries" yaml:"entries"`
}

type entryReport struct {
	Kind     string        `json:"kind" yaml:"kind"`
	Name     string        `json:"name,omitempty" yaml:"name,omitempty"`
	LayerID  string        `json:"layer_id,omitempty" yaml:"layer_id,omitempty"`
	Embedded bool          `json:"embedded,omitempty" yaml:"embedded,omitempty"`
	Tooltip  string        `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
	Children []entryReport `json:"children,omitempty" yaml:"children,omitempty"`
}

type projectReport struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	URI         string   `json:"uri" yaml:"uri"`
	Valid       bool     `json:"valid" yaml:"valid"`
	FromCache   bool     `json:"from_cache" yaml:"from_cache"`
	Error       string   `json:"error,omitempty" yaml:"error,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

type loadReport struct {
	Activations []activationReport `json:"activations" yaml:"activations"`
	Errors      []string           `json:"errors,omitempty" yaml:"errors,omitempty"`
}

type activationReport struct {
	SourceLayerID string           `json:"source_layer_id" yaml:"source_layer_id"`
	Layers        []layerReport    `json:"layers" yaml:"layers"`
	Relations     []relationReport `json:"relations,omitempty" yaml:"relations,omitempty"`
	Errors        []string         `json:"errors,omitempty" yaml:"errors,omitempty"`
}

type layerReport struct {
	ID            string `json:"id" yaml:"id"`
	SourceLayerID string `json:"source_layer_id" yaml:"source_layer_id"`
	Name          string `json:"name" yaml:"name"`
	Kind          string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Datasource    string `json:"datasource,omitempty" yaml:"datasource,omitempty"`
	Visible       bool   `json:"visible" yaml:"visible"`
}

type relationReport struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	SourceID    string `json:"source_id" yaml:"source_id"`
	Name        string `json:"name" yaml:"name"`
	Referenced  string `json:"referenced_layer_id" yaml:"referenced_layer_id"`
	Referencing string `json:"referencing_layer_id" yaml:"referencing_layer_id"`
}

func (a *App) resolveReport(results []Result) resolveReport {
	var rep resolveReport
	for _, m := range plan(results) {
		mr := menuReport{Title: m.Title, Placement: string(m.Placement)}
		for i, p := range m.Projects {
			if i > 0 {
				mr.Entries = append(mr.Entries, entryReport{Kind: kindSeparator})
			}
			if m.Placement == config.PlacementAppendToLayerMenu || len(m.Projects) > 1 {
				mr.Entries = append(mr.Entries, entryReport{Kind: kindTitle, Name: p.ProjectName})
			}
			mr.Entries = append(mr.Entries, a.entries(p.RootGroup)...)
		}
		rep.Menus = append(rep.Menus, mr)
	}

	for _, r := range results {
		pr := projectReport{ID: r.Descriptor.ID, URI: r.Descriptor.URI, Valid: r.Valid(), FromCache: r.FromCache}
		if r.Config != nil {
			pr.Name = r.Config.ProjectName
		}
		if r.Err != nil {
			pr.Error = r.Err.Error()
		}
		for _, d := range r.Diagnostics {
			pr.Diagnostics = append(pr.Diagnostics, d.String())
		}
		rep.Projects = append(rep.Projects, pr)
	}
	return rep
}

func (a *App) entries(g *menuconf.MenuGroupConfig) []entryReport {
	if g == nil {
		return nil
	}
	opts := a.model.Options
	var out []entryReport
	for _, child := range g.Children {
		switch n := child.(type) {
		case *menuconf.MenuLayerConfig:
			e := entryReport{Kind: kindLayer, Name: n.Name, LayerID: n.SourceLayerID, Embedded: n.IsEmbedded}
			if opts.Tooltip {
				e.Tooltip = menuconf.Tooltip(n, opts.MetadataSources)
			}
			out = append(out, e)
		case *menuconf.MenuGroupConfig:
			switch {
			case n.IsSeparator():
				out = append(out, entryReport{Kind: kindSeparator})
			case n.IsTitle():
				out = append(out, entryReport{Kind: kindTitle, Name: menuconf.TitleLabel(n.Name)})
			default:
				out = append(out, entryReport{Kind: kindGroup, Name: n.Name, Embedded: n.IsEmbedded, Children: a.entries(n)})
			}
		}
	}
	return out
}

func (a *App) loadReport(loaded []*loader.LoadedLayer, err error) loadReport {
	var rep loadReport
	for _, l := range loaded {
		ar := activationReport{SourceLayerID: l.SourceLayerID}
		for _, id := range l.LayerIDs {
			layer, ok := a.ws.Layer(id)
			if !ok {
				continue
			}
			ar.Layers = append(ar.Layers, layerReport{
				ID:            layer.ID,
				SourceLayerID: l.Sources[layer.ID],
				Name:          layer.Name,
				Kind:          string(layer.Kind),
				Datasource:    layer.Datasource,
				Visible:       a.ws.Visible(layer.ID),
			})
		}
		for _, s := range l.Relations {
			ar.Relations = append(ar.Relations, relationReport{
				ID:          s.NewID,
				SourceID:    s.OldID,
				Name:        s.Name,
				Referenced:  s.ReferencedLayerID,
				Referencing: s.ReferencingLayerID,
			})
		}
		for _, e := range l.Errors {
			ar.Errors = append(ar.Errors, e.Error())
		}
		rep.Activations = append(rep.Activations, ar)
	}
	if err != nil {
		rep.Errors = append(rep.Errors, err.Error())
	}
	return rep
}

// write renders v in the configured output format. text renders through fn.
func (a *App) write(w io.Writer, v any, text func(io.Writer) error) error {
	switch a.config.Output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(w)
	}
}

func (rep resolveReport) writeText(w io.Writer) error {
	var sb strings.Builder
	for _, m := range rep.Menus {
		fmt.Fprintf(&sb, "%s [%s]\n", m.Title, m.Placement)
		writeEntries(&sb, m.Entries, 1)
	}
	for _, p := range rep.Projects {
		switch {
		case !p.Valid:
			fmt.Fprintf(&sb, "! %s invalid: %s\n", p.ID, p.Error)
		case len(p.Diagnostics) > 0:
			fmt.Fprintf(&sb, "~ %s: %d diagnostics\n", p.ID, len(p.Diagnostics))
			for _, d := range p.Diagnostics {
				fmt.Fprintf(&sb, "    %s\n", d)
			}
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeEntries(sb *strings.Builder, entries []entryReport, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, e := range entries {
		switch e.Kind {
		case kindSeparator:
			fmt.Fprintf(sb, "%s---\n", indent)
		case kindTitle:
			fmt.Fprintf(sb, "%s== %s ==\n", indent, e.Name)
		case kindGroup:
			fmt.Fprintf(sb, "%s%s/\n", indent, e.Name)
			writeEntries(sb, e.Children, depth+1)
		default:
			fmt.Fprintf(sb, "%s%s (%s)\n", indent, e.Name, e.LayerID)
		}
	}
}

func (rep loadReport) writeText(w io.Writer) error {
	var sb strings.Builder
	for _, a := range rep.Activations {
		fmt.Fprintf(&sb, "Activated %s: %d layers, %d relations\n", a.SourceLayerID, len(a.Layers), len(a.Relations))
		for _, l := range a.Layers {
			fmt.Fprintf(&sb, "  layer %s <- %s %q\n", l.ID, l.SourceLayerID, l.Name)
		}
		for _, r := range a.Relations {
			fmt.Fprintf(&sb, "  relation %s <- %s %q\n", r.ID, r.SourceID, r.Name)
		}
		for _, e := range a.Errors {
			fmt.Fprintf(&sb, "  ! %s\n", e)
		}
	}
	for _, e := range rep.Errors {
		fmt.Fprintf(&sb, "! %s\n", e)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
