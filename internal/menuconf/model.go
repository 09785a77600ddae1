package menuconf

import "strings"

// SeparatorName is the group name of a separator entry.
const SeparatorName = "-"

// Node is an entry of a group: a *MenuGroupConfig or a *MenuLayerConfig.
type Node interface {
	NodeName() string
}

// MenuLayerConfig describes a layer that can be activated from a menu.
// It identifies a potential layer, not a materialized one.
type MenuLayerConfig struct {
	Name             string `json:"name"`
	SourceLayerID    string `json:"source_layer_id"`
	SourceFilename   string `json:"source_filename"`
	Visible          bool   `json:"visible"`
	Expanded         bool   `json:"expanded"`
	IsEmbedded       bool   `json:"is_embedded"`
	IsSpatial        bool   `json:"is_spatial"`
	LayerKind        string `json:"layer_kind"`
	GeometryKind     string `json:"geometry_kind"`
	MetadataTitle    string `json:"metadata_title"`
	MetadataAbstract string `json:"metadata_abstract"`
	LayerNotes       string `json:"layer_notes"`
	Title            string `json:"title"`
	Abstract         string `json:"abstract"`
}

// NodeName implements Node.
func (l *MenuLayerConfig) NodeName() string { return l.Name }

// MenuGroupConfig is an ordered group of entries.
type MenuGroupConfig struct {
	Name           string `json:"name"`
	SourceFilename string `json:"source_filename"`
	IsEmbedded     bool   `json:"is_embedded"`
	Children       []Node `json:"children"`
}

// NodeName implements Node.
func (g *MenuGroupConfig) NodeName() string { return g.Name }

// IsSeparator reports whether the group is a separator marker.
func (g *MenuGroupConfig) IsSeparator() bool { return IsSeparatorName(g.Name) }

// IsTitle reports whether the group is a bold title marker.
func (g *MenuGroupConfig) IsTitle() bool { return IsTitleName(g.Name) }

// IsMarker reports whether the group is a separator or title pseudo-entry.
func (g *MenuGroupConfig) IsMarker() bool { return IsMarkerName(g.Name) }

// MenuProjectConfig is the resolved configuration of one project; the unit of caching.
type MenuProjectConfig struct {
	ProjectName    string           `json:"project_name"`
	SourceFilename string           `json:"source_filename"`
	URI            string           `json:"uri"`
	RootGroup      *MenuGroupConfig `json:"root_group"`
}

// IsSeparatorName reports whether name denotes a separator.
func IsSeparatorName(name string) bool { return name == SeparatorName }

// IsTitleName reports whether name denotes a title: it starts with "-" and
// carries a label.
func IsTitleName(name string) bool { return len(name) > 1 && strings.HasPrefix(name, SeparatorName) }

// IsMarkerName reports whether name denotes a separator or title.
func IsMarkerName(name string) bool { return strings.HasPrefix(name, SeparatorName) }

// TitleLabel returns the label of a title marker.
func TitleLabel(name string) string { return strings.TrimPrefix(name, SeparatorName) }
