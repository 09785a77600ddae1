package menuconf

import (
	"encoding/json"
	"fmt"
)

// groupWire mirrors MenuGroupConfig with undecoded children. Legacy cache
// files name the children "childs".
type groupWire struct {
	Name           string            `json:"name"`
	SourceFilename string            `json:"source_filename"`
	IsEmbedded     bool              `json:"is_embedded"`
	Children       []json.RawMessage `json:"children"`
	Childs         []json.RawMessage `json:"childs,omitempty"`
}

// UnmarshalJSON decodes children as groups when they carry a children list
// and as layers otherwise. Unknown fields are ignored.
func (g *MenuGroupConfig) UnmarshalJSON(data []byte) error {
	var w groupWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	raw := w.Children
	if raw == nil {
		raw = w.Childs
	}

	g.Name = w.Name
	g.SourceFilename = w.SourceFilename
	g.IsEmbedded = w.IsEmbedded
	g.Children = make([]Node, 0, len(raw))
	for i, r := range raw {
		child, err := decodeNode(r)
		if err != nil {
			return fmt.Errorf("group %q child %d: %w", g.Name, i, err)
		}
		g.Children = append(g.Children, child)
	}
	return nil
}

// MarshalJSON always writes a children list so that empty groups decode as groups.
func (g *MenuGroupConfig) MarshalJSON() ([]byte, error) {
	children := g.Children
	if children == nil {
		children = []Node{}
	}
	return json.Marshal(struct {
		Name           string `json:"name"`
		SourceFilename string `json:"source_filename"`
		IsEmbedded     bool   `json:"is_embedded"`
		Children       []Node `json:"children"`
	}{g.Name, g.SourceFilename, g.IsEmbedded, children})
}

func decodeNode(raw json.RawMessage) (Node, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	_, hasChildren := probe["children"]
	_, hasChilds := probe["childs"]
	if hasChildren || hasChilds {
		g := &MenuGroupConfig{}
		if err := json.Unmarshal(raw, g); err != nil {
			return nil, err
		}
		return g, nil
	}
	l := &MenuLayerConfig{}
	if err := json.Unmarshal(raw, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Decode parses a project configuration.
func Decode(data []byte) (*MenuProjectConfig, error) {
	var cfg MenuProjectConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode menu config: %w", err)
	}
	if cfg.RootGroup == nil {
		return nil, fmt.Errorf("decode menu config: missing root_group")
	}
	return &cfg, nil
}

// Encode serializes a project configuration.
func Encode(cfg *MenuProjectConfig) ([]byte, error) {
	return json.MarshalIndent(cfg, "", "  ")
}
