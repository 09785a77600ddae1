package workspace

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/xcaeag/menufromproject/internal/geometry"
	"github.com/xcaeag/menufromproject/internal/qgsdoc"
)

var (
	// ErrLayerNotFound is returned for ids with no live layer.
	ErrLayerNotFound = errors.New("layer not found")
	// ErrDuplicateLayer is returned when a layer id is added twice.
	ErrDuplicateLayer = errors.New("duplicate layer id")
	// ErrInvalidLayer is returned by ReadLayer for unusable nodes.
	ErrInvalidLayer = errors.New("invalid layer node")
)

// Strength classifies the cascade behaviour of a relation.
type Strength string

const (
	Association Strength = "Association"
	Composition Strength = "Composition"
)

// ParseStrength validates a relation strength token.
func ParseStrength(s string) (Strength, bool) {
	switch Strength(s) {
	case Association, Composition:
		return Strength(s), true
	}
	return "", false
}

// FieldPair links a referencing field to a referenced field.
type FieldPair struct {
	Referencing string
	Referenced  string
}

// Relation is a foreign-key like link between two live layers.
type Relation struct {
	ID                 string
	Name               string
	Strength           Strength
	ReferencingLayerID string
	ReferencedLayerID  string
	FieldPairs         []FieldPair
}

// Layer is a live layer instantiated from a maplayer node.
type Layer struct {
	ID         string
	Name       string
	Kind       geometry.LayerKind
	Provider   string
	Datasource string
	Fields     []string
	// JoinLayerIDs are the layers referenced by the vector joins, in order.
	JoinLayerIDs []string
	Trusted      bool
	// Node is the maplayer definition the layer was read from.
	Node *etree.Element
	// EditForm is the installed edit-form configuration, nil when unset.
	EditForm *etree.Element
}

// HasField reports whether the layer declares field.
func (l *Layer) HasField(field string) bool {
	for _, f := range l.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Placement says where AddLayer inserts a layer.
type Placement struct {
	// Group is the target group; "" is the workspace root.
	Group    string
	Visible  bool
	Expanded bool
}

// Workspace is the host collaborator receiving materialized layers.
type Workspace interface {
	// ReadLayer instantiates a layer from a maplayer node without registering it.
	ReadLayer(node *etree.Element, trusted bool) (*Layer, error)
	// AddLayer registers a layer. Layers added to a group are inserted at its top.
	AddLayer(layer *Layer, placement Placement) error
	// FindOrCreateGroup returns the group named name, creating it at the root.
	FindOrCreateGroup(name string) (string, error)
	// Layer returns a live layer.
	Layer(id string) (*Layer, bool)
	// AddRelation validates and registers a relation.
	AddRelation(rel Relation) error
	// SetEditForm installs an edit-form configuration on a live layer.
	SetEditForm(layerID string, form *etree.Element) error
	// SetJoinLayer re-points the index-th vector join of a live layer.
	SetJoinLayer(layerID string, index int, joinLayerID string) error
}

// LayerFromNode builds a Layer from a maplayer node. It is the shared reading
// logic of Workspace implementations.
func LayerFromNode(node *etree.Element, trusted bool) (*Layer, error) {
	if node == nil || node.Tag != qgsdoc.TagMapLayer {
		return nil, fmt.Errorf("%w: not a %s element", ErrInvalidLayer, qgsdoc.TagMapLayer)
	}
	id := qgsdoc.LayerID(node)
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidLayer)
	}
	return &Layer{
		ID:           id,
		Name:         strings.TrimSpace(qgsdoc.ChildText(node, "layername")),
		Kind:         geometry.KindOfLayerType(node.SelectAttrValue("type", "")),
		Provider:     strings.TrimSpace(qgsdoc.ChildText(node, "provider")),
		Datasource:   qgsdoc.ChildText(node, "datasource"),
		Fields:       qgsdoc.Fields(node),
		JoinLayerIDs: qgsdoc.JoinLayerIDs(node),
		Trusted:      trusted,
		Node:         node,
	}, nil
}

// Validate checks a relation against live layers: both endpoints must exist
// and every field pair must name fields declared on its layer.
func Validate(rel Relation, lookup func(id string) (*Layer, bool)) error {
	if rel.ID == "" {
		return errors.New("relation has no id")
	}
	if len(rel.FieldPairs) == 0 {
		return errors.New("relation has no field pairs")
	}
	referencing, ok := lookup(rel.ReferencingLayerID)
	if !ok {
		return fmt.Errorf("referencing layer %s: %w", rel.ReferencingLayerID, ErrLayerNotFound)
	}
	referenced, ok := lookup(rel.ReferencedLayerID)
	if !ok {
		return fmt.Errorf("referenced layer %s: %w", rel.ReferencedLayerID, ErrLayerNotFound)
	}
	for _, p := range rel.FieldPairs {
		if !referencing.HasField(p.Referencing) {
			return fmt.Errorf("field %q not found on layer %s", p.Referencing, referencing.ID)
		}
		if !referenced.HasField(p.Referenced) {
			return fmt.Errorf("field %q not found on layer %s", p.Referenced, referenced.ID)
		}
	}
	return nil
}
