package inmemoryworkspace

import (
	"fmt"
	"sync"

	"github.com/beevik/etree"

	"github.com/xcaeag/menufromproject/internal/workspace"
)

// Group is a layer-tree group of the workspace and its layer ids, top first.
type Group struct {
	Name     string
	LayerIDs []string
}

// Workspace keeps layers and relations in memory.
//
// Layers and relations live in sync.Maps keyed by id; the layer tree is an
// ordered structure guarded by a mutex.
type Workspace struct {
	layers    sync.Map // Key: layer id, Value: *workspace.Layer
	relations sync.Map // Key: relation id, Value: workspace.Relation

	mu       sync.Mutex
	root     []string // layer ids at the root, in insertion order
	groups   []*Group
	relOrder []string
	visible  map[string]bool
	expanded map[string]bool
}

var _ workspace.Workspace = (*Workspace)(nil)

// New creates an empty workspace.
func New() *Workspace {
	return &Workspace{visible: make(map[string]bool), expanded: make(map[string]bool)}
}

// ReadLayer implements workspace.Workspace.
func (w *Workspace) ReadLayer(node *etree.Element, trusted bool) (*workspace.Layer, error) {
	return workspace.LayerFromNode(node, trusted)
}

// AddLayer implements workspace.Workspace.
func (w *Workspace) AddLayer(layer *workspace.Layer, p workspace.Placement) error {
	if _, loaded := w.layers.LoadOrStore(layer.ID, layer); loaded {
		return fmt.Errorf("%w: %s", workspace.ErrDuplicateLayer, layer.ID)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.visible[layer.ID] = p.Visible
	w.expanded[layer.ID] = p.Expanded
	if p.Group == "" {
		w.root = append(w.root, layer.ID)
		return nil
	}
	g := w.group(p.Group)
	g.LayerIDs = append([]string{layer.ID}, g.LayerIDs...)
	return nil
}

// FindOrCreateGroup implements workspace.Workspace.
func (w *Workspace) FindOrCreateGroup(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("group name must not be empty")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.group(name).Name, nil
}

// group must be called with mu held.
func (w *Workspace) group(name string) *Group {
	for _, g := range w.groups {
		if g.Name == name {
			return g
		}
	}
	g := &Group{Name: name}
	w.groups = append(w.groups, g)
	return g
}

// Layer implements workspace.Workspace.
func (w *Workspace) Layer(id string) (*workspace.Layer, bool) {
	v, ok := w.layers.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*workspace.Layer), true
}

// AddRelation implements workspace.Workspace.
func (w *Workspace) AddRelation(rel workspace.Relation) error {
	if err := workspace.Validate(rel, w.Layer); err != nil {
		return err
	}
	if _, loaded := w.relations.LoadOrStore(rel.ID, rel); loaded {
		return fmt.Errorf("duplicate relation id %s", rel.ID)
	}
	w.mu.Lock()
	w.relOrder = append(w.relOrder, rel.ID)
	w.mu.Unlock()
	return nil
}

// SetEditForm implements workspace.Workspace.
func (w *Workspace) SetEditForm(layerID string, form *etree.Element) error {
	l, ok := w.Layer(layerID)
	if !ok {
		return fmt.Errorf("%w: %s", workspace.ErrLayerNotFound, layerID)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	l.EditForm = form
	return nil
}

// SetJoinLayer implements workspace.Workspace.
func (w *Workspace) SetJoinLayer(layerID string, index int, joinLayerID string) error {
	l, ok := w.Layer(layerID)
	if !ok {
		return fmt.Errorf("%w: %s", workspace.ErrLayerNotFound, layerID)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if index < 0 || index >= len(l.JoinLayerIDs) {
		return fmt.Errorf("layer %s has no join %d", layerID, index)
	}
	l.JoinLayerIDs[index] = joinLayerID
	return nil
}

// Relation returns a registered relation.
func (w *Workspace) Relation(id string) (workspace.Relation, bool) {
	v, ok := w.relations.Load(id)
	if !ok {
		return workspace.Relation{}, false
	}
	return v.(workspace.Relation), true
}

// Layers returns every live layer, root layers first then groups in creation
// order, each group top first.
func (w *Workspace) Layers() []*workspace.Layer {
	w.mu.Lock()
	ids := append([]string(nil), w.root...)
	for _, g := range w.groups {
		ids = append(ids, g.LayerIDs...)
	}
	w.mu.Unlock()

	out := make([]*workspace.Layer, 0, len(ids))
	for _, id := range ids {
		if l, ok := w.Layer(id); ok {
			out = append(out, l)
		}
	}
	return out
}

// Relations returns the registered relations in registration order.
func (w *Workspace) Relations() []workspace.Relation {
	w.mu.Lock()
	ids := append([]string(nil), w.relOrder...)
	w.mu.Unlock()

	out := make([]workspace.Relation, 0, len(ids))
	for _, id := range ids {
		if r, ok := w.Relation(id); ok {
			out = append(out, r)
		}
	}
	return out
}

// Groups returns a snapshot of the workspace groups.
func (w *Workspace) Groups() []Group {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Group, 0, len(w.groups))
	for _, g := range w.groups {
		out = append(out, Group{Name: g.Name, LayerIDs: append([]string(nil), g.LayerIDs...)})
	}
	return out
}

// Visible reports the visibility a layer was added with.
func (w *Workspace) Visible(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible[id]
}

// Expanded reports the layer-tree expansion a layer was added with.
func (w *Workspace) Expanded(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expanded[id]
}
