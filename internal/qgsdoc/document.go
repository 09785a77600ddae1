package qgsdoc

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
)

// Element names of the project format.
const (
	TagLayerTreeGroup = "layer-tree-group"
	TagLayerTreeLayer = "layer-tree-layer"
	TagMapLayer       = "maplayer"
)

// Document is an immutable view over a parsed project file.
type Document struct {
	tree   *etree.Document
	origin string
	layers map[string]*etree.Element
}

// Parse reads project XML. origin is the URI the document was opened from; it
// anchors relative references found inside the document.
func Parse(data []byte, origin string) (*Document, error) {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse project %s: %w", origin, err)
	}
	root := tree.Root()
	if root == nil {
		return nil, fmt.Errorf("parse project %s: no root element", origin)
	}

	d := &Document{
		tree:   tree,
		origin: origin,
		layers: make(map[string]*etree.Element),
	}
	for _, ml := range root.FindElements(".//" + TagMapLayer) {
		id := LayerID(ml)
		if id == "" {
			continue
		}
		if _, seen := d.layers[id]; !seen {
			d.layers[id] = ml
		}
	}
	return d, nil
}

// Origin returns the URI the document was opened from.
func (d *Document) Origin() string { return d.origin }

// Root returns the document element.
func (d *Document) Root() *etree.Element { return d.tree.Root() }

// UsesAbsolutePaths reports whether the project stores absolute datasource
// and embedded-project paths (properties/Paths/Absolute == "true").
func (d *Document) UsesAbsolutePaths() bool {
	abs := Descend(d.Root(), "properties", "Paths", "Absolute")
	return abs != nil && strings.TrimSpace(abs.Text()) == "true"
}

// IsTrusted reports whether the project is flagged as trusted, in which case
// layer extents may be read from the document instead of the datasource.
func (d *Document) IsTrusted() bool {
	trust := d.Root().SelectElement("trust")
	return trust != nil && trust.SelectAttrValue("active", "") == "1"
}

// Title returns the project title, or "".
func (d *Document) Title() string {
	return ChildText(d.Root(), "title")
}

// LayerTreeRoot returns the root layer-tree group.
func (d *Document) LayerTreeRoot() (*etree.Element, bool) {
	if g := d.Root().SelectElement(TagLayerTreeGroup); g != nil {
		return g, true
	}
	g := d.Root().FindElement(".//" + TagLayerTreeGroup)
	return g, g != nil
}

// TopLevelGroup returns the group named name directly under the layer-tree root.
func (d *Document) TopLevelGroup(name string) (*etree.Element, bool) {
	root, ok := d.LayerTreeRoot()
	if !ok {
		return nil, false
	}
	for _, g := range root.SelectElements(TagLayerTreeGroup) {
		if g.SelectAttrValue("name", "") == name {
			return g, true
		}
	}
	return nil, false
}

// MapLayer returns the maplayer definition with the given source id.
func (d *Document) MapLayer(id string) (*etree.Element, bool) {
	ml, ok := d.layers[id]
	return ml, ok
}

// CloneMapLayer returns a deep copy of the maplayer definition, detached
// from the document so it can be rewritten freely.
func (d *Document) CloneMapLayer(id string) (*etree.Element, bool) {
	ml, ok := d.layers[id]
	if !ok {
		return nil, false
	}
	return ml.Copy(), true
}

// Relations returns the project-level relation declarations.
func (d *Document) Relations() []*etree.Element {
	rels := d.Root().SelectElement("relations")
	if rels == nil {
		return nil
	}
	return rels.SelectElements("relation")
}

// Dir returns the local directory of the document origin.
func (d *Document) Dir() string {
	return filepath.Dir(strings.TrimPrefix(d.origin, "file://"))
}

// ResolvePath resolves a relative reference against the document origin:
// the origin's directory for local files, URL resolution for HTTP origins.
func (d *Document) ResolvePath(ref string) string {
	if base, err := url.Parse(d.origin); err == nil && (base.Scheme == "http" || base.Scheme == "https") {
		if rel, err := url.Parse(filepath.ToSlash(ref)); err == nil {
			return base.ResolveReference(rel).String()
		}
	}
	return filepath.Join(d.Dir(), ref)
}
