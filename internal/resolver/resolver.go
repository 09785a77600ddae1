package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/beevik/etree"

	"github.com/xcaeag/menufromproject/internal/config"
	"github.com/xcaeag/menufromproject/internal/ctxlog"
	"github.com/xcaeag/menufromproject/internal/dag"
	"github.com/xcaeag/menufromproject/internal/docstore"
	"github.com/xcaeag/menufromproject/internal/geometry"
	"github.com/xcaeag/menufromproject/internal/menuconf"
	"github.com/xcaeag/menufromproject/internal/qgsdoc"
)

// ErrNoLayerTree is returned for documents without a layer tree.
var ErrNoLayerTree = errors.New("project has no layer tree")

// Diagnostic records a node that could not be fully resolved.
type Diagnostic struct {
	SourceID string
	Filename string
	Depth    int
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s (id=%q file=%q depth=%d)", d.Message, d.SourceID, d.Filename, d.Depth)
}

// Resolver builds menu configurations. It is safe for concurrent use; each
// Resolve call tracks its own embedding chains.
type Resolver struct {
	store docstore.Opener

	mu    sync.Mutex
	diags []Diagnostic
}

// New creates a Resolver opening embedded projects through store.
func New(store docstore.Opener) *Resolver {
	return &Resolver{store: store}
}

// Diagnostics returns the problems recorded so far.
func (r *Resolver) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Diagnostic(nil), r.diags...)
}

// Resolve builds the menu configuration of doc, which was opened from d.URI.
func (r *Resolver) Resolve(ctx context.Context, d *config.ProjectDescriptor, doc *qgsdoc.Document) (*menuconf.MenuProjectConfig, error) {
	root, ok := doc.LayerTreeRoot()
	if !ok {
		return nil, fmt.Errorf("%s: %w", d.URI, ErrNoLayerTree)
	}

	ctx, logger := ctxlog.With(ctx, "project", d.ID, "uri", d.URI)
	logger.Debug("Resolving project layer tree.")

	w := &walk{r: r, graph: dag.New()}
	cfg := &menuconf.MenuProjectConfig{
		ProjectName:    projectName(d, doc),
		SourceFilename: doc.Origin(),
		URI:            d.URI,
		RootGroup:      w.group(ctx, doc, root, 0),
	}
	logger.Debug("Project layer tree resolved.", "embedded_groups", w.graph.Len())
	return cfg, nil
}

func (r *Resolver) record(ctx context.Context, diag Diagnostic) {
	ctxlog.FromContext(ctx).Warn(diag.Message,
		"layer_id", diag.SourceID, "file", diag.Filename, "depth", diag.Depth)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.diags = append(r.diags, diag)
}

// walk holds the state of one Resolve call.
type walk struct {
	r     *Resolver
	graph *dag.Graph
}

func (w *walk) group(ctx context.Context, doc *qgsdoc.Document, node *etree.Element, depth int) *menuconf.MenuGroupConfig {
	name := node.SelectAttrValue("name", "")
	g := &menuconf.MenuGroupConfig{
		Name:           name,
		SourceFilename: doc.Origin(),
		Children:       []menuconf.Node{},
	}
	if menuconf.IsMarkerName(name) {
		return g
	}

	if isEmbedded(node) {
		g.IsEmbedded = true
		g.SourceFilename = embeddedReference(doc, node)
		g.Children = w.transclude(ctx, doc, g.SourceFilename, name, depth)
		return g
	}

	for _, child := range node.ChildElements() {
		switch child.Tag {
		case qgsdoc.TagLayerTreeGroup:
			g.Children = append(g.Children, w.group(ctx, doc, child, depth+1))
		case qgsdoc.TagLayerTreeLayer:
			g.Children = append(g.Children, w.layer(ctx, doc, child, depth+1))
		}
	}
	return g
}

// transclude resolves the top-level group named name of the project at
// target and returns its children.
func (w *walk) transclude(ctx context.Context, doc *qgsdoc.Document, target, name string, depth int) []menuconf.Node {
	none := []menuconf.Node{}
	if target == "" {
		w.r.record(ctx, Diagnostic{SourceID: name, Filename: doc.Origin(), Depth: depth, Message: "Embedded project reference not found for group."})
		return none
	}

	logger := ctxlog.FromContext(ctx)
	from, to := dag.Key(doc.Origin(), name), dag.Key(target, name)
	if err := w.graph.Link(from, to); err != nil {
		logger.Debug("Embedding refused.", "group", from, "embedded_by", w.graph.EmbeddedBy(from))
		w.r.record(ctx, Diagnostic{SourceID: name, Filename: target, Depth: depth, Message: "Embedding loop detected, group skipped: " + err.Error()})
		return none
	}

	embedded, err := w.r.store.Open(ctx, target)
	if err != nil {
		w.r.record(ctx, Diagnostic{SourceID: name, Filename: target, Depth: depth, Message: "Failed to open embedded project: " + err.Error()})
		return none
	}
	node, ok := embedded.TopLevelGroup(name)
	if !ok {
		w.r.record(ctx, Diagnostic{SourceID: name, Filename: target, Depth: depth, Message: "Embedded group not found in project."})
		return none
	}

	logger.Debug("Transcluding embedded group.", "group", name, "file", target, "depth", depth, "embeds", w.graph.Embeds(from))
	return w.group(ctx, embedded, node, depth).Children
}

func (w *walk) layer(ctx context.Context, doc *qgsdoc.Document, node *etree.Element, depth int) *menuconf.MenuLayerConfig {
	id := node.SelectAttrValue("id", "")
	l := &menuconf.MenuLayerConfig{
		Name:           node.SelectAttrValue("name", ""),
		SourceLayerID:  id,
		SourceFilename: doc.Origin(),
		Visible:        node.SelectAttrValue("checked", "") == "Qt::Checked",
		Expanded:       node.SelectAttrValue("expanded", "0") == "1",
	}

	src := doc
	if isEmbedded(node) {
		l.IsEmbedded = true
		l.SourceFilename = embeddedReference(doc, node)
		if l.SourceFilename == "" {
			w.r.record(ctx, Diagnostic{SourceID: id, Filename: doc.Origin(), Depth: depth, Message: "Embedded project reference not found for layer."})
			return l
		}
		var err error
		if src, err = w.r.store.Open(ctx, l.SourceFilename); err != nil {
			w.r.record(ctx, Diagnostic{SourceID: id, Filename: l.SourceFilename, Depth: depth, Message: "Failed to open embedded project: " + err.Error()})
			return l
		}
	}

	ml, src, ok := w.mapLayer(ctx, src, id, depth)
	if !ok {
		w.r.record(ctx, Diagnostic{SourceID: id, Filename: src.Origin(), Depth: depth, Message: "Map layer definition not found."})
		return l
	}
	if src != doc {
		l.IsEmbedded = true
		l.SourceFilename = src.Origin()
	}
	fillMetadata(l, ml)
	return l
}

// mapLayer looks up a maplayer by id, following native embedded layer stubs
// into the project they point to. It returns the document holding the
// definition.
func (w *walk) mapLayer(ctx context.Context, doc *qgsdoc.Document, id string, depth int) (*etree.Element, *qgsdoc.Document, bool) {
	seen := map[string]bool{doc.Origin(): true}
	for {
		ml, ok := doc.MapLayer(id)
		if !ok {
			return nil, doc, false
		}
		if ml.SelectAttrValue("embedded", "") != "1" {
			return ml, doc, true
		}

		target := ResolveReference(doc, ml.SelectAttrValue("project", ""))
		if target == "" || seen[target] {
			return nil, doc, false
		}
		seen[target] = true

		next, err := w.r.store.Open(ctx, target)
		if err != nil {
			w.r.record(ctx, Diagnostic{SourceID: id, Filename: target, Depth: depth, Message: "Failed to open embedded layer project: " + err.Error()})
			return nil, doc, false
		}
		doc = next
	}
}

func fillMetadata(l *menuconf.MenuLayerConfig, ml *etree.Element) {
	md := ml.SelectElement("resourceMetadata")
	l.MetadataTitle = qgsdoc.ChildText(md, "title")
	l.MetadataAbstract = qgsdoc.ChildText(md, "abstract")
	l.Title = qgsdoc.ChildText(ml, "title")
	l.Abstract = qgsdoc.ChildText(ml, "abstract")
	if notes := ml.SelectElement("userNotes"); notes != nil {
		l.LayerNotes = notes.SelectAttrValue("value", "")
	}

	token := ml.SelectAttrValue("geometry", "")
	if token == "" {
		// Tiled and raster services carry no geometry attribute.
		token = ml.SelectAttrValue("type", "")
	}
	kind, geom, spatial := geometry.Classify(token)
	l.LayerKind = string(kind)
	l.GeometryKind = string(geom)
	l.IsSpatial = spatial
}

func isEmbedded(node *etree.Element) bool {
	if node.SelectAttrValue("embedded", "") == "1" {
		return true
	}
	v, ok := qgsdoc.CustomProperty(node, "embedded")
	return ok && v == "1"
}

// embeddedReference finds the project an embedded node points to, on the
// node itself or its nearest ancestor carrying a reference. It returns ""
// when there is none.
func embeddedReference(doc *qgsdoc.Document, node *etree.Element) string {
	for n := node; n != nil && n.Tag != ""; n = n.Parent() {
		ref := n.SelectAttrValue("project", "")
		if ref == "" {
			ref, _ = qgsdoc.CustomProperty(n, "embedded_project")
		}
		if ref != "" {
			return ResolveReference(doc, ref)
		}
	}
	return ""
}

// ResolveReference anchors a relative reference at the declaring document
// unless that document stores absolute paths.
func ResolveReference(doc *qgsdoc.Document, ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, ".") && !doc.UsesAbsolutePaths():
		return doc.ResolvePath(ref)
	case hasScheme(ref):
		return ref
	}
	if abs, err := filepath.Abs(ref); err == nil {
		return abs
	}
	return ref
}

func hasScheme(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && len(u.Scheme) > 1
}

// projectName picks the descriptor name, then the document title, then the
// file stem.
func projectName(d *config.ProjectDescriptor, doc *qgsdoc.Document) string {
	if d.Name != "" {
		return d.Name
	}
	if title := strings.TrimSpace(doc.Title()); title != "" {
		return title
	}
	return stem(d.URI)
}

func stem(uri string) string {
	base := filepath.Base(strings.TrimPrefix(uri, "file://"))
	if u, err := url.Parse(uri); err == nil && len(u.Scheme) > 1 {
		if p := u.Query().Get("project"); p != "" {
			return p
		}
		base = path.Base(u.Path)
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
