package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/xcaeag/menufromproject/internal/config"
	"github.com/xcaeag/menufromproject/internal/ctxlog"
	"github.com/xcaeag/menufromproject/internal/menuconf"
	"github.com/xcaeag/menufromproject/internal/qgsdoc"
	"github.com/xcaeag/menufromproject/internal/relations"
	"github.com/xcaeag/menufromproject/internal/resolver"
	"github.com/xcaeag/menufromproject/internal/session"
	"github.com/xcaeag/menufromproject/internal/workspace"
)

// Store opens the documents of one activation.
type Store interface {
	Open(ctx context.Context, uri string) (*qgsdoc.Document, error)
	Close() error
}

// LoadedLayer is the result of an activation.
type LoadedLayer struct {
	// Layer is the live layer of the activated entry.
	Layer         *workspace.Layer
	SourceLayerID string
	// LayerIDs are every layer materialized by the activation, the activated
	// one included, in load order.
	LayerIDs []string
	// Sources maps each materialized id to its source layer id.
	Sources map[string]string
	// Relations are the discovered relations; NewID is set on the built ones.
	Relations []relations.Spec
	// Errors are the non-fatal failures of the activation.
	Errors []error
}

// Option configures a Loader.
type Option func(*Loader)

// WithoutRelations disables relation following.
func WithoutRelations() Option {
	return func(l *Loader) { l.followRelations = false }
}

// WithoutJoins disables loading the layers of vector joins.
func WithoutJoins() Option {
	return func(l *Loader) { l.followJoins = false }
}

// Loader activates menu layer entries into a workspace.
type Loader struct {
	ws       workspace.Workspace
	newStore func() Store
	opts     config.Options
	builder  *relations.Builder

	followRelations bool
	followJoins     bool
}

// New creates a Loader. newStore is called once per activation; the store
// is closed when the activation ends. Relations and vector joins are followed
// only when opts.OpenLinks is set.
func New(ws workspace.Workspace, newStore func() Store, opts config.Options, options ...Option) *Loader {
	l := &Loader{
		ws:              ws,
		newStore:        newStore,
		opts:            opts,
		builder:         relations.NewBuilder(ws),
		followRelations: opts.OpenLinks,
		followJoins:     opts.OpenLinks,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Activate loads the layer entry cfg, with everything related to it, and
// builds its relations. menuTitle names the workspace group the layers go to
// when groups are enabled.
func (l *Loader) Activate(ctx context.Context, cfg *menuconf.MenuLayerConfig, menuTitle string) (*LoadedLayer, error) {
	ctx, logger := ctxlog.With(ctx, "layer_id", cfg.SourceLayerID, "uri", cfg.SourceFilename)
	logger.Info("Activating layer.", "name", cfg.Name)

	group, err := l.group(menuTitle)
	if err != nil {
		return nil, err
	}

	store := l.newStore()
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close document store.", "error", err)
		}
	}()

	doc, err := store.Open(ctx, cfg.SourceFilename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.SourceFilename, err)
	}
	defer l.builder.Forget(doc)

	a := &activation{l: l, store: store, doc: doc, sess: session.New(), group: group}
	newID, pending, err := a.load(ctx, cfg.SourceLayerID, workspace.Placement{
		Group:    group,
		Visible:  cfg.Visible,
		Expanded: cfg.Expanded,
	})
	if err != nil {
		return nil, err
	}

	res := &LoadedLayer{
		SourceLayerID: cfg.SourceLayerID,
		LayerIDs:      a.sess.Materialized(),
		Sources:       make(map[string]string),
		Errors:        a.errs,
	}
	for _, id := range res.LayerIDs {
		res.Sources[id], _ = a.sess.SourceID(id)
	}
	res.Layer, _ = l.ws.Layer(newID)

	if err := a.sess.Transition(session.AllDiscovered); err != nil {
		return nil, err
	}
	if err := a.sess.Transition(session.Materializing); err != nil {
		return nil, err
	}
	for i, spec := range pending {
		id, err := l.builder.Build(ctx, doc, spec, a.sess)
		pending[i].NewID = id
		if err != nil {
			res.Errors = append(res.Errors, err)
		}
	}
	for _, j := range a.joins {
		if err := l.ws.SetJoinLayer(j.layerID, j.index, j.joinLayerID); err != nil {
			logger.Warn("Failed to re-point vector join.", "layer", j.layerID, "join", j.index, "error", err)
			res.Errors = append(res.Errors, err)
		}
	}
	if err := a.sess.Transition(session.Done); err != nil {
		return nil, err
	}
	res.Relations = pending

	logger.Info("Layer activated.", "new_layer_id", newID, "layers", len(res.LayerIDs), "relations", len(pending), "errors", len(res.Errors))
	return res, nil
}

// LoadAll activates every direct layer entry of g, in menu order. Groups and
// markers are skipped. A failed entry does not stop the others; the failures
// are joined in the returned error.
func (l *Loader) LoadAll(ctx context.Context, g *menuconf.MenuGroupConfig, menuTitle string) ([]*LoadedLayer, error) {
	if !l.opts.LoadAll {
		return nil, ErrLoadAllDisabled
	}

	entries := menuconf.Layers(g)
	// Grouped layers are inserted at the top of their group.
	grouped := l.opts.CreateGroup && menuTitle != ""
	if grouped {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}

	var (
		loaded []*LoadedLayer
		errs   []error
	)
	for _, entry := range entries {
		res, err := l.Activate(ctx, entry, menuTitle)
		if err != nil {
			ctxlog.FromContext(ctx).Warn("Layer not loaded.", "layer_id", entry.SourceLayerID, "error", err)
			errs = append(errs, err)
			continue
		}
		loaded = append(loaded, res)
	}
	if grouped {
		for i, j := 0, len(loaded)-1; i < j; i, j = i+1, j-1 {
			loaded[i], loaded[j] = loaded[j], loaded[i]
		}
	}
	return loaded, errors.Join(errs...)
}

func (l *Loader) group(menuTitle string) (string, error) {
	if !l.opts.CreateGroup || menuTitle == "" {
		return "", nil
	}
	return l.ws.FindOrCreateGroup(menuTitle)
}

type joinFix struct {
	layerID     string
	index       int
	joinLayerID string
}

// activation is the state of one Activate call.
type activation struct {
	l     *Loader
	store Store
	doc   *qgsdoc.Document
	sess  *session.Session
	// group receives the related and joined layers.
	group string
	joins []joinFix
	errs  []error
}

var _ relations.Materializer = (*activation)(nil)

// LoadRelated implements relations.Materializer. Related layers go hidden
// into the group of the activated layer.
func (a *activation) LoadRelated(ctx context.Context, _ *qgsdoc.Document, id string, _ *session.Session) (string, []relations.Spec, error) {
	return a.load(ctx, id, workspace.Placement{Group: a.group})
}

func (a *activation) load(ctx context.Context, id string, p workspace.Placement) (string, []relations.Spec, error) {
	logger := ctxlog.FromContext(ctx).With("layer_id", id, "depth", a.sess.Depth())
	if err := a.sess.Transition(session.Loading); err != nil {
		return "", nil, err
	}
	ml, src, ok := a.definition(ctx, id)
	if !ok {
		err := &LayerNotFoundError{SourceLayerID: id, Depth: a.sess.Depth()}
		logger.Warn("Layer definition not found.", "uri", a.doc.Origin())
		a.errs = append(a.errs, err)
		return "", nil, err
	}

	newID := a.sess.NewLayerID()
	qgsdoc.SetChildText(ml, "id", newID)
	a.sess.Remember(newID, id)
	fixDatasource(ctx, src, ml)

	var pending []relations.Spec
	if a.l.followRelations {
		pending = a.l.builder.Discover(ctx, a.doc, id, newID, a.sess, a)
	} else {
		a.sess.Visit(id, newID)
	}
	if a.l.followJoins {
		pending = append(pending, a.loadJoins(ctx, ml, newID)...)
	}

	layer, err := a.l.ws.ReadLayer(ml, src.IsTrusted())
	if err != nil {
		a.sess.Forget(newID)
		return "", nil, fmt.Errorf("read layer %s: %w", id, err)
	}
	if err := a.l.ws.AddLayer(layer, p); err != nil {
		a.sess.Forget(newID)
		return "", nil, fmt.Errorf("add layer %s: %w", id, err)
	}
	logger.Debug("Layer loaded.", "new_layer_id", newID, "name", layer.Name)
	return newID, pending, nil
}

// definition clones the maplayer definition of id, following native
// embedded layer stubs. It returns the document holding the definition.
func (a *activation) definition(ctx context.Context, id string) (*etree.Element, *qgsdoc.Document, bool) {
	doc := a.doc
	seen := map[string]bool{doc.Origin(): true}
	for {
		ml, ok := doc.CloneMapLayer(id)
		if !ok {
			return nil, nil, false
		}
		if ml.SelectAttrValue("embedded", "") != "1" {
			return ml, doc, true
		}
		target := resolver.ResolveReference(doc, ml.SelectAttrValue("project", ""))
		if target == "" || seen[target] {
			return nil, nil, false
		}
		seen[target] = true
		next, err := a.store.Open(ctx, target)
		if err != nil {
			ctxlog.FromContext(ctx).Warn("Failed to open embedded layer project.", "layer_id", id, "uri", target, "error", err)
			return nil, nil, false
		}
		doc = next
	}
}

// loadJoins loads the layers of the vector joins of ml, hidden, and records
// the joins to re-point once every layer exists. It returns the relations
// discovered below the joined layers.
func (a *activation) loadJoins(ctx context.Context, ml *etree.Element, newID string) []relations.Spec {
	var specs []relations.Spec
	for i, joinID := range qgsdoc.JoinLayerIDs(ml) {
		if joinID == "" {
			continue
		}
		target, ok := a.sess.Visited(joinID)
		if !ok {
			up := a.sess.Descend()
			var (
				pending []relations.Spec
				err     error
			)
			target, pending, err = a.load(ctx, joinID, workspace.Placement{Group: a.group})
			up()
			if err != nil {
				ctxlog.FromContext(ctx).Warn("Joined layer not loaded.", "layer_id", newID, "join_layer_id", joinID, "error", err)
				continue
			}
			specs = append(specs, pending...)
		}
		a.joins = append(a.joins, joinFix{layerID: newID, index: i, joinLayerID: target})
	}
	return specs
}

// fixDatasource anchors a relative file datasource at the directory of the
// document, unless the document stores absolute paths.
func fixDatasource(ctx context.Context, doc *qgsdoc.Document, ml *etree.Element) {
	if doc.UsesAbsolutePaths() {
		return
	}
	switch strings.ToLower(strings.TrimSpace(qgsdoc.ChildText(ml, "provider"))) {
	case "ogr", "gdal":
	default:
		return
	}
	ds := qgsdoc.ChildText(ml, "datasource")
	if !strings.HasPrefix(ds, ".") {
		return
	}
	resolved := doc.ResolvePath(ds)
	qgsdoc.SetChildText(ml, "datasource", resolved)
	ctxlog.FromContext(ctx).Debug("Datasource made absolute.", "from", ds, "to", resolved)
}
