package relations

import (
	"context"
	"errors"
	"sync"

	"github.com/beevik/etree"

	"github.com/xcaeag/menufromproject/internal/ctxlog"
	"github.com/xcaeag/menufromproject/internal/qgsdoc"
	"github.com/xcaeag/menufromproject/internal/session"
	"github.com/xcaeag/menufromproject/internal/workspace"
)

// Materializer loads a related layer during discovery. It returns the new id
// of the layer and the specs discovered below it.
type Materializer interface {
	LoadRelated(ctx context.Context, doc *qgsdoc.Document, sourceLayerID string, sess *session.Session) (newID string, pending []Spec, err error)
}

// Builder discovers and builds relations into a workspace.
type Builder struct {
	ws workspace.Workspace

	mu     sync.Mutex
	parsed map[*qgsdoc.Document][]Spec
}

// NewBuilder creates a Builder registering relations into ws.
func NewBuilder(ws workspace.Workspace) *Builder {
	return &Builder{ws: ws, parsed: make(map[*qgsdoc.Document][]Spec)}
}

// specs parses the relations of doc once per document.
func (b *Builder) specs(ctx context.Context, doc *qgsdoc.Document) []Spec {
	b.mu.Lock()
	defer b.mu.Unlock()
	specs, ok := b.parsed[doc]
	if !ok {
		specs = Parse(ctx, doc)
		b.parsed[doc] = specs
	}
	return specs
}

// Forget drops the parsed relations of doc.
func (b *Builder) Forget(doc *qgsdoc.Document) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.parsed, doc)
}

// Discover returns the specs to build for the source layer oldID, freshly
// materialized as newID, loading every referencing layer not yet reached in
// the session. Specs of descendants come first.
func (b *Builder) Discover(ctx context.Context, doc *qgsdoc.Document, oldID, newID string, sess *session.Session, m Materializer) []Spec {
	logger := ctxlog.FromContext(ctx).With("layer_id", oldID, "depth", sess.Depth())
	if err := sess.Transition(session.Discovering); err != nil {
		logger.Error("Cannot discover relations.", "error", err)
		return nil
	}
	sess.Visit(oldID, newID)

	var pending, specs []Spec
	for _, rel := range b.specs(ctx, doc) {
		if rel.ReferencedLayerID != oldID {
			continue
		}

		spec := rel
		spec.FieldPairs = append([]workspace.FieldPair(nil), rel.FieldPairs...)
		spec.ReferencedLayerID = newID

		if existing, ok := sess.Visited(rel.ReferencingLayerID); ok {
			logger.Debug("Referencing layer already loaded, closing loop.",
				"relation_id", rel.OldID, "referencing", rel.ReferencingLayerID)
			spec.ReferencingLayerID = existing
			specs = append(specs, spec)
			continue
		}

		up := sess.Descend()
		childID, childPending, err := m.LoadRelated(ctx, doc, rel.ReferencingLayerID, sess)
		up()
		if err != nil {
			logger.Warn("Related layer not loaded, relation skipped.",
				"relation_id", rel.OldID, "referencing", rel.ReferencingLayerID, "error", err)
			continue
		}
		pending = append(pending, childPending...)
		spec.ReferencingLayerID = childID
		specs = append(specs, spec)
	}
	return append(pending, specs...)
}

// Build registers spec under a fresh relation id and re-points the edit form
// of its referenced layer. The returned error is an *InvalidRelationError
// when nothing was registered, or a *FormFixError when only the form fix
// failed.
func (b *Builder) Build(ctx context.Context, doc *qgsdoc.Document, spec Spec, sess *session.Session) (string, error) {
	logger := ctxlog.FromContext(ctx).With("relation_id", spec.OldID, "relation", spec.Name)

	newID := sess.NewRelationID()
	rel := workspace.Relation{
		ID:                 newID,
		Name:               spec.Name,
		Strength:           spec.Strength,
		ReferencingLayerID: spec.ReferencingLayerID,
		ReferencedLayerID:  spec.ReferencedLayerID,
		FieldPairs:         spec.FieldPairs,
	}
	if err := b.ws.AddRelation(rel); err != nil {
		err = &InvalidRelationError{Name: spec.Name, Err: err}
		logger.Warn("Relation not built.", "error", err)
		return "", err
	}
	sess.RememberRelation(spec.OldID, newID)

	if err := b.fixForm(doc, spec.ReferencedLayerID, sess); err != nil {
		err = &FormFixError{LayerID: spec.ReferencedLayerID, RelationID: newID, Err: err}
		logger.Warn("Edit form not re-pointed.", "error", err)
		return newID, err
	}
	logger.Debug("Relation built.", "new_relation_id", newID)
	return newID, nil
}

// fixForm copies the edit form of the referenced layer from the original
// document, rewrites every relation reference remapped in the session and
// installs the copy on the live layer.
func (b *Builder) fixForm(doc *qgsdoc.Document, layerID string, sess *session.Session) error {
	oldLayerID, ok := sess.SourceID(layerID)
	if !ok {
		return errors.New("layer was not loaded in this session")
	}
	ml, ok := doc.MapLayer(oldLayerID)
	if !ok {
		return errors.New("source layer " + oldLayerID + " not found")
	}

	form := qgsdoc.EditFormConfig(ml)
	changed := false
	remap := func(el *etree.Element, attr string) {
		if newID, ok := sess.RelationID(el.SelectAttrValue(attr, "")); ok {
			el.CreateAttr(attr, newID)
			changed = true
		}
	}
	for _, el := range form.FindElements(".//attributeEditorRelation") {
		remap(el, "relation")
	}
	if widgets := form.SelectElement("widgets"); widgets != nil {
		for _, w := range widgets.SelectElements("widget") {
			remap(w, "name")
		}
	}
	if !changed {
		return nil
	}
	return b.ws.SetEditForm(layerID, form)
}
