package relations

import (
	"context"

	"github.com/beevik/etree"

	"github.com/xcaeag/menufromproject/internal/ctxlog"
	"github.com/xcaeag/menufromproject/internal/qgsdoc"
	"github.com/xcaeag/menufromproject/internal/workspace"
)

// Spec is a relation declaration. Parsed specs carry source layer ids;
// discovered specs carry the new ids of the materialized layers.
type Spec struct {
	OldID string
	// NewID is the id the relation was built under, empty until built.
	NewID              string
	Name               string
	Strength           workspace.Strength
	ReferencedLayerID  string
	ReferencingLayerID string
	FieldPairs         []workspace.FieldPair
}

// Parse reads the relation declarations of doc. Declarations missing an id,
// a layer, a known strength or a complete field reference are logged and
// dropped.
func Parse(ctx context.Context, doc *qgsdoc.Document) []Spec {
	logger := ctxlog.FromContext(ctx)

	var specs []Spec
	for _, el := range doc.Relations() {
		spec, reason := parseRelation(el)
		if reason != "" {
			logger.Warn("Dropping malformed relation declaration.",
				"relation_id", el.SelectAttrValue("id", ""), "reason", reason, "uri", doc.Origin())
			continue
		}
		specs = append(specs, spec)
	}
	return specs
}

func parseRelation(el *etree.Element) (Spec, string) {
	spec := Spec{
		OldID:              el.SelectAttrValue("id", ""),
		Name:               el.SelectAttrValue("name", ""),
		ReferencedLayerID:  el.SelectAttrValue("referencedLayer", ""),
		ReferencingLayerID: el.SelectAttrValue("referencingLayer", ""),
	}
	switch {
	case spec.OldID == "":
		return Spec{}, "missing id"
	case spec.ReferencedLayerID == "":
		return Spec{}, "missing referencedLayer"
	case spec.ReferencingLayerID == "":
		return Spec{}, "missing referencingLayer"
	}

	strength, ok := workspace.ParseStrength(el.SelectAttrValue("strength", ""))
	if !ok {
		return Spec{}, "unknown strength " + el.SelectAttrValue("strength", "")
	}
	spec.Strength = strength

	for _, fr := range el.SelectElements("fieldRef") {
		pair := workspace.FieldPair{
			Referencing: fr.SelectAttrValue("referencingField", ""),
			Referenced:  fr.SelectAttrValue("referencedField", ""),
		}
		if pair.Referencing == "" || pair.Referenced == "" {
			return Spec{}, "incomplete fieldRef"
		}
		spec.FieldPairs = append(spec.FieldPairs, pair)
	}
	if len(spec.FieldPairs) == 0 {
		return Spec{}, "no fieldRef"
	}
	return spec, ""
}
