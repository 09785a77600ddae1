package testutil

import (
	"strings"

	"github.com/beevik/etree"
)

// TreeNode is a layer-tree entry of a Project fixture.
type TreeNode interface {
	build(parent *etree.Element)
}

// Group is a layer-tree group. Project marks it as embedded from that project.
type Group struct {
	Name     string
	Project  string
	Children []TreeNode
}

func (g Group) build(parent *etree.Element) {
	el := parent.CreateElement("layer-tree-group")
	el.CreateAttr("name", g.Name)
	el.CreateAttr("checked", "Qt::Checked")
	el.CreateAttr("expanded", "1")
	if g.Project != "" {
		el.CreateAttr("embedded", "1")
		el.CreateAttr("project", g.Project)
	}
	el.CreateElement("customproperties")
	for _, c := range g.Children {
		c.build(el)
	}
}

// LayerRef is a layer-tree leaf pointing at a maplayer by id.
type LayerRef struct {
	ID       string
	Name     string
	Hidden   bool
	Expanded bool
	// EmbeddedFrom marks the leaf embedded through custom properties.
	EmbeddedFrom string
}

func (l LayerRef) build(parent *etree.Element) {
	el := parent.CreateElement("layer-tree-layer")
	el.CreateAttr("id", l.ID)
	el.CreateAttr("name", l.Name)
	if l.Hidden {
		el.CreateAttr("checked", "Qt::Unchecked")
	} else {
		el.CreateAttr("checked", "Qt::Checked")
	}
	if l.Expanded {
		el.CreateAttr("expanded", "1")
	} else {
		el.CreateAttr("expanded", "0")
	}
	props := el.CreateElement("customproperties")
	if l.EmbeddedFrom != "" {
		opt := props.CreateElement("Option")
		opt.CreateAttr("type", "Map")
		addOption(opt, "embedded", "1")
		addOption(opt, "embedded_project", l.EmbeddedFrom)
	}
}

func addOption(parent *etree.Element, name, value string) {
	o := parent.CreateElement("Option")
	o.CreateAttr("name", name)
	o.CreateAttr("value", value)
	o.CreateAttr("type", "QString")
}

// Layer is a maplayer definition.
type Layer struct {
	ID               string
	Name             string
	Type             string // vector when empty
	Geometry         string
	Provider         string
	Datasource       string
	Title            string
	Abstract         string
	MetadataTitle    string
	MetadataAbstract string
	Notes            string
	Fields           []string
	Joins            []string
	// FormRelations lists relation ids referenced by relation widgets of the
	// layer's edit form.
	FormRelations []string
	// StubOf turns the definition into a native embedded stub pointing at
	// that project.
	StubOf string
}

func (l Layer) build(parent *etree.Element) {
	ml := parent.CreateElement("maplayer")
	if l.StubOf != "" {
		ml.CreateAttr("embedded", "1")
		ml.CreateAttr("project", l.StubOf)
		ml.CreateAttr("id", l.ID)
		return
	}

	typ := l.Type
	if typ == "" {
		typ = "vector"
	}
	ml.CreateAttr("type", typ)
	if l.Geometry != "" {
		ml.CreateAttr("geometry", l.Geometry)
	}
	ml.CreateElement("id").SetText(l.ID)
	ml.CreateElement("layername").SetText(l.Name)
	ml.CreateElement("datasource").SetText(l.Datasource)
	if l.Provider != "" {
		ml.CreateElement("provider").SetText(l.Provider)
	}
	if l.Title != "" {
		ml.CreateElement("title").SetText(l.Title)
	}
	if l.Abstract != "" {
		ml.CreateElement("abstract").SetText(l.Abstract)
	}
	if l.MetadataTitle != "" || l.MetadataAbstract != "" {
		md := ml.CreateElement("resourceMetadata")
		md.CreateElement("title").SetText(l.MetadataTitle)
		md.CreateElement("abstract").SetText(l.MetadataAbstract)
	}
	if l.Notes != "" {
		ml.CreateElement("userNotes").CreateAttr("value", l.Notes)
	}
	if len(l.Fields) > 0 {
		fc := ml.CreateElement("fieldConfiguration")
		for _, f := range l.Fields {
			fc.CreateElement("field").CreateAttr("name", f)
		}
	}
	if len(l.Joins) > 0 {
		vj := ml.CreateElement("vectorjoins")
		for _, j := range l.Joins {
			join := vj.CreateElement("join")
			join.CreateAttr("joinLayerId", j)
			join.CreateAttr("targetFieldName", "id")
			join.CreateAttr("joinFieldName", "id")
		}
	}
	if len(l.FormRelations) > 0 {
		ml.CreateElement("editorlayout").SetText("tablayout")
		form := ml.CreateElement("attributeEditorForm")
		widgets := ml.CreateElement("widgets")
		for _, r := range l.FormRelations {
			rel := form.CreateElement("attributeEditorRelation")
			rel.CreateAttr("relation", r)
			rel.CreateAttr("name", r)
			widgets.CreateElement("widget").CreateAttr("name", r)
		}
	}
}

// Relation is a project relation declaration.
type Relation struct {
	ID          string
	Name        string
	Referencing string
	Referenced  string
	Strength    string // Association when empty
	// Pairs are (referencing field, referenced field).
	Pairs [][2]string
}

func (r Relation) build(parent *etree.Element) {
	el := parent.CreateElement("relation")
	el.CreateAttr("id", r.ID)
	el.CreateAttr("name", r.Name)
	el.CreateAttr("referencingLayer", r.Referencing)
	el.CreateAttr("referencedLayer", r.Referenced)
	strength := r.Strength
	if strength == "" {
		strength = "Association"
	}
	el.CreateAttr("strength", strength)
	for _, p := range r.Pairs {
		fr := el.CreateElement("fieldRef")
		fr.CreateAttr("referencingField", p[0])
		fr.CreateAttr("referencedField", p[1])
	}
}

// Project is a project document fixture.
type Project struct {
	Title     string
	Absolute  bool
	Trusted   bool
	Root      []TreeNode
	Layers    []Layer
	Relations []Relation
}

// XML renders the project document.
func (p Project) XML() string {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("qgis")
	root.CreateAttr("version", "3.34.0")
	root.CreateElement("title").SetText(p.Title)
	if p.Trusted {
		root.CreateElement("trust").CreateAttr("active", "1")
	}

	tree := root.CreateElement("layer-tree-group")
	tree.CreateElement("customproperties")
	for _, n := range p.Root {
		n.build(tree)
	}

	layers := root.CreateElement("projectlayers")
	for _, l := range p.Layers {
		l.build(layers)
	}

	if len(p.Relations) > 0 {
		rels := root.CreateElement("relations")
		for _, r := range p.Relations {
			r.build(rels)
		}
	}

	abs := "false"
	if p.Absolute {
		abs = "true"
	}
	root.CreateElement("properties").CreateElement("Paths").CreateElement("Absolute").SetText(abs)

	doc.Indent(2)
	var sb strings.Builder
	if _, err := doc.WriteTo(&sb); err != nil {
		panic(err)
	}
	return sb.String()
}
