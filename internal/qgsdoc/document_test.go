package qgsdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProject = `<?xml version="1.0" encoding="UTF-8"?>
<qgis projectname="" version="3.34.0">
  <title>Sample</title>
  <trust active="1"/>
  <layer-tree-group>
    <customproperties/>
    <layer-tree-group name="Water" checked="Qt::Checked" expanded="1">
      <layer-tree-layer id="L1" name="Rivers" checked="Qt::Checked" expanded="0"/>
    </layer-tree-group>
    <layer-tree-group name="-"/>
  </layer-tree-group>
  <relations>
    <relation id="rel1" name="fk" strength="Association" referencedLayer="L1" referencingLayer="L2">
      <fieldRef referencedField="id" referencingField="river_id"/>
    </relation>
  </relations>
  <projectlayers>
    <maplayer type="vector" geometry="Line">
      <id>L1</id>
      <datasource>./rivers.shp</datasource>
      <provider encoding="UTF-8">ogr</provider>
      <fieldConfiguration>
        <field name="id"/>
        <field name="name"/>
      </fieldConfiguration>
      <aliases>
        <alias field="name" name="Name"/>
        <alias field="length" name=""/>
      </aliases>
      <vectorjoins>
        <join joinLayerId="L3"/>
      </vectorjoins>
      <attributeEditorForm>
        <attributeEditorRelation relation="rel1"/>
      </attributeEditorForm>
      <widgets>
        <widget name="rel1"/>
      </widgets>
    </maplayer>
    <maplayer embedded="1" project="./other.qgs" id="L9"/>
  </projectlayers>
  <properties>
    <Paths>
      <Absolute type="bool">false</Absolute>
    </Paths>
  </properties>
</qgis>`

func parseSample(t *testing.T, origin string) *Document {
	t.Helper()
	doc, err := Parse([]byte(sampleProject), origin)
	require.NoError(t, err)
	return doc
}

func TestParseFlagsAndLookups(t *testing.T) {
	doc := parseSample(t, "/a/b/project.qgs")

	assert.Equal(t, "Sample", doc.Title())
	assert.True(t, doc.IsTrusted())
	assert.False(t, doc.UsesAbsolutePaths())
	assert.Equal(t, "/a/b", doc.Dir())

	root, ok := doc.LayerTreeRoot()
	require.True(t, ok)
	assert.Len(t, root.SelectElements(TagLayerTreeGroup), 2)

	water, ok := doc.TopLevelGroup("Water")
	require.True(t, ok)
	assert.Equal(t, "Water", water.SelectAttrValue("name", ""))

	_, ok = doc.TopLevelGroup("Missing")
	assert.False(t, ok)

	ml, ok := doc.MapLayer("L1")
	require.True(t, ok)
	assert.Equal(t, "ogr", ChildText(ml, "provider"))

	stub, ok := doc.MapLayer("L9")
	require.True(t, ok, "embedded stubs are indexed by their id attribute")
	assert.Equal(t, "./other.qgs", stub.SelectAttrValue("project", ""))

	assert.Len(t, doc.Relations(), 1)
}

func TestParseRejectsInvalidXML(t *testing.T) {
	_, err := Parse([]byte("<qgis><unclosed></qgis>"), "broken.qgs")
	assert.Error(t, err)

	_, err = Parse([]byte(""), "empty.qgs")
	assert.Error(t, err)
}

func TestCloneMapLayerIsDetached(t *testing.T) {
	doc := parseSample(t, "/a/b/project.qgs")

	clone, ok := doc.CloneMapLayer("L1")
	require.True(t, ok)
	SetChildText(clone, "id", "Lnew")

	original, _ := doc.MapLayer("L1")
	assert.Equal(t, "L1", ChildText(original, "id"))
	assert.Equal(t, "Lnew", ChildText(clone, "id"))
}

func TestResolvePath(t *testing.T) {
	local := parseSample(t, "/a/b/project.qgs")
	assert.Equal(t, "/a/b/data.shp", local.ResolvePath("./data.shp"))
	assert.Equal(t, "/a/other/x.qgs", local.ResolvePath("../other/x.qgs"))

	remote := parseSample(t, "https://example.org/projects/main.qgz")
	assert.Equal(t, "https://example.org/projects/sub/b.qgs", remote.ResolvePath("./sub/b.qgs"))
}

func TestLayerHelpers(t *testing.T) {
	doc := parseSample(t, "/a/b/project.qgs")
	ml, _ := doc.MapLayer("L1")

	assert.Equal(t, []string{"id", "name", "length"}, Fields(ml))
	assert.Equal(t, []string{"L3"}, JoinLayerIDs(ml))

	form := EditFormConfig(ml)
	require.NotNil(t, form.SelectElement("attributeEditorForm"))
	require.NotNil(t, form.SelectElement("widgets"))

	form.SelectElement("widgets").SelectElement("widget").CreateAttr("name", "changed")
	assert.Equal(t, "rel1", Descend(ml, "widgets", "widget").SelectAttrValue("name", ""), "form copy must not alias the layer")
}

func TestCustomProperty(t *testing.T) {
	doc, err := Parse([]byte(`<qgis><layer-tree-group>
  <layer-tree-group name="A">
    <customproperties>
      <Option type="Map">
        <Option name="embedded" value="1" type="QString"/>
        <Option name="embedded_project" value="./b.qgs" type="QString"/>
      </Option>
    </customproperties>
  </layer-tree-group>
  <layer-tree-group name="B">
    <customproperties>
      <property key="embedded" value="1"/>
    </customproperties>
  </layer-tree-group>
</layer-tree-group></qgis>`), "p.qgs")
	require.NoError(t, err)

	a, _ := doc.TopLevelGroup("A")
	v, ok := CustomProperty(a, "embedded_project")
	assert.True(t, ok)
	assert.Equal(t, "./b.qgs", v)

	b, _ := doc.TopLevelGroup("B")
	v, ok = CustomProperty(b, "embedded")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = CustomProperty(b, "embedded_project")
	assert.False(t, ok)
}
