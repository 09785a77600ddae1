package menuconf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcaeag/menufromproject/internal/config"
)

func sampleConfig() *MenuProjectConfig {
	return &MenuProjectConfig{
		ProjectName:    "Roads",
		SourceFilename: "/srv/roads.qgs",
		URI:            "/srv/roads.qgs",
		RootGroup: &MenuGroupConfig{
			Children: []Node{
				&MenuLayerConfig{Name: "A", SourceLayerID: "a1", LayerKind: "vector", GeometryKind: "line", IsSpatial: true, Visible: true},
				&MenuGroupConfig{Name: "-"},
				&MenuGroupConfig{Name: "-Titles"},
				&MenuGroupConfig{
					Name: "Hydro",
					Children: []Node{
						&MenuLayerConfig{Name: "Rivers", SourceLayerID: "r1"},
						&MenuGroupConfig{Name: "Empty", Children: []Node{}},
					},
				},
			},
		},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	cfg := sampleConfig()
	data, err := Encode(cfg)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	// Marker groups without children decode with an empty, non-nil slice.
	want := sampleConfig()
	want.RootGroup.Children[1].(*MenuGroupConfig).Children = []Node{}
	want.RootGroup.Children[2].(*MenuGroupConfig).Children = []Node{}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeLegacyAndUnknownFields(t *testing.T) {
	data := []byte(`{
		"project_name": "Old",
		"future_field": 42,
		"root_group": {
			"name": "",
			"childs": [
				{"name": "G", "childs": [{"name": "L", "source_layer_id": "x", "colour": "red"}]},
				{"name": "L2", "source_layer_id": "y"}
			]
		}
	}`)

	cfg, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, cfg.RootGroup.Children, 2)

	g, ok := cfg.RootGroup.Children[0].(*MenuGroupConfig)
	require.True(t, ok)
	require.Len(t, g.Children, 1)
	assert.Equal(t, "x", g.Children[0].(*MenuLayerConfig).SourceLayerID)

	l, ok := cfg.RootGroup.Children[1].(*MenuLayerConfig)
	require.True(t, ok)
	assert.Equal(t, "L2", l.Name)
}

func TestDecodeRejectsMissingRoot(t *testing.T) {
	_, err := Decode([]byte(`{"project_name": "x"}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestMarkers(t *testing.T) {
	testCases := []struct {
		name      string
		separator bool
		title     bool
	}{
		{name: "-", separator: true},
		{name: "-Roads", title: true},
		{name: "Roads"},
		{name: ""},
	}
	for _, tc := range testCases {
		g := &MenuGroupConfig{Name: tc.name}
		assert.Equal(t, tc.separator, g.IsSeparator(), tc.name)
		assert.Equal(t, tc.title, g.IsTitle(), tc.name)
		assert.Equal(t, tc.separator || tc.title, g.IsMarker(), tc.name)
	}
	assert.Equal(t, "Roads", TitleLabel("-Roads"))
}

func TestWalkAndFind(t *testing.T) {
	cfg := sampleConfig()

	var names []string
	Walk(cfg.RootGroup, func(n Node, depth int) bool {
		names = append(names, n.NodeName())
		return true
	})
	assert.Equal(t, []string{"A", "-", "-Titles", "Hydro", "Rivers", "Empty"}, names)

	l, ok := FindLayer(cfg, "r1")
	require.True(t, ok)
	assert.Equal(t, "Rivers", l.Name)
	_, ok = FindLayer(cfg, "missing")
	assert.False(t, ok)

	g, ok := FindGroup(cfg, "Hydro")
	require.True(t, ok)
	assert.Len(t, Layers(g), 1)
	_, ok = FindGroup(cfg, "-")
	assert.False(t, ok)
}

func TestTooltip(t *testing.T) {
	full := &MenuLayerConfig{
		MetadataTitle: "MT", MetadataAbstract: "MA",
		Title: "LT", Abstract: "LA",
		LayerNotes: "notes",
	}

	testCases := []struct {
		name     string
		layer    *MenuLayerConfig
		sources  []string
		expected string
	}{
		{name: "ogc first", layer: full, sources: []string{"ogc", "layer", "note"}, expected: "<b>MT</b><br/>MA"},
		{name: "layer first", layer: full, sources: []string{"layer", "ogc"}, expected: "<b>LT</b><br/>LA"},
		{name: "notes only", layer: full, sources: []string{"note"}, expected: "<p>notes</p>"},
		{name: "title falls through", layer: &MenuLayerConfig{Title: "LT", LayerNotes: "n"}, sources: []string{"ogc", "layer", "note"}, expected: "<b>LT</b><br/>n"},
		{name: "title only", layer: &MenuLayerConfig{MetadataTitle: "MT"}, sources: []string{"ogc"}, expected: "<b>MT</b><br/>"},
		{name: "nothing", layer: &MenuLayerConfig{}, sources: []string{"ogc", "layer", "note"}, expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Tooltip(tc.layer, tc.sources))
		})
	}
}

func TestPlan(t *testing.T) {
	mk := func(name string, p config.Placement) Entry {
		return Entry{
			Descriptor: &config.ProjectDescriptor{Name: name, Placement: p},
			Config:     &MenuProjectConfig{ProjectName: name, RootGroup: &MenuGroupConfig{}},
		}
	}

	entries := []Entry{
		mk("first", config.PlacementMergeWithPrevious),
		mk("second", config.PlacementMergeWithPrevious),
		{Descriptor: &config.ProjectDescriptor{Name: "broken"}},
		mk("third", config.PlacementAppendToLayerMenu),
		mk("fourth", config.PlacementMergeWithPrevious),
		mk("fifth", config.PlacementNewMenu),
	}

	menus := Plan(entries)
	require.Len(t, menus, 3)

	assert.Equal(t, "first", menus[0].Title)
	assert.Equal(t, config.PlacementNewMenu, menus[0].Placement)
	assert.Len(t, menus[0].Projects, 2)

	assert.Equal(t, "third", menus[1].Title)
	assert.Equal(t, config.PlacementAppendToLayerMenu, menus[1].Placement)
	require.Len(t, menus[1].Projects, 2)
	assert.Equal(t, "fourth", menus[1].Projects[1].ProjectName)

	assert.Equal(t, "fifth", menus[2].Title)
}
