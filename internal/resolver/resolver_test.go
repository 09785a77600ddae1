package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcaeag/menufromproject/internal/config"
	"github.com/xcaeag/menufromproject/internal/ctxlog"
	"github.com/xcaeag/menufromproject/internal/docstore"
	"github.com/xcaeag/menufromproject/internal/menuconf"
	"github.com/xcaeag/menufromproject/internal/qgsdoc"
	tu "github.com/xcaeag/menufromproject/internal/testutil"
)

func resolveFile(t *testing.T, d *config.ProjectDescriptor) (*menuconf.MenuProjectConfig, *Resolver, error) {
	t.Helper()
	store := docstore.New(docstore.WithScratchRoot(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })

	doc, err := store.Open(context.Background(), d.URI)
	require.NoError(t, err)

	r := New(store)
	cfg, err := r.Resolve(context.Background(), d, doc)
	return cfg, r, err
}

func TestResolveLayerTree(t *testing.T) {
	project := tu.Project{
		Title: "Roads project",
		Root: []tu.TreeNode{
			tu.LayerRef{ID: "roads1", Name: "Roads", Expanded: true},
			tu.Group{Name: "-"},
			tu.Group{Name: "-Reference"},
			tu.Group{Name: "Imagery", Children: []tu.TreeNode{
				tu.LayerRef{ID: "ortho1", Name: "Ortho", Hidden: true},
				tu.LayerRef{ID: "ghost", Name: "Ghost"},
			}},
		},
		Layers: []tu.Layer{
			{
				ID: "roads1", Name: "Roads", Geometry: "Line",
				Title: "Road network", Abstract: "All roads",
				MetadataTitle: "MD roads", MetadataAbstract: "MD abstract",
				Notes: "<p>note</p>",
			},
			{ID: "ortho1", Name: "Ortho", Type: "raster"},
		},
	}
	dir := tu.WriteFiles(t, map[string]string{"roads.qgs": project.XML()})
	uri := filepath.Join(dir, "roads.qgs")

	cfg, r, err := resolveFile(t, &config.ProjectDescriptor{ID: "roads", URI: uri})
	require.NoError(t, err)

	want := &menuconf.MenuProjectConfig{
		ProjectName:    "Roads project",
		SourceFilename: uri,
		URI:            uri,
		RootGroup: &menuconf.MenuGroupConfig{
			SourceFilename: uri,
			Children: []menuconf.Node{
				&menuconf.MenuLayerConfig{
					Name: "Roads", SourceLayerID: "roads1", SourceFilename: uri,
					Visible: true, Expanded: true, IsSpatial: true,
					LayerKind: "vector", GeometryKind: "line",
					MetadataTitle: "MD roads", MetadataAbstract: "MD abstract",
					LayerNotes: "<p>note</p>", Title: "Road network", Abstract: "All roads",
				},
				&menuconf.MenuGroupConfig{Name: "-", SourceFilename: uri, Children: []menuconf.Node{}},
				&menuconf.MenuGroupConfig{Name: "-Reference", SourceFilename: uri, Children: []menuconf.Node{}},
				&menuconf.MenuGroupConfig{
					Name: "Imagery", SourceFilename: uri,
					Children: []menuconf.Node{
						&menuconf.MenuLayerConfig{
							Name: "Ortho", SourceLayerID: "ortho1", SourceFilename: uri,
							IsSpatial: true, LayerKind: "raster",
						},
						// Missing maplayer: kept with empty metadata.
						&menuconf.MenuLayerConfig{
							Name: "Ghost", SourceLayerID: "ghost", SourceFilename: uri, Visible: true,
						},
					},
				},
			},
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("resolved config mismatch (-want +got):\n%s", diff)
	}

	diags := r.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "ghost", diags[0].SourceID)
	assert.Equal(t, 2, diags[0].Depth)
}

func TestResolveEmbeddedGroupIsTransclusion(t *testing.T) {
	hydro := tu.Project{
		Title: "Hydro",
		Root: []tu.TreeNode{
			tu.Group{Name: "Water", Children: []tu.TreeNode{
				tu.LayerRef{ID: "rivers", Name: "Rivers"},
				tu.Group{Name: "Lakes", Children: []tu.TreeNode{tu.LayerRef{ID: "lakes", Name: "Lakes"}}},
			}},
		},
		Layers: []tu.Layer{
			{ID: "rivers", Name: "Rivers", Geometry: "Line"},
			{ID: "lakes", Name: "Lakes", Geometry: "Polygon"},
		},
	}
	main := tu.Project{
		Title: "Main",
		Root: []tu.TreeNode{
			tu.Group{Name: "Water", Project: "./sub/hydro.qgs", Children: []tu.TreeNode{
				// Stale copy of the embedded tree, ignored.
				tu.LayerRef{ID: "stale", Name: "Stale"},
			}},
		},
	}
	dir := tu.WriteFiles(t, map[string]string{
		"main.qgs":      main.XML(),
		"sub/hydro.qgs": hydro.XML(),
	})
	hydroURI := filepath.Join(dir, "sub", "hydro.qgs")

	viaMain, _, err := resolveFile(t, &config.ProjectDescriptor{URI: filepath.Join(dir, "main.qgs")})
	require.NoError(t, err)
	direct, _, err := resolveFile(t, &config.ProjectDescriptor{URI: hydroURI})
	require.NoError(t, err)

	embedded, ok := menuconf.FindGroup(viaMain, "Water")
	require.True(t, ok)
	assert.True(t, embedded.IsEmbedded)
	assert.Equal(t, hydroURI, embedded.SourceFilename)

	original, ok := menuconf.FindGroup(direct, "Water")
	require.True(t, ok)
	if diff := cmp.Diff(original.Children, embedded.Children); diff != "" {
		t.Errorf("transcluded children differ (-direct +embedded):\n%s", diff)
	}
}

func TestResolveEmbeddingLoopTerminates(t *testing.T) {
	a := tu.Project{Root: []tu.TreeNode{tu.Group{Name: "G", Project: "./b.qgs"}}}
	b := tu.Project{Root: []tu.TreeNode{tu.Group{Name: "G", Project: "./a.qgs"}}}
	self := tu.Project{Root: []tu.TreeNode{tu.Group{Name: "S", Project: "./self.qgs"}}}
	dir := tu.WriteFiles(t, map[string]string{
		"a.qgs":    a.XML(),
		"b.qgs":    b.XML(),
		"self.qgs": self.XML(),
	})

	for _, name := range []string{"a.qgs", "self.qgs"} {
		t.Run(name, func(t *testing.T) {
			cfg, r, err := resolveFile(t, &config.ProjectDescriptor{URI: filepath.Join(dir, name)})
			require.NoError(t, err)
			require.Len(t, cfg.RootGroup.Children, 1)
			assert.NotEmpty(t, r.Diagnostics())
			assert.Contains(t, r.Diagnostics()[len(r.Diagnostics())-1].Message, "loop")
		})
	}
}

func TestResolveEmbeddingLoopLogsChain(t *testing.T) {
	a := tu.Project{Root: []tu.TreeNode{tu.Group{Name: "G", Project: "./b.qgs"}}}
	b := tu.Project{Root: []tu.TreeNode{tu.Group{Name: "G", Project: "./a.qgs"}}}
	dir := tu.WriteFiles(t, map[string]string{"a.qgs": a.XML(), "b.qgs": b.XML()})

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	store := docstore.New(docstore.WithScratchRoot(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })
	doc, err := store.Open(ctx, filepath.Join(dir, "a.qgs"))
	require.NoError(t, err)
	_, err = New(store).Resolve(ctx, &config.ProjectDescriptor{URI: doc.Origin()}, doc)
	require.NoError(t, err)

	records := map[string]map[string]any{}
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var rec map[string]any
		require.NoError(t, dec.Decode(&rec))
		records[rec["msg"].(string)] = rec
	}

	require.Contains(t, records, "Transcluding embedded group.")
	assert.Len(t, records["Transcluding embedded group."]["embeds"], 1)
	require.Contains(t, records, "Embedding refused.")
	assert.Len(t, records["Embedding refused."]["embedded_by"], 1, "b#G is embedded by a#G")
	require.Contains(t, records, "Project layer tree resolved.")
	assert.EqualValues(t, 2, records["Project layer tree resolved."]["embedded_groups"])
}

func TestResolveEmbeddedLayers(t *testing.T) {
	lib := tu.Project{
		Layers: []tu.Layer{{ID: "parcels", Name: "Parcels", Geometry: "Polygon", Title: "Cadastre"}},
	}
	main := tu.Project{
		Title: "Main",
		Root: []tu.TreeNode{
			tu.LayerRef{ID: "parcels", Name: "Parcels A", EmbeddedFrom: "./lib.qgs"},
			tu.LayerRef{ID: "parcels", Name: "Parcels B"},
			tu.LayerRef{ID: "nowhere", Name: "Broken", EmbeddedFrom: "./missing.qgs"},
		},
		// Native embedded stub: the definition lives in lib.qgs.
		Layers: []tu.Layer{{ID: "parcels", StubOf: "./lib.qgs"}},
	}
	dir := tu.WriteFiles(t, map[string]string{
		"main.qgs": main.XML(),
		"lib.qgs":  lib.XML(),
	})
	libURI := filepath.Join(dir, "lib.qgs")

	cfg, r, err := resolveFile(t, &config.ProjectDescriptor{URI: filepath.Join(dir, "main.qgs")})
	require.NoError(t, err)
	require.Len(t, cfg.RootGroup.Children, 3)

	for _, n := range cfg.RootGroup.Children[:2] {
		l := n.(*menuconf.MenuLayerConfig)
		assert.True(t, l.IsEmbedded, l.Name)
		assert.Equal(t, libURI, l.SourceFilename, l.Name)
		assert.Equal(t, "Cadastre", l.Title, l.Name)
		assert.Equal(t, "polygon", l.GeometryKind, l.Name)
	}

	broken := cfg.RootGroup.Children[2].(*menuconf.MenuLayerConfig)
	assert.True(t, broken.IsEmbedded)
	assert.Empty(t, broken.Title)
	assert.False(t, broken.IsSpatial)
	require.Len(t, r.Diagnostics(), 1)
	assert.Equal(t, "nowhere", r.Diagnostics()[0].SourceID)
}

func TestProjectName(t *testing.T) {
	titled, err := qgsdoc.Parse([]byte(`<qgis><title>Doc title</title><layer-tree-group/></qgis>`), "/x/p.qgs")
	require.NoError(t, err)
	untitled, err := qgsdoc.Parse([]byte(`<qgis><layer-tree-group/></qgis>`), "/x/p.qgs")
	require.NoError(t, err)

	assert.Equal(t, "Named", projectName(&config.ProjectDescriptor{Name: "Named", URI: "/x/p.qgs"}, titled))
	assert.Equal(t, "Doc title", projectName(&config.ProjectDescriptor{URI: "/x/p.qgs"}, titled))
	assert.Equal(t, "p", projectName(&config.ProjectDescriptor{URI: "/x/p.qgs"}, untitled))
	assert.Equal(t, "roads", projectName(&config.ProjectDescriptor{URI: "https://example.org/dl/roads.qgz"}, untitled))
	assert.Equal(t, "cad", projectName(&config.ProjectDescriptor{URI: "postgresql://db?dbname=gis&project=cad"}, untitled))
}

func TestResolveWithoutLayerTree(t *testing.T) {
	doc, err := qgsdoc.Parse([]byte(`<qgis><title>empty</title></qgis>`), "/x/empty.qgs")
	require.NoError(t, err)

	_, err = New(docstore.New()).Resolve(context.Background(), &config.ProjectDescriptor{URI: "/x/empty.qgs"}, doc)
	assert.ErrorIs(t, err, ErrNoLayerTree)
}

func TestResolveReference(t *testing.T) {
	rel, err := qgsdoc.Parse([]byte(`<qgis><layer-tree-group/></qgis>`), "/srv/gis/main.qgs")
	require.NoError(t, err)
	abs, err := qgsdoc.Parse([]byte(`<qgis><layer-tree-group/><properties><Paths><Absolute>true</Absolute></Paths></properties></qgis>`), "/srv/gis/main.qgs")
	require.NoError(t, err)

	assert.Equal(t, "/srv/gis/sub/x.qgs", ResolveReference(rel, "./sub/x.qgs"))
	assert.Equal(t, "/srv/other.qgs", ResolveReference(rel, "../other.qgs"))
	assert.Equal(t, "/data/x.qgs", ResolveReference(abs, "/data/x.qgs"))
	assert.Equal(t, "https://example.org/x.qgs", ResolveReference(rel, "https://example.org/x.qgs"))
	assert.Equal(t, "", ResolveReference(rel, "  "))
}
