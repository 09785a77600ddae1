package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcaeag/menufromproject/internal/config"
	"github.com/xcaeag/menufromproject/internal/httpfetch"
	"github.com/xcaeag/menufromproject/internal/menuconf"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func sampleConfig() *menuconf.MenuProjectConfig {
	return &menuconf.MenuProjectConfig{
		ProjectName:    "Roads",
		SourceFilename: "/srv/roads.qgs",
		URI:            "/srv/roads.qgs",
		RootGroup: &menuconf.MenuGroupConfig{
			Children: []menuconf.Node{
				&menuconf.MenuLayerConfig{Name: "A", SourceLayerID: "a1", IsSpatial: true, LayerKind: "vector"},
				&menuconf.MenuGroupConfig{Name: "G", Children: []menuconf.Node{}},
			},
		},
	}
}

func newTestCache(t *testing.T, clk *clock) *Cache {
	t.Helper()
	return New(t.TempDir(), WithClock(clk.Now), WithFetcher(httpfetch.New(time.Second)))
}

func descriptor(policy config.CachePolicy) *config.ProjectDescriptor {
	return &config.ProjectDescriptor{ID: "roads", Name: "Roads", URI: "/srv/roads.qgs", Cache: policy}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, &clock{now: t0})
	d := descriptor(config.CachePolicy{Enabled: true, RefreshPeriod: 24 * time.Hour})

	_, ok := c.Get(ctx, d)
	assert.False(t, ok, "empty cache is a miss")

	require.NoError(t, c.Put(ctx, d, sampleConfig()))
	got, ok := c.Get(ctx, d)
	require.True(t, ok)
	if diff := cmp.Diff(sampleConfig(), got); diff != "" {
		t.Errorf("cached config mismatch (-want +got):\n%s", diff)
	}

	info, err := os.ReadFile(filepath.Join(c.Root(), "roads", infoFile))
	require.NoError(t, err)
	assert.JSONEq(t, `{"last_refresh": "2026-03-01T12:00:00Z"}`, string(info))
}

func TestDisabledPolicyIsMiss(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, &clock{now: t0})
	d := descriptor(config.CachePolicy{Enabled: false})

	require.NoError(t, c.Put(ctx, d, sampleConfig()))
	_, ok := c.Get(ctx, d)
	assert.False(t, ok)
}

func TestRefreshPeriod(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: t0}
	c := newTestCache(t, clk)
	d := descriptor(config.CachePolicy{Enabled: true, RefreshPeriod: 7 * 24 * time.Hour})

	require.NoError(t, c.Put(ctx, d, sampleConfig()))

	clk.now = t0.Add(7 * 24 * time.Hour)
	_, ok := c.Get(ctx, d)
	assert.True(t, ok, "boundary is still fresh")

	clk.now = t0.Add(7*24*time.Hour + time.Second)
	_, ok = c.Get(ctx, d)
	assert.False(t, ok, "expired entry is a miss")

	require.NoError(t, c.Put(ctx, d, sampleConfig()))
	_, ok = c.Get(ctx, d)
	assert.True(t, ok, "fresh put is a hit again")

	// Without a refresh period entries never expire.
	d.Cache.RefreshPeriod = 0
	clk.now = t0.Add(10 * 365 * 24 * time.Hour)
	_, ok = c.Get(ctx, d)
	assert.True(t, ok)
}

func TestValidationFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/newer.json":
			_, _ = w.Write([]byte(`{"last_release": "2026-03-05T08:00:00Z"}`))
		case "/older.json":
			_, _ = w.Write([]byte(`{"last_release": "2020-01-01"}`))
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	testCases := []struct {
		name     string
		uri      string
		expected bool
	}{
		{name: "local newer release", uri: write("newer.json", `{"last_release": "2026-03-04 00:00:00", "note": "x"}`), expected: false},
		{name: "local legacy newer release", uri: write("legacy.json", `{"last_release": "15/03/2026 10:00:00"}`), expected: false},
		{name: "local older release", uri: write("older.json", `{"last_release": "2025-12-31T23:00:00"}`), expected: true},
		{name: "local missing file", uri: filepath.Join(dir, "missing.json"), expected: true},
		{name: "local broken json", uri: write("broken.json", `{not json`), expected: true},
		{name: "local unknown timestamp", uri: write("weird.json", `{"last_release": "yesterday"}`), expected: true},
		{name: "http newer release", uri: srv.URL + "/newer.json", expected: false},
		{name: "http older release", uri: srv.URL + "/older.json", expected: true},
		{name: "http failure", uri: srv.URL + "/down.json", expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestCache(t, &clock{now: t0})
			d := descriptor(config.CachePolicy{Enabled: true, ValidationURI: tc.uri})
			require.NoError(t, c.Put(ctx, d, sampleConfig()))

			_, ok := c.Get(ctx, d)
			assert.Equal(t, tc.expected, ok)
		})
	}
}

func TestLegacyTimestampAndCorruptEntries(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Date(2026, 3, 3, 0, 0, 0, 0, time.Local)}
	c := newTestCache(t, clk)
	d := descriptor(config.CachePolicy{Enabled: true, RefreshPeriod: 24 * time.Hour})
	entry := filepath.Join(c.Root(), Key(d))

	require.NoError(t, c.Put(ctx, d, sampleConfig()))

	// Entries written by older versions use dd/mm/YYYY timestamps.
	require.NoError(t, os.WriteFile(filepath.Join(entry, infoFile), []byte(`{"last_refresh": "02/03/2026 12:00:00"}`), 0o644))
	_, ok := c.Get(ctx, d)
	assert.True(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(entry, infoFile), []byte(`{"other": 1}`), 0o644))
	_, ok = c.Get(ctx, d)
	assert.False(t, ok, "missing last_refresh is a miss")

	require.NoError(t, c.Put(ctx, d, sampleConfig()))
	require.NoError(t, os.WriteFile(filepath.Join(entry, configFile), []byte(`{"project_name":`), 0o644))
	_, ok = c.Get(ctx, d)
	assert.False(t, ok, "corrupt config is a miss")
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, &clock{now: t0})
	d := descriptor(config.CachePolicy{Enabled: true})

	require.NoError(t, c.Put(ctx, d, sampleConfig()))
	require.NoError(t, c.Invalidate(d))
	_, ok := c.Get(ctx, d)
	assert.False(t, ok)
	assert.NoDirExists(t, filepath.Join(c.Root(), Key(d)))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "roads", Key(&config.ProjectDescriptor{ID: "roads"}))
	assert.Regexp(t, `^a_b_c-[0-9a-f]{16}$`, Key(&config.ProjectDescriptor{ID: "a/b c"}))
	assert.Regexp(t, `^x-[0-9a-f]{16}$`, Key(&config.ProjectDescriptor{ID: "../x"}))
	assert.NotEqual(t, Key(&config.ProjectDescriptor{ID: "roads a"}), Key(&config.ProjectDescriptor{ID: "roads/a"}))
	assert.NotEqual(t, Key(&config.ProjectDescriptor{ID: "roads_a"}), Key(&config.ProjectDescriptor{ID: "roads a"}))

	hashed := Key(&config.ProjectDescriptor{Name: "Roads", URI: "/srv/roads.qgs"})
	assert.Regexp(t, `^p-[0-9a-f]{16}$`, hashed)
	assert.Equal(t, hashed, Key(&config.ProjectDescriptor{ID: "..", Name: "Roads", URI: "/srv/roads.qgs"}))
	assert.NotEqual(t, hashed, Key(&config.ProjectDescriptor{Name: "Roads", URI: "/srv/other.qgs"}))
}

func TestSanitizedIDsDoNotShareEntries(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, &clock{now: t0})
	policy := config.CachePolicy{Enabled: true}
	a := &config.ProjectDescriptor{ID: "roads a", Name: "A", URI: "/x/a.qgs", Cache: policy}
	b := &config.ProjectDescriptor{ID: "roads/a", Name: "B", URI: "/x/b.qgs", Cache: policy}

	require.NoError(t, c.Put(ctx, a, sampleConfig()))
	_, ok := c.Get(ctx, b)
	assert.False(t, ok, "an entry is only served to its own project")

	got, ok := c.Get(ctx, a)
	require.True(t, ok)
	assert.Equal(t, "Roads", got.ProjectName)
}
