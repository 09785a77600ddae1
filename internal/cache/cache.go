package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/xcaeag/menufromproject/internal/config"
	"github.com/xcaeag/menufromproject/internal/ctxlog"
	"github.com/xcaeag/menufromproject/internal/httpfetch"
	"github.com/xcaeag/menufromproject/internal/menuconf"
)

const (
	configFile = "project_config.json"
	infoFile   = "cache_info.json"

	// DefaultValidationTimeout bounds the validation file fetch.
	DefaultValidationTimeout = 10 * time.Second
)

// Fetcher downloads a validation file over HTTP.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Option configures a Cache.
type Option func(*Cache)

// WithFetcher sets the HTTP client used for validation files.
func WithFetcher(f Fetcher) Option {
	return func(c *Cache) { c.fetcher = f }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithValidationTimeout bounds the validation file fetch.
func WithValidationTimeout(d time.Duration) Option {
	return func(c *Cache) { c.validationTimeout = d }
}

// Cache stores resolved configurations on disk.
type Cache struct {
	root              string
	fetcher           Fetcher
	now               func() time.Time
	validationTimeout time.Duration
}

// New creates a Cache rooted at root.
func New(root string, opts ...Option) *Cache {
	c := &Cache{
		root:              root,
		now:               time.Now,
		validationTimeout: DefaultValidationTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetcher == nil {
		c.fetcher = httpfetch.New(c.validationTimeout)
	}
	return c
}

// DefaultRoot returns the per-user cache root.
func DefaultRoot() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate user cache dir: %w", err)
	}
	return filepath.Join(dir, "menu-from-project"), nil
}

// Root returns the cache root directory.
func (c *Cache) Root() string { return c.root }

type info struct {
	LastRefresh string `json:"last_refresh"`
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Key returns the directory name of a project's entry: its id when that is
// already a safe name, the sanitized id suffixed with a hash of the raw id
// otherwise, or a hash of name and uri when the descriptor has no id.
// Distinct ids always give distinct keys.
func Key(d *config.ProjectDescriptor) string {
	id := strings.Trim(unsafeKeyChars.ReplaceAllString(d.ID, "_"), "._")
	switch {
	case id == "":
		return "p-" + shortHash(d.Name+"\x00"+d.URI)
	case id == d.ID:
		return id
	default:
		return id + "-" + shortHash(d.ID)
	}
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

func (c *Cache) dir(d *config.ProjectDescriptor) string {
	return filepath.Join(c.root, Key(d))
}

// Get returns the stored configuration when it is fresh. Validation file
// failures never cause a miss.
func (c *Cache) Get(ctx context.Context, d *config.ProjectDescriptor) (*menuconf.MenuProjectConfig, bool) {
	logger := ctxlog.FromContext(ctx).With("project", d.ID, "cache_key", Key(d))

	if !d.Cache.Enabled {
		logger.Debug("Cache disabled for project.")
		return nil, false
	}

	lastRefresh, err := c.lastRefresh(d)
	if err != nil {
		logger.Debug("No usable cache timestamp.", "error", err)
		return nil, false
	}

	if p := d.Cache.RefreshPeriod; p > 0 && c.now().After(lastRefresh.Add(p)) {
		logger.Info("Cache entry expired.", "last_refresh", lastRefresh, "refresh_period", p)
		return nil, false
	}

	if uri := d.Cache.ValidationURI; uri != "" {
		release, err := c.lastRelease(ctx, uri)
		switch {
		case err != nil:
			logger.Warn("Cache validation file unavailable, keeping cache.", "validation_uri", uri, "error", err)
		case release.After(lastRefresh):
			logger.Info("Cache entry older than last release.", "last_release", release, "last_refresh", lastRefresh)
			return nil, false
		}
	}

	data, err := os.ReadFile(filepath.Join(c.dir(d), configFile))
	if err != nil {
		logger.Debug("No cached configuration.", "error", err)
		return nil, false
	}
	cfg, err := menuconf.Decode(data)
	if err != nil {
		logger.Warn("Corrupt cached configuration, ignoring it.", "error", err)
		return nil, false
	}
	return cfg, true
}

// Put stores cfg and sets last_refresh to now.
func (c *Cache) Put(ctx context.Context, d *config.ProjectDescriptor, cfg *menuconf.MenuProjectConfig) error {
	dir := c.dir(d)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	data, err := menuconf.Encode(cfg)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, configFile), data); err != nil {
		return err
	}

	stamp, err := json.MarshalIndent(info{LastRefresh: c.now().Format(time.RFC3339)}, "", "  ")
	if err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(dir, infoFile), stamp); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Debug("Cached project configuration.", "project", d.ID, "dir", dir)
	return nil
}

// Invalidate removes the stored entry of d.
func (c *Cache) Invalidate(d *config.ProjectDescriptor) error {
	if err := os.RemoveAll(c.dir(d)); err != nil {
		return fmt.Errorf("invalidate cache %s: %w", Key(d), err)
	}
	return nil
}

func (c *Cache) lastRefresh(d *config.ProjectDescriptor) (time.Time, error) {
	data, err := os.ReadFile(filepath.Join(c.dir(d), infoFile))
	if err != nil {
		return time.Time{}, err
	}
	var inf info
	if err := json.Unmarshal(data, &inf); err != nil {
		return time.Time{}, fmt.Errorf("decode %s: %w", infoFile, err)
	}
	if inf.LastRefresh == "" {
		return time.Time{}, errors.New("missing last_refresh")
	}
	return parseTimestamp(inf.LastRefresh)
}

func (c *Cache) lastRelease(ctx context.Context, uri string) (time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, c.validationTimeout)
	defer cancel()

	var data []byte
	var err error
	if kind, _ := config.GuessStorageKind(uri); kind == config.StorageHTTP {
		data, err = c.fetcher.Get(ctx, uri)
	} else {
		data, err = os.ReadFile(strings.TrimPrefix(uri, "file://"))
	}
	if err != nil {
		return time.Time{}, err
	}

	var doc struct {
		LastRelease string `json:"last_release"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return time.Time{}, fmt.Errorf("decode validation file: %w", err)
	}
	if doc.LastRelease == "" {
		return time.Time{}, errors.New("validation file has no last_release")
	}
	return parseTimestamp(doc.LastRelease)
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
}

// parseTimestamp accepts RFC3339 and the zone-less layouts found in older
// cache entries and validation files, the latter read as local time.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	// No-op once the rename succeeded.
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
