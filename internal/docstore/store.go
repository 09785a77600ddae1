package docstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xcaeag/menufromproject/internal/config"
	"github.com/xcaeag/menufromproject/internal/ctxlog"
	"github.com/xcaeag/menufromproject/internal/httpfetch"
	"github.com/xcaeag/menufromproject/internal/pgstorage"
	"github.com/xcaeag/menufromproject/internal/qgsdoc"
)

// Opener opens project documents by URI.
type Opener interface {
	Open(ctx context.Context, uri string) (*qgsdoc.Document, error)
}

// Fetcher downloads a remote document.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// ProjectStorage reads a database-stored project archive.
type ProjectStorage interface {
	ReadProject(ctx context.Context, uri string) (name string, archive []byte, err error)
}

// Option configures a Store.
type Option func(*Store)

// WithFetcher sets the HTTP backend.
func WithFetcher(f Fetcher) Option {
	return func(s *Store) { s.fetcher = f }
}

// WithProjectStorage sets the database backend.
func WithProjectStorage(p ProjectStorage) Option {
	return func(s *Store) { s.storage = p }
}

// WithTimeout bounds each HTTP download when no Fetcher is supplied.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// WithScratchRoot sets the parent of the Store's scratch directory.
func WithScratchRoot(dir string) Option {
	return func(s *Store) { s.scratchRoot = dir }
}

// Store opens and memoizes documents for one pass.
type Store struct {
	mu      sync.Mutex
	docs    map[string]*qgsdoc.Document
	seq     int
	scratch string

	fetcher     Fetcher
	storage     ProjectStorage
	timeout     time.Duration
	scratchRoot string
	ownFetcher  *httpfetch.Client
}

// New creates a Store.
func New(opts ...Option) *Store {
	s := &Store{docs: make(map[string]*qgsdoc.Document)}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.ownFetcher = httpfetch.New(s.timeout)
		s.fetcher = s.ownFetcher
	}
	if s.storage == nil {
		s.storage = pgstorage.New()
	}
	return s
}

// Open returns the document at uri, opening it on first use. The backend is
// guessed from the uri.
func (s *Store) Open(ctx context.Context, uri string) (*qgsdoc.Document, error) {
	return s.OpenAs(ctx, uri, "")
}

// OpenAs is Open with an explicit storage kind. An empty kind is guessed
// from the uri.
func (s *Store) OpenAs(ctx context.Context, uri string, kind config.StorageKind) (*qgsdoc.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.docs[uri]; ok {
		return doc, nil
	}

	if kind == "" {
		var err error
		if kind, err = config.GuessStorageKind(uri); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedStorageKind, uri, err)
		}
	}

	logger := ctxlog.FromContext(ctx).With("uri", uri, "storage", string(kind))
	logger.Debug("Opening project document.")

	var (
		doc *qgsdoc.Document
		err error
	)
	switch kind {
	case config.StorageFile:
		doc, err = s.openFile(uri)
	case config.StorageHTTP:
		doc, err = s.openHTTP(ctx, uri)
	case config.StorageDatabase:
		doc, err = s.openDatabase(ctx, uri)
	default:
		err = fmt.Errorf("%w: %s: %q", ErrUnsupportedStorageKind, uri, kind)
	}
	if err != nil {
		logger.Debug("Failed to open project document.", "error", err)
		return nil, err
	}

	s.docs[uri] = doc
	return doc, nil
}

// Close removes the scratch directory. The Store must not be used afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.scratch != "" {
		errs = append(errs, os.RemoveAll(s.scratch))
		s.scratch = ""
	}
	if s.ownFetcher != nil {
		errs = append(errs, s.ownFetcher.Close())
		s.ownFetcher = nil
	}
	s.docs = make(map[string]*qgsdoc.Document)
	return errors.Join(errs...)
}

func (s *Store) openFile(uri string) (*qgsdoc.Document, error) {
	path := strings.TrimPrefix(uri, "file://")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	return s.parse(uri, path, data)
}

func (s *Store) openHTTP(ctx context.Context, uri string) (*qgsdoc.Document, error) {
	data, err := s.fetcher.Get(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return s.parse(uri, uri, data)
}

func (s *Store) openDatabase(ctx context.Context, uri string) (*qgsdoc.Document, error) {
	_, data, err := s.storage.ReadProject(ctx, uri)
	if errors.Is(err, pgstorage.ErrProjectNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if !isArchive("", data) {
		return nil, fmt.Errorf("%w: %s: database content is not an archive", ErrCorrupt, uri)
	}
	return s.parse(uri, uri, data)
}

// parse sniffs data and extracts archives before parsing. The document keeps
// uri as its origin so relative references resolve beside the archive.
func (s *Store) parse(uri, name string, data []byte) (*qgsdoc.Document, error) {
	origin := uri
	if isArchive(name, data) {
		dir, err := s.newScratchDir()
		if err != nil {
			return nil, err
		}
		path, err := extract(data, dir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", uri, err)
		}
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read extracted %s: %w", path, err)
		}
	}

	doc, err := qgsdoc.Parse(data, origin)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return doc, nil
}

func (s *Store) newScratchDir() (string, error) {
	if s.scratch == "" {
		dir, err := os.MkdirTemp(s.scratchRoot, "menufromproject-")
		if err != nil {
			return "", fmt.Errorf("create scratch dir: %w", err)
		}
		s.scratch = dir
	}
	s.seq++
	dir := filepath.Join(s.scratch, strconv.Itoa(s.seq))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, nil
}
