package docstore

import "errors"

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrUnsupportedStorageKind is returned for URIs no backend can open.
	ErrUnsupportedStorageKind = errors.New("unsupported storage kind")
	// ErrCorrupt is returned for archives or documents that are structurally invalid.
	ErrCorrupt = errors.New("corrupt document")
	// ErrFetch is returned when a network or database fetch fails.
	ErrFetch = errors.New("fetch failed")
)
