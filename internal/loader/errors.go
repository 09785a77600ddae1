package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrLayerNotFound matches every *LayerNotFoundError.
	ErrLayerNotFound = errors.New("layer not found")
	// ErrLoadAllDisabled is returned by LoadAll when the option is off.
	ErrLoadAllDisabled = errors.New("load all is disabled")
)

// LayerNotFoundError reports a source layer id with no maplayer definition.
type LayerNotFoundError struct {
	SourceLayerID string
	// Depth is the relation recursion depth the lookup happened at.
	Depth int
}

func (e *LayerNotFoundError) Error() string {
	return fmt.Sprintf("layer %s not found (depth %d)", e.SourceLayerID, e.Depth)
}

// Is reports whether target is ErrLayerNotFound.
func (e *LayerNotFoundError) Is(target error) bool { return target == ErrLayerNotFound }
