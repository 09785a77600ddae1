package relations

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRelation matches every *InvalidRelationError.
	ErrInvalidRelation = errors.New("invalid relation")
	// ErrFormFix matches every *FormFixError.
	ErrFormFix = errors.New("form fix failed")
)

// InvalidRelationError reports a relation the workspace refused.
type InvalidRelationError struct {
	Name string
	Err  error
}

func (e *InvalidRelationError) Error() string {
	return fmt.Sprintf("invalid relation %q: %v", e.Name, e.Err)
}

func (e *InvalidRelationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrInvalidRelation.
func (e *InvalidRelationError) Is(target error) bool { return target == ErrInvalidRelation }

// FormFixError reports an edit form that could not be re-pointed. The
// relation itself stays registered.
type FormFixError struct {
	LayerID    string
	RelationID string
	Err        error
}

func (e *FormFixError) Error() string {
	return fmt.Sprintf("fix form of layer %s for relation %s: %v", e.LayerID, e.RelationID, e.Err)
}

func (e *FormFixError) Unwrap() error { return e.Err }

// Is reports whether target is ErrFormFix.
func (e *FormFixError) Is(target error) bool { return target == ErrFormFix }
