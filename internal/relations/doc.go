// Package relations rebuilds project relations around freshly loaded layers.
//
// Work happens in two phases because a relation can only be created once both
// of its layers exist in the workspace:
//
//  1. Discover follows the relations referencing a layer, asking a
//     Materializer to load each referencing layer and recursing into it. A
//     referencing layer already reached in the session is not loaded again;
//     the relation points at its existing new id instead. This is what makes
//     self-referencing and mutually referencing layers terminate.
//  2. Build registers each discovered Spec under a fresh relation id and
//     re-points the relation widgets of the referenced layer's edit form.
//
// Failures are per relation: they are logged and returned to the caller, and
// never stop the remaining relations from being built.
package relations
