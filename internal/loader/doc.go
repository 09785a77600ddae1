// Package loader materializes menu layer entries into a workspace.
//
// An activation opens the layer's source document in a fresh document store,
// clones the layer definition under a new id, follows the relations and
// vector joins that reach it, and finally builds the relations once every
// participating layer exists. All of this happens in one session.Session,
// which owns the id remapping and the cycle guard.
package loader
