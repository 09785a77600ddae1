// Package workspace defines the narrow host capability set the loader depends
// on to materialize layers and relations.
//
// # Why Workspace Exists
//
// Activation ends in a live workspace owned by the host: layers are
// instantiated from cloned maplayer nodes, inserted into the layer tree and
// linked by relations whose edit-form widgets point at them. The core only
// needs a handful of operations for that, so they are captured here instead of
// depending on the full host API:
//   - ReadLayer instantiates a layer object from a maplayer node
//   - AddLayer registers it, at the root or at the top of a group
//   - AddRelation creates a relation between two live layers, validating it
//   - SetEditForm and SetJoinLayer patch a live layer after the fact
//
// # Lifecycle and Usage
//
// A Workspace outlives activations. Each activation adds layers with fresh
// ids generated by its session, so the same source layer can be added any
// number of times without collisions.
//
// The in-memory implementation lives in the inmemoryworkspace package and
// backs the CLI and the tests.
package workspace
