// Package inmemoryworkspace provides a thread-safe, in-memory implementation
// of the workspace.Workspace interface. It backs the CLI, which has no host
// application to materialize layers into, and the tests.
package inmemoryworkspace
