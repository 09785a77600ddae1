// Package resolver turns a project document's layer tree into a
// menuconf.MenuProjectConfig.
//
// Groups and layers flagged as embedded are resolved by transclusion: the
// resolver opens the referenced project and pulls in the same-named top-level
// group, or the referenced maplayer definition, following chains of projects
// embedding projects. Embedding loops are detected with a dag.Graph and broken.
//
// Resolution never fails because of a single bad branch. Missing layers,
// unreadable embedded projects and loops are logged, recorded as Diagnostics,
// and the affected node contributes empty metadata or no children.
package resolver
