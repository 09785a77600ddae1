// Package qgsdoc wraps a parsed QGIS project document (.qgs XML) and answers
// the questions the resolver and the loader ask about it: which layer-tree
// groups it has, which maplayer definitions, which relations, and whether it
// stores relative paths.
//
// A Document is read-only once parsed. Callers that need to rewrite a layer
// definition work on a deep copy obtained from CloneMapLayer.
package qgsdoc
