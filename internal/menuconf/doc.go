// Package menuconf holds the resolved menu configuration tree of a project:
// groups, layers and the separator/title marker entries, together with the
// JSON codec used by the cache, tooltip rendering and the menu plan that folds
// several projects into menus.
//
// A MenuProjectConfig is immutable once built. Activation reads it to find a
// layer's source id and source file, and never modifies it.
package menuconf
