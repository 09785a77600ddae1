// Package geometry classifies the geometry/type tokens found on project layer
// definitions into a layer kind, a geometry kind and a spatial flag.
package geometry

import "strings"

// LayerKind is the kind of map layer. The zero value means "none".
type LayerKind string

const (
	Vector     LayerKind = "vector"
	Raster     LayerKind = "raster"
	Mesh       LayerKind = "mesh"
	VectorTile LayerKind = "vector-tile"
	PointCloud LayerKind = "point-cloud"
)

// GeometryKind is the geometry family of a vector layer. The zero value means "none".
type GeometryKind string

const (
	Point   GeometryKind = "point"
	Line    GeometryKind = "line"
	Polygon GeometryKind = "polygon"
)

// Classify maps a raw geometry token (the maplayer "geometry" attribute, or its
// "type" attribute when the former is absent) to its layer kind, geometry kind
// and whether the layer is spatial. Matching is case-insensitive; unknown
// tokens, including "no geometry", are non-spatial with no kinds.
func Classify(token string) (LayerKind, GeometryKind, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "raster":
		return Raster, "", true
	case "mesh":
		return Mesh, "", true
	case "vector-tile":
		return VectorTile, "", true
	case "point-cloud":
		return PointCloud, "", true
	case "point":
		return Vector, Point, true
	case "line":
		return Vector, Line, true
	case "polygon":
		return Vector, Polygon, true
	}
	return "", "", false
}

// KindOfLayerType maps the maplayer "type" attribute to a LayerKind.
// An empty type is a vector layer, like the host does when reading projects.
func KindOfLayerType(layerType string) LayerKind {
	switch strings.ToLower(strings.TrimSpace(layerType)) {
	case "", "vector":
		return Vector
	case "raster":
		return Raster
	case "mesh":
		return Mesh
	case "vector-tile":
		return VectorTile
	case "point-cloud":
		return PointCloud
	}
	return ""
}
