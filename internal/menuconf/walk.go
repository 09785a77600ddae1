package menuconf

// Walk visits the entries below g depth-first in document order. Marker
// groups are visited but never descended into. Returning false from fn stops
// the walk.
func Walk(g *MenuGroupConfig, fn func(n Node, depth int) bool) {
	walk(g, 0, fn)
}

func walk(g *MenuGroupConfig, depth int, fn func(Node, int) bool) bool {
	if g == nil {
		return true
	}
	for _, child := range g.Children {
		if !fn(child, depth) {
			return false
		}
		if sub, ok := child.(*MenuGroupConfig); ok && !sub.IsMarker() {
			if !walk(sub, depth+1, fn) {
				return false
			}
		}
	}
	return true
}

// FindLayer returns the first layer entry with the given source layer id.
func FindLayer(cfg *MenuProjectConfig, sourceLayerID string) (*MenuLayerConfig, bool) {
	var found *MenuLayerConfig
	Walk(cfg.RootGroup, func(n Node, _ int) bool {
		if l, ok := n.(*MenuLayerConfig); ok && l.SourceLayerID == sourceLayerID {
			found = l
			return false
		}
		return true
	})
	return found, found != nil
}

// FindGroup returns the first non-marker group named name.
func FindGroup(cfg *MenuProjectConfig, name string) (*MenuGroupConfig, bool) {
	if cfg.RootGroup != nil && cfg.RootGroup.Name == name && name != "" {
		return cfg.RootGroup, true
	}
	var found *MenuGroupConfig
	Walk(cfg.RootGroup, func(n Node, _ int) bool {
		if g, ok := n.(*MenuGroupConfig); ok && !g.IsMarker() && g.Name == name {
			found = g
			return false
		}
		return true
	})
	return found, found != nil
}

// Layers returns the direct layer children of g, in order.
func Layers(g *MenuGroupConfig) []*MenuLayerConfig {
	var out []*MenuLayerConfig
	for _, child := range g.Children {
		if l, ok := child.(*MenuLayerConfig); ok {
			out = append(out, l)
		}
	}
	return out
}
