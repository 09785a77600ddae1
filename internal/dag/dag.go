package dag

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCycle is returned when an edge would close a cycle.
var ErrCycle = errors.New("cycle detected")

// CycleError reports an embedding edge refused because its target already
// reaches its source. Chain lists the node ids of the loop, starting and
// ending with the source.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCycle, strings.Join(e.Chain, " -> "))
}

// Is makes errors.Is(err, ErrCycle) hold for a *CycleError.
func (e *CycleError) Is(target error) bool { return target == ErrCycle }

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// Key builds the node id of a group inside a document.
func Key(document, group string) string {
	return document + "#" + group
}

func (g *Graph) node(id string) *node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.nodes[id] = n
	return n
}

// Link records that fromID embeds toID, adding both nodes when missing. An
// edge that would close a cycle is not added and a *CycleError is returned.
// Linking an existing edge again is a no-op.
func (g *Graph) Link(fromID, toID string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if fromID == toID {
		return &CycleError{Chain: []string{fromID, toID}}
	}
	from, to := g.node(fromID), g.node(toID)
	if path := g.path(to, from); path != nil {
		return &CycleError{Chain: append([]string{fromID}, path...)}
	}
	to.deps[fromID] = from
	from.dependents[toID] = to
	return nil
}

// path returns the ids on a path from src to dst, both included, or nil when
// dst cannot be reached. Caller holds the lock.
func (g *Graph) path(src, dst *node) []string {
	seen := make(map[string]bool)
	var walk func(n *node) []string
	walk = func(n *node) []string {
		if n == dst {
			return []string{n.id}
		}
		if seen[n.id] {
			return nil
		}
		seen[n.id] = true
		for _, id := range sortedIDs(n.dependents) {
			if rest := walk(n.dependents[id]); rest != nil {
				return append([]string{n.id}, rest...)
			}
		}
		return nil
	}
	return walk(src)
}

// Embeds returns the sorted ids of the nodes id embeds, or nil for an
// unknown node.
func (g *Graph) Embeds(id string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	if n, ok := g.nodes[id]; ok {
		return sortedIDs(n.dependents)
	}
	return nil
}

// EmbeddedBy returns the sorted ids of the nodes embedding id, or nil for an
// unknown node.
func (g *Graph) EmbeddedBy(id string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	if n, ok := g.nodes[id]; ok {
		return sortedIDs(n.deps)
	}
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

func sortedIDs(m map[string]*node) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
