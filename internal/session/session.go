// Package session holds the per-activation state of a layer load: the identity
// remapping between source ids and freshly generated ids, the cycle guard used
// while following relations, and the lifecycle state machine.
//
// A Session is owned by a single activation and is not safe for concurrent use.
package session

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Prefixes of generated ids. Source ids produced by the host never start
// with a bare prefix followed by 32 hex digits.
const (
	LayerPrefix    = "L"
	RelationPrefix = "R"
)

// State is the lifecycle state of a Session.
type State int

const (
	// Idle is the state of a new session.
	Idle State = iota
	// Discovering indicates relations of a layer are being discovered.
	Discovering
	// Loading indicates a layer is being cloned and remapped.
	Loading
	// AllDiscovered indicates every participating layer exists.
	AllDiscovered
	// Materializing indicates pending relations are being built.
	Materializing
	// Done is the terminal state.
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Discovering:
		return "discovering"
	case Loading:
		return "loading"
	case AllDiscovered:
		return "all-discovered"
	case Materializing:
		return "materializing"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrIllegalTransition is returned by Transition for moves the lifecycle forbids.
var ErrIllegalTransition = errors.New("illegal session state transition")

var transitions = map[State][]State{
	Idle:          {Discovering, Loading},
	Discovering:   {Loading, AllDiscovered},
	Loading:       {Discovering, AllDiscovered},
	AllDiscovered: {Materializing},
	Materializing: {Done},
}

// Session is the state of one activation.
type Session struct {
	// identity maps generated layer ids to source layer ids.
	identity map[string]string
	// visited maps source layer ids to generated ids; it is the cycle guard.
	visited map[string]string
	// relations maps source relation ids to generated ids.
	relations map[string]string
	issued    map[string]bool
	order     []string
	depth     int
	state     State
	newHex    func() string
}

// New creates an idle Session.
func New() *Session {
	return &Session{
		identity:  make(map[string]string),
		visited:   make(map[string]string),
		relations: make(map[string]string),
		issued:    make(map[string]bool),
		newHex:    randomHex,
	}
}

func randomHex() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

func (s *Session) newID(prefix string) string {
	for {
		id := prefix + s.newHex()
		if !s.issued[id] {
			s.issued[id] = true
			return id
		}
	}
}

// NewLayerID returns a fresh layer id, unique within the session.
func (s *Session) NewLayerID() string { return s.newID(LayerPrefix) }

// NewRelationID returns a fresh relation id, unique within the session.
func (s *Session) NewRelationID() string { return s.newID(RelationPrefix) }

// Remember records that newID was materialized from the source layer oldID.
func (s *Session) Remember(newID, oldID string) {
	if _, ok := s.identity[newID]; !ok {
		s.order = append(s.order, newID)
	}
	s.identity[newID] = oldID
}

// Forget drops a generated layer id that could not be materialized, along
// with the visited mark pointing at it.
func (s *Session) Forget(newID string) {
	old, ok := s.identity[newID]
	if !ok {
		return
	}
	delete(s.identity, newID)
	if s.visited[old] == newID {
		delete(s.visited, old)
	}
	for i, id := range s.order {
		if id == newID {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

// SourceID returns the source id a generated layer id was cloned from.
func (s *Session) SourceID(newID string) (string, bool) {
	old, ok := s.identity[newID]
	return old, ok
}

// Materialized returns the generated layer ids in the order they were remembered.
func (s *Session) Materialized() []string {
	return append([]string(nil), s.order...)
}

// Visit marks the source layer oldID as being materialized under newID.
func (s *Session) Visit(oldID, newID string) {
	s.visited[oldID] = newID
}

// Visited returns the generated id of a source layer already reached in this
// session.
func (s *Session) Visited(oldID string) (string, bool) {
	id, ok := s.visited[oldID]
	return id, ok
}

// RememberRelation records the generated id of a source relation.
func (s *Session) RememberRelation(oldID, newID string) {
	s.relations[oldID] = newID
}

// RelationID returns the generated id of a source relation.
func (s *Session) RelationID(oldID string) (string, bool) {
	id, ok := s.relations[oldID]
	return id, ok
}

// Descend increments the recursion depth and returns a func restoring it.
func (s *Session) Descend() func() {
	s.depth++
	return func() { s.depth-- }
}

// Depth is the current recursion depth, used for diagnostics.
func (s *Session) Depth() int { return s.depth }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Transition moves the session to next. Re-entering the current state is a no-op.
func (s *Session) Transition(next State) error {
	if next == s.state {
		return nil
	}
	for _, allowed := range transitions[s.state] {
		if allowed == next {
			s.state = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.state, next)
}
