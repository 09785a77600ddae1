package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratedIDsAreUniqueAndPrefixed(t *testing.T) {
	s := New()
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		for _, id := range []string{s.NewLayerID(), s.NewRelationID()} {
			require.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
			assert.Len(t, id, 33)
		}
	}

	assert.True(t, strings.HasPrefix(s.NewLayerID(), LayerPrefix))
	assert.True(t, strings.HasPrefix(s.NewRelationID(), RelationPrefix))
}

func TestNewIDRetriesOnCollision(t *testing.T) {
	s := New()
	values := []string{"aa", "aa", "bb"}
	s.newHex = func() string {
		v := values[0]
		values = values[1:]
		return v
	}

	assert.Equal(t, "Laa", s.NewLayerID())
	assert.Equal(t, "Lbb", s.NewLayerID())
}

func TestIdentityAndVisited(t *testing.T) {
	s := New()
	s.Remember("Lnew1", "roads")
	s.Remember("Lnew2", "roads")
	s.Visit("roads", "Lnew1")

	old, ok := s.SourceID("Lnew2")
	require.True(t, ok)
	assert.Equal(t, "roads", old)
	_, ok = s.SourceID("roads")
	assert.False(t, ok)

	id, ok := s.Visited("roads")
	require.True(t, ok)
	assert.Equal(t, "Lnew1", id)
	_, ok = s.Visited("Lnew1")
	assert.False(t, ok, "visited is keyed by source id")

	assert.Equal(t, []string{"Lnew1", "Lnew2"}, s.Materialized())

	s.Forget("Lnew1")
	_, ok = s.SourceID("Lnew1")
	assert.False(t, ok)
	_, ok = s.Visited("roads")
	assert.False(t, ok, "the visited mark of a forgotten id is dropped")
	assert.Equal(t, []string{"Lnew2"}, s.Materialized())
	s.Forget("unknown")

	s.RememberRelation("rel1", "Rnew")
	rid, ok := s.RelationID("rel1")
	require.True(t, ok)
	assert.Equal(t, "Rnew", rid)
}

func TestDepth(t *testing.T) {
	s := New()
	up := s.Descend()
	inner := s.Descend()
	assert.Equal(t, 2, s.Depth())
	inner()
	up()
	assert.Equal(t, 0, s.Depth())
}

func TestTransitions(t *testing.T) {
	s := New()
	assert.Equal(t, Idle, s.State())

	for _, next := range []State{Loading, Discovering, Loading, Discovering, Discovering, AllDiscovered, Materializing, Done} {
		require.NoError(t, s.Transition(next), "to %s", next)
	}
	assert.Equal(t, Done, s.State())

	err := s.Transition(Loading)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.ErrorContains(t, err, "done -> loading")

	s = New()
	assert.ErrorIs(t, s.Transition(Materializing), ErrIllegalTransition)
	assert.Equal(t, Idle, s.State())
}
