package tagid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetInsertContainsCardinality(t *testing.T) {
	s := &Set{}
	require.False(t, s.Contains(5))
	s.Insert(5)
	require.True(t, s.Contains(5))
	require.Equal(t, 1, s.Cardinality())

	// Re-inserting doesn't change cardinality.
	s.Insert(5)
	require.Equal(t, 1, s.Cardinality())

	s.Insert(130) // crosses a word boundary
	require.True(t, s.Contains(130))
	require.Equal(t, 2, s.Cardinality())
}

func TestSetAlgebra(t *testing.T) {
	a := NewSet(1, 2, 3)
	b := NewSet(2, 3, 4)

	require.ElementsMatch(t, []ID{1, 2, 3, 4}, a.Union(b).Items())
	require.ElementsMatch(t, []ID{2, 3}, a.Intersect(b).Items())
	require.ElementsMatch(t, []ID{1}, a.Difference(b).Items())
	require.ElementsMatch(t, []ID{1, 4}, a.SymmetricDifference(b).Items())
}

func TestSetSubsetEquality(t *testing.T) {
	a := NewSet(1, 2)
	b := NewSet(1, 2, 3)
	require.True(t, a.IsSubsetOf(b))
	require.False(t, b.IsSubsetOf(a))
	require.True(t, a.Equal(NewSet(2, 1)))
	require.False(t, a.Equal(b))
}

func TestFingerprintStable(t *testing.T) {
	a := NewSet(1, 64, 128)
	b := NewSet(128, 1, 64)
	require.Equal(t, a.Fingerprint(), b.Fingerprint())

	c := a.Clone()
	c.Insert(999)
	require.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestRegistryIdempotent(t *testing.T) {
	r := NewRegistry()
	id1 := r.Register("doc")
	id2 := r.Register("doc")
	require.Equal(t, id1, id2)
	require.NotEqual(t, Invalid, id1)

	id3 := r.Register("test")
	require.NotEqual(t, id1, id3)
	require.Equal(t, "doc", r.Name(id1))
	require.Equal(t, []string{"doc", "test"}, r.All())
}

func TestStorageClearOnDestroy(t *testing.T) {
	st := NewStorage()
	r := NewRegistry()
	tag := r.Register("doc")

	st.AddTag(1, tag)
	require.True(t, st.Tags(1).Contains(tag))

	st.Clear(1)
	require.True(t, st.Tags(1).Empty())
}

func TestStorageFindByTags(t *testing.T) {
	st := NewStorage()
	r := NewRegistry()
	a := r.Register("a")
	b := r.Register("b")

	st.AddTag(1, a)
	st.AddTag(2, a)
	st.AddTag(2, b)

	require.ElementsMatch(t, []NodeID{1, 2}, st.FindByTag(a))
	require.ElementsMatch(t, []NodeID{2}, st.FindByTags([]ID{a, b}, true))
}
