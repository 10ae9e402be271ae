package vfs

import (
	"testing"

	"github.com/standardbeagle/vfsboot/internal/tagid"
	"github.com/stretchr/testify/require"
)

func TestMkdirIdempotentAndTypeChecked(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Mkdir("/a/b/c", 0))
	require.NoError(t, s.Mkdir("/a/b/c", 0))

	n, err := s.ResolveForOverlay("resolve", "/a/b/c", 0)
	require.NoError(t, err)
	require.True(t, n.IsDir())

	require.NoError(t, s.Touch("/a/b/file", 0))
	err = s.Mkdir("/a/b/file/nope", 0)
	require.Error(t, err)
}

func TestTouchWriteReadRoundTrip(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Write("/notes/todo.txt", []byte("hello"), 0))

	got, err := s.Read("/notes/todo.txt", intPtr(0))
	require.NoError(t, err)
	require.Equal(t, "hello", got)

	require.NoError(t, s.Touch("/notes/todo.txt", 0))
	got, err = s.Read("/notes/todo.txt", intPtr(0))
	require.NoError(t, err)
	require.Equal(t, "hello", got)
}

func TestAttachDetachChildMaintainsParentEdges(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Mkdir("/m", 0))
	parent, err := s.ResolveForOverlay("resolve", "/m", 0)
	require.NoError(t, err)

	child := s.NewNode("leaf", KindFile, false)
	require.NoError(t, s.AttachChild(parent, child))
	require.Error(t, s.AttachChild(parent, child), "duplicate names are rejected")

	// The attached child participates in link/rm like any other node:
	// dropping the link edge must not destroy it while the original
	// parent still lists it.
	require.NoError(t, s.Link("/m/leaf", "/alias", 0))
	var destroyed int
	s.OnDestroy(func(tagid.NodeID) { destroyed++ })
	require.NoError(t, s.Rm("/alias", 0))
	require.Zero(t, destroyed)

	s.DetachChild(parent, "leaf")
	require.Equal(t, 1, destroyed)
	_, ok := s.TryResolveForOverlay("/m/leaf", 0)
	require.False(t, ok)
}

func TestWriteRejectsDirectory(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Mkdir("/a", 0))
	err := s.Write("/a", []byte("x"), 0)
	require.Error(t, err)
}

func TestRmDetachesAndDestroys(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Write("/a/b.txt", []byte("x"), 0))

	var destroyed []tagid.NodeID
	s.OnDestroy(func(id tagid.NodeID) { destroyed = append(destroyed, id) })

	require.NoError(t, s.Rm("/a/b.txt", 0))
	_, err := s.ResolveForOverlay("resolve", "/a/b.txt", 0)
	require.Error(t, err)
	require.Len(t, destroyed, 1)

	err = s.Rm("/", 0)
	require.Error(t, err)
}

func TestMvRenamesAndReparents(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Write("/a/b.txt", []byte("x"), 0))
	require.NoError(t, s.Mv("/a/b.txt", "/c/d.txt", 0))

	_, err := s.ResolveForOverlay("resolve", "/a/b.txt", 0)
	require.Error(t, err)

	n, err := s.ResolveForOverlay("resolve", "/c/d.txt", 0)
	require.NoError(t, err)
	content, err := n.read()
	require.NoError(t, err)
	require.Equal(t, "x", content)
}

func TestLinkAddsSecondParentAndRejectsCycle(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Write("/a/b.txt", []byte("x"), 0))
	require.NoError(t, s.Link("/a/b.txt", "/c/d.txt", 0))

	n1, err := s.ResolveForOverlay("resolve", "/a/b.txt", 0)
	require.NoError(t, err)
	n2, err := s.ResolveForOverlay("resolve", "/c/d.txt", 0)
	require.NoError(t, err)
	require.Same(t, n1, n2)

	require.NoError(t, s.Mkdir("/x/y", 0))
	err = s.Link("/x", "/x/y/loop", 0)
	require.Error(t, err)
}

func TestOverlayResolutionPolicies(t *testing.T) {
	s := NewStore()
	ovA := s.RegisterOverlay("alpha")
	ovB := s.RegisterOverlay("beta")
	require.NoError(t, s.Write("/shared.txt", []byte("from-a"), ovA))
	require.NoError(t, s.Write("/shared.txt", []byte("from-b"), ovB))

	scope := s.OverlaysForPath("/")
	require.ElementsMatch(t, []int{0, ovA, ovB}, scope)

	_, _, err := s.ResolveInScope("resolve", "/shared.txt", scope, PolicyManual)
	require.Error(t, err)

	n, id, err := s.ResolveInScope("resolve", "/shared.txt", scope, PolicyOldest)
	require.NoError(t, err)
	require.Equal(t, ovA, id)
	c, _ := n.read()
	require.Equal(t, "from-a", c)

	n, id, err = s.ResolveInScope("resolve", "/shared.txt", scope, PolicyNewest)
	require.NoError(t, err)
	require.Equal(t, ovB, id)
	c, _ = n.read()
	require.Equal(t, "from-b", c)
}

func TestMarkDirtySkipsBaseOverlay(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Write("/a.txt", []byte("x"), 0))
	require.False(t, s.Overlay(0).Dirty())

	ov := s.RegisterOverlay("feature")
	require.NoError(t, s.Write("/a.txt", []byte("x"), ov))
	require.True(t, s.Overlay(ov).Dirty())

	s.ClearDirty(ov)
	require.False(t, s.Overlay(ov).Dirty())
}

func TestListDirUnionAndConflict(t *testing.T) {
	s := NewStore()
	ov := s.RegisterOverlay("feature")
	require.NoError(t, s.Touch("/only-base.txt", 0))
	require.NoError(t, s.Touch("/only-feature.txt", ov))
	require.NoError(t, s.Mkdir("/both", 0))
	require.NoError(t, s.Touch("/both", ov))

	entries, err := s.ListDir("/", []int{0, ov})
	require.NoError(t, err)
	names := make(map[string]Entry)
	for _, e := range entries {
		names[e.Name] = e
	}
	require.Contains(t, names, "only-base.txt")
	require.Contains(t, names, "only-feature.txt")
	require.True(t, names["both"].Conflict())
}

func TestTreeRendersWithoutError(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Mkdir("/a/b", 0))
	require.NoError(t, s.Write("/a/b/c.txt", []byte("x"), 0))

	out, err := s.Tree("/", []int{0}, DumpOptions{ShowKind: true})
	require.NoError(t, err)
	require.Contains(t, out, "a")
	require.Contains(t, out, "c.txt")
}

func TestContentHashStableAndSensitiveToWrites(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Write("/f.txt", []byte("hello"), 0))
	n, err := s.ResolveForOverlay("resolve", "/f.txt", 0)
	require.NoError(t, err)

	h1 := n.ContentHash()
	require.Equal(t, h1, n.ContentHash())

	require.NoError(t, s.Write("/f.txt", []byte("world"), 0))
	require.NotEqual(t, h1, n.ContentHash())
}

func TestTreeShowHashIncludesFingerprint(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Write("/f.txt", []byte("hello"), 0))
	out, err := s.Tree("/", []int{0}, DumpOptions{ShowHash: true})
	require.NoError(t, err)
	require.Regexp(t, `f\.txt [0-9a-f]{8}`, out)
}

func intPtr(i int) *int { return &i }
