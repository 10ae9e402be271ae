package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/vfsboot/internal/config"
)

func TestResolvePathJoinsAgainstCwd(t *testing.T) {
	s := New(config.Default())
	require.NoError(t, s.Store.Mkdir("/a/b", 0))
	require.NoError(t, s.Cd("/a"))
	require.Equal(t, "/a/b", s.ResolvePath("b"))
	require.Equal(t, "/a", s.ResolvePath("."))
	require.Equal(t, "/", s.ResolvePath(".."))
}

func TestCdRejectsFile(t *testing.T) {
	s := New(config.Default())
	require.NoError(t, s.Store.Touch("/f", 0))
	require.Error(t, s.Cd("/f"))
}

func TestScopeReflectsOverlaysForCwd(t *testing.T) {
	s := New(config.Default())
	ovl := s.Store.RegisterOverlay("extra")
	require.NoError(t, s.Store.Mkdir("/x", 0))
	require.NoError(t, s.Store.Mkdir("/x", ovl))
	require.NoError(t, s.Cd("/x"))
	require.ElementsMatch(t, []int{0, ovl}, s.Scope())
}

func TestMutationOverlayDefaultsToCurrent(t *testing.T) {
	s := New(config.Default())
	id, err := s.MutationOverlay("")
	require.NoError(t, err)
	require.Equal(t, 0, id)

	ovl := s.Store.RegisterOverlay("named")
	require.NoError(t, s.SetCurrentOverlay(ovl))
	id, err = s.MutationOverlay("")
	require.NoError(t, err)
	require.Equal(t, ovl, id)
}

func TestMutationOverlayByName(t *testing.T) {
	s := New(config.Default())
	s.Store.RegisterOverlay("solution")
	id, err := s.MutationOverlay("solution")
	require.NoError(t, err)
	require.Equal(t, 1, id)

	_, err = s.MutationOverlay("missing")
	require.Error(t, err)
}

func TestTagsClearedOnNodeDestroy(t *testing.T) {
	s := New(config.Default())
	require.NoError(t, s.Store.Touch("/f", 0))
	n, _, err := s.Resolve("read", "/f")
	require.NoError(t, err)
	id := s.Registry.Register("doc")
	s.Tags.AddTag(n.ID(), id)
	require.True(t, s.Tags.Tags(n.ID()).Contains(id))

	require.NoError(t, s.Store.Rm("/f", 0))
	require.True(t, s.Tags.Tags(n.ID()).Empty())
}
