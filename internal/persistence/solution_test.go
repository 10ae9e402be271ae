package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveSolutionThenLoadSolutionRoundTrips(t *testing.T) {
	store, ovl := newStoreWithOverlay(t, "sol")
	require.NoError(t, store.Write("/notes.txt", []byte("draft one"), ovl))

	path := filepath.Join(t.TempDir(), "out.cxpkg")
	require.NoError(t, SaveSolution(store, ovl, path))
	require.Equal(t, path, store.Overlay(ovl).Source)
	require.False(t, store.Overlay(ovl).Dirty())

	loaded, err := LoadSolution(store, "reloaded", path)
	require.NoError(t, err)
	require.Equal(t, path, store.Overlay(loaded).Source)

	content, err := store.Read("/notes.txt", &loaded)
	require.NoError(t, err)
	require.Equal(t, "draft one", content)
}
