package persistence

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/vfsboot/internal/mount"
	"github.com/standardbeagle/vfsboot/internal/plan"
	"github.com/standardbeagle/vfsboot/internal/vfs"
)

func newStoreWithOverlay(t *testing.T, name string) (*vfs.Store, int) {
	t.Helper()
	store := vfs.NewStore()
	ovl := store.RegisterOverlay(name)
	return store, ovl
}

func TestSaveLoadOverlayRoundTripsFilesAndDirs(t *testing.T) {
	store, ovl := newStoreWithOverlay(t, "feature")
	require.NoError(t, store.Mkdir("/a", ovl))
	require.NoError(t, store.Mkdir("/a/b", ovl))
	require.NoError(t, store.Write("/a/b/f.txt", []byte("hello world"), ovl))
	require.NoError(t, store.Touch("/a/empty.txt", ovl))

	var buf bytes.Buffer
	require.NoError(t, SaveOverlay(store, ovl, &buf))

	loaded, err := LoadOverlay(store, "feature2", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	content, err := store.Read("/a/b/f.txt", &loaded)
	require.NoError(t, err)
	require.Equal(t, "hello world", content)

	empty, err := store.Read("/a/empty.txt", &loaded)
	require.NoError(t, err)
	require.Equal(t, "", empty)

	require.False(t, store.Overlay(loaded).Dirty())
}

func TestSaveLoadOverlayRoundTripsPlanNode(t *testing.T) {
	store, ovl := newStoreWithOverlay(t, "feature")
	require.NoError(t, store.Mkdir("/plan", ovl))
	_, err := plan.Create(store, "/plan", "goals", plan.KindGoals, "- ship thing\n- ship other thing\n", ovl)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, SaveOverlay(store, ovl, &buf))

	loaded, err := LoadOverlay(store, "reloaded", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	n, err := store.ResolveForOverlay("read", "/plan/goals", loaded)
	require.NoError(t, err)
	k, ok := plan.KindOf(n)
	require.True(t, ok)
	require.Equal(t, plan.KindGoals, k)

	content, err := store.Read("/plan/goals", &loaded)
	require.NoError(t, err)
	require.Equal(t, "- ship thing\n- ship other thing\n", content)
}

func TestSaveOverlayRejectsMountNodes(t *testing.T) {
	store, ovl := newStoreWithOverlay(t, "feature")
	mgr := mount.NewManager(store)
	require.NoError(t, mgr.MountHost("/lib", t.TempDir(), ovl))

	var buf bytes.Buffer
	err := SaveOverlay(store, ovl, &buf)
	require.Error(t, err)
}

func TestLoadOverlayRejectsCorruptChecksum(t *testing.T) {
	store, ovl := newStoreWithOverlay(t, "feature")
	require.NoError(t, store.Write("/f.txt", []byte("data"), ovl))

	var buf bytes.Buffer
	require.NoError(t, SaveOverlay(store, ovl, &buf))
	corrupt := buf.Bytes()
	corrupt[len(corrupt)-1] ^= 0xFF

	_, err := LoadOverlay(store, "bad", bytes.NewReader(corrupt))
	require.Error(t, err)
}

func TestLoadOverlayRejectsBadMagic(t *testing.T) {
	store := vfs.NewStore()
	_, err := LoadOverlay(store, "bad", bytes.NewReader([]byte("not a vfsboot file at all")))
	require.Error(t, err)
}
