package persistence

import (
	"os"

	"github.com/standardbeagle/vfsboot/internal/vfs"
)

// SaveSolution writes overlayID's full tree to path (a .cxpkg/.cxasm
// file), then clears the overlay's dirty flag and records path as its
// Source, so a later bare `overlay.save` with no explicit path writes
// back to the same file (spec.md §3.6).
func SaveSolution(store *vfs.Store, overlayID int, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := SaveOverlay(store, overlayID, f); err != nil {
		return err
	}
	ovl := store.Overlay(overlayID)
	ovl.Source = path
	store.ClearDirty(overlayID)
	return nil
}

// LoadSolution loads path into a freshly registered overlay named name,
// recording path as its Source.
func LoadSolution(store *vfs.Store, name, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	overlayID, err := LoadOverlay(store, name, f)
	if err != nil {
		return 0, err
	}
	store.Overlay(overlayID).Source = path
	return overlayID, nil
}
