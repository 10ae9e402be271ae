package vfs

import (
	"github.com/standardbeagle/vfsboot/internal/tagid"
	"github.com/standardbeagle/vfsboot/internal/vferrors"
)

// DestroyHook is called whenever a node is permanently detached with no
// remaining parent, so owners of identity-keyed side tables (tag
// storage) can clear their entry, per spec.md §3.3's storage contract.
type DestroyHook func(id tagid.NodeID)

// Store is the overlay-aware VFS core (spec.md §4.1). It owns the
// overlay stack and every node reachable from an overlay root. Higher
// layers (tag storage, logic engine, mounts, autosave) are composed
// alongside a Store by internal/session rather than embedded in it,
// replacing the reference's G_VFS-owns-everything design per spec.md §9.
type Store struct {
	overlays    []*Overlay
	nextNodeID  tagid.NodeID
	nextOverlay int
	onDestroy   []DestroyHook
}

// NewStore creates a Store with overlay 0 (the base) already registered.
func NewStore() *Store {
	s := &Store{nextNodeID: 1}
	base := s.newDirNode("/")
	s.overlays = append(s.overlays, &Overlay{ID: 0, Name: "base", Root: base})
	s.nextOverlay = 1
	return s
}

// OnDestroy registers a callback fired when a node loses its last parent.
func (s *Store) OnDestroy(hook DestroyHook) { s.onDestroy = append(s.onDestroy, hook) }

func (s *Store) nextID() tagid.NodeID {
	id := s.nextNodeID
	s.nextNodeID++
	return id
}

func (s *Store) newDirNode(name string) *Node {
	return newNode(s.nextID(), name, KindDir, true)
}

func (s *Store) newFileNode(name string) *Node {
	return newNode(s.nextID(), name, KindFile, false)
}

// NewNode lets higher layers (sast, cppast, plan, mount) mint a node
// with this store's identity sequence, to be attached via AddNode.
func (s *Store) NewNode(name string, kind Kind, dirLike bool) *Node {
	return newNode(s.nextID(), name, kind, dirLike)
}

// OverlayCount returns the number of registered overlays.
func (s *Store) OverlayCount() int { return len(s.overlays) }

// Overlay returns overlay metadata by id, or nil if out of range.
func (s *Store) Overlay(id int) *Overlay {
	for _, o := range s.overlays {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// Overlays returns every registered overlay, in registration order.
func (s *Store) Overlays() []*Overlay { return s.overlays }

// FindOverlayByName returns an overlay's id by name.
func (s *Store) FindOverlayByName(name string) (int, bool) {
	for _, o := range s.overlays {
		if o.Name == name {
			return o.ID, true
		}
	}
	return 0, false
}

// RegisterOverlay adds a new overlay with a fresh empty root and
// returns its id.
func (s *Store) RegisterOverlay(name string) int {
	id := s.nextOverlay
	s.nextOverlay++
	s.overlays = append(s.overlays, &Overlay{ID: id, Name: name, Root: s.newDirNode("/")})
	return id
}

// UnregisterOverlay drops overlay id (never 0, the base). Its root and
// everything beneath it becomes unreachable from this store and is left
// for the garbage collector.
func (s *Store) UnregisterOverlay(id int) error {
	if id == 0 {
		return vferrors.Internal("overlay.unmount", "cannot unregister base overlay")
	}
	for i, o := range s.overlays {
		if o.ID == id {
			s.overlays = append(s.overlays[:i], s.overlays[i+1:]...)
			return nil
		}
	}
	return vferrors.NotFound("overlay.unmount", "")
}

func (s *Store) markDirty(overlayID int) {
	if overlayID == 0 {
		return
	}
	if o := s.Overlay(overlayID); o != nil {
		o.dirty = true
	}
}

// ClearDirty resets an overlay's dirty flag (called by save).
func (s *Store) ClearDirty(overlayID int) {
	if o := s.Overlay(overlayID); o != nil {
		o.dirty = false
	}
}

func (s *Store) destroy(n *Node) {
	if len(n.parents) > 0 {
		return
	}
	for _, hook := range s.onDestroy {
		hook(n.id)
	}
	for _, c := range n.children {
		c.removeParent(n)
		s.destroy(c)
	}
}
