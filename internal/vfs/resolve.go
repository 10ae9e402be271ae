package vfs

import "github.com/standardbeagle/vfsboot/internal/vferrors"

// Hit pairs a resolved node with the overlay id it was found in.
type Hit struct {
	OverlayID int
	Node      *Node
}

func walk(root *Node, parts []string) *Node {
	cur := root
	for _, part := range parts {
		if err := cur.maybeRefresh(); err != nil {
			return nil
		}
		if !cur.dirLike {
			return nil
		}
		next, ok := cur.children[part]
		if !ok {
			return nil
		}
		cur = next
	}
	if err := cur.maybeRefresh(); err != nil {
		return nil
	}
	return cur
}

// ResolveMulti returns every (overlay, node) hit for p across all
// overlays, in overlay-id ascending order.
func (s *Store) ResolveMulti(p string) ([]Hit, error) {
	parts, err := SplitPath("resolve", p)
	if err != nil {
		return nil, err
	}
	var hits []Hit
	for _, o := range s.overlays {
		if n := walk(o.Root, parts); n != nil {
			hits = append(hits, Hit{OverlayID: o.ID, Node: n})
		}
	}
	return hits, nil
}

// ResolveMultiAllowed is ResolveMulti restricted to the given overlay ids.
func (s *Store) ResolveMultiAllowed(p string, allowed []int) ([]Hit, error) {
	all, err := s.ResolveMulti(p)
	if err != nil {
		return nil, err
	}
	allowedSet := make(map[int]bool, len(allowed))
	for _, id := range allowed {
		allowedSet[id] = true
	}
	var hits []Hit
	for _, h := range all {
		if allowedSet[h.OverlayID] {
			hits = append(hits, h)
		}
	}
	return hits, nil
}

// ResolveForOverlay resolves p within exactly one overlay, raising
// NotFound if absent.
func (s *Store) ResolveForOverlay(op, p string, overlayID int) (*Node, error) {
	n, ok := s.TryResolveForOverlay(p, overlayID)
	if !ok {
		return nil, vferrors.NotFound(op, p)
	}
	return n, nil
}

// TryResolveForOverlay is the total variant of ResolveForOverlay.
func (s *Store) TryResolveForOverlay(p string, overlayID int) (*Node, bool) {
	o := s.Overlay(overlayID)
	if o == nil {
		return nil, false
	}
	parts, err := SplitPath("resolve", p)
	if err != nil {
		return nil, false
	}
	n := walk(o.Root, parts)
	return n, n != nil
}

// OverlaysForPath returns the ids of every overlay that has p as a
// directory — the "scope" of a working directory (spec.md §3.2).
func (s *Store) OverlaysForPath(p string) []int {
	var ids []int
	hits, err := s.ResolveMulti(p)
	if err != nil {
		return nil
	}
	for _, h := range hits {
		if h.Node.IsDir() {
			ids = append(ids, h.OverlayID)
		}
	}
	return ids
}

// ResolveInScope picks a single node for p given a scope (set of
// in-play overlays) and a Policy, exactly as spec.md §3.2 describes:
// Oldest/Newest silently pick smallest/greatest overlay id;
// Manual requires a unique hit or raises Ambiguous.
func (s *Store) ResolveInScope(op, p string, scope []int, policy Policy) (*Node, int, error) {
	hits, err := s.ResolveMultiAllowed(p, scope)
	if err != nil {
		return nil, 0, err
	}
	if len(hits) == 0 {
		return nil, 0, vferrors.NotFound(op, p)
	}
	if len(hits) == 1 {
		return hits[0].Node, hits[0].OverlayID, nil
	}
	switch policy {
	case PolicyOldest:
		best := hits[0]
		for _, h := range hits[1:] {
			if h.OverlayID < best.OverlayID {
				best = h
			}
		}
		return best.Node, best.OverlayID, nil
	case PolicyNewest:
		best := hits[0]
		for _, h := range hits[1:] {
			if h.OverlayID > best.OverlayID {
				best = h
			}
		}
		return best.Node, best.OverlayID, nil
	default: // PolicyManual
		names := make([]string, len(hits))
		for i, h := range hits {
			names[i] = s.Overlay(h.OverlayID).Name
		}
		return nil, 0, vferrors.Ambiguous(op, p, names)
	}
}
