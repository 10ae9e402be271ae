package vfs

import "github.com/standardbeagle/vfsboot/internal/vferrors"

// Mkdir creates every missing directory along p in overlay ovl.
// Idempotent; fails with NotADirectory if a path component already
// exists as a non-directory node.
func (s *Store) Mkdir(p string, ovl int) error {
	parts, err := SplitPath("mkdir", p)
	if err != nil {
		return err
	}
	o := s.Overlay(ovl)
	if o == nil {
		return vferrors.NotFound("mkdir", p)
	}
	cur := o.Root
	built := ""
	for _, part := range parts {
		built += "/" + part
		if err := cur.maybeRefresh(); err != nil {
			return err
		}
		next, ok := cur.children[part]
		if !ok {
			next = s.newDirNode(part)
			cur.children[part] = next
			next.addParent(cur)
		} else if !next.dirLike {
			return vferrors.NotADirectory("mkdir", built)
		}
		cur = next
	}
	s.markDirty(ovl)
	return nil
}

// ensureParentDir walks to (and creates, as directories) every
// component of p except the last, returning the parent dir node and the
// basename.
func (s *Store) ensureParentDir(op, p string, ovl int) (*Node, string, error) {
	parts, err := SplitPath(op, p)
	if err != nil {
		return nil, "", err
	}
	if len(parts) == 0 {
		return nil, "", vferrors.Internal(op, "root has no parent")
	}
	dir := JoinPath(parts[:len(parts)-1])
	if err := s.Mkdir(dir, ovl); err != nil {
		return nil, "", err
	}
	o := s.Overlay(ovl)
	parentNode := walk(o.Root, parts[:len(parts)-1])
	return parentNode, parts[len(parts)-1], nil
}

// Touch creates an empty File at p if absent; no-op if it's already a
// File. Fails with NotAFile if p exists as something else.
func (s *Store) Touch(p string, ovl int) error {
	parent, base, err := s.ensureParentDir("touch", p, ovl)
	if err != nil {
		return err
	}
	if existing, ok := parent.children[base]; ok {
		if existing.Kind != KindFile {
			return vferrors.NotAFile("touch", p)
		}
		return nil
	}
	n := s.newFileNode(base)
	parent.children[base] = n
	n.addParent(parent)
	s.markDirty(ovl)
	return nil
}

// Write sets p's content, creating the path as a File if absent. Fails
// with NotWritable unless the node is a File or its Payload implements
// NodeWriter (plan and remote-mount nodes do); directories, host-mount
// directories, library nodes and AST nodes are not writable.
func (s *Store) Write(p string, data []byte, ovl int) error {
	parent, base, err := s.ensureParentDir("write", p, ovl)
	if err != nil {
		return err
	}
	n, ok := parent.children[base]
	if !ok {
		n = s.newFileNode(base)
		parent.children[base] = n
		n.addParent(parent)
	}
	if err := n.write(data); err != nil {
		return vferrors.NotWritable("write", p)
	}
	s.markDirty(ovl)
	return nil
}

// Read returns p's content. If ovl is nil, there must be exactly one
// readable hit across every overlay or the call raises Ambiguous/NotFound.
func (s *Store) Read(p string, ovl *int) (string, error) {
	if ovl != nil {
		n, err := s.ResolveForOverlay("read", p, *ovl)
		if err != nil {
			return "", err
		}
		return n.read()
	}
	hits, err := s.ResolveMulti(p)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "", vferrors.NotFound("read", p)
	}
	if len(hits) > 1 {
		names := make([]string, len(hits))
		for i, h := range hits {
			names[i] = s.Overlay(h.OverlayID).Name
		}
		return "", vferrors.Ambiguous("read", p, names)
	}
	return hits[0].Node.read()
}

// Rm detaches the node at p from its parent in overlay ovl. Fails on "/".
func (s *Store) Rm(p string, ovl int) error {
	parts, err := SplitPath("rm", p)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return vferrors.Internal("rm", "cannot remove root")
	}
	o := s.Overlay(ovl)
	if o == nil {
		return vferrors.NotFound("rm", p)
	}
	parent := walk(o.Root, parts[:len(parts)-1])
	if parent == nil || !parent.dirLike {
		return vferrors.NotFound("rm", p)
	}
	base := parts[len(parts)-1]
	n, ok := parent.children[base]
	if !ok {
		return vferrors.NotFound("rm", p)
	}
	delete(parent.children, base)
	n.removeParent(parent)
	s.destroy(n)
	s.markDirty(ovl)
	return nil
}

// Mv atomically detaches the node at src and re-attaches it at dst
// (renaming if basenames differ), within one overlay.
func (s *Store) Mv(src, dst string, ovl int) error {
	srcParts, err := SplitPath("mv", src)
	if err != nil {
		return err
	}
	if len(srcParts) == 0 {
		return vferrors.Internal("mv", "cannot move root")
	}
	o := s.Overlay(ovl)
	if o == nil {
		return vferrors.NotFound("mv", src)
	}
	srcParent := walk(o.Root, srcParts[:len(srcParts)-1])
	if srcParent == nil || !srcParent.dirLike {
		return vferrors.NotFound("mv", src)
	}
	srcBase := srcParts[len(srcParts)-1]
	n, ok := srcParent.children[srcBase]
	if !ok {
		return vferrors.NotFound("mv", src)
	}

	dstParent, dstBase, err := s.ensureParentDir("mv", dst, ovl)
	if err != nil {
		return err
	}
	if !dstParent.dirLike {
		return vferrors.NotADirectory("mv", dst)
	}

	delete(srcParent.children, srcBase)
	n.removeParent(srcParent)

	n.Name = dstBase
	dstParent.children[dstBase] = n
	n.addParent(dstParent)
	s.markDirty(ovl)
	return nil
}

// Link adds a second parent edge to the node at src, making it also
// appear at dst. Rejects edges that would turn src into its own
// ancestor (spec.md §5).
func (s *Store) Link(src, dst string, ovl int) error {
	srcParts, err := SplitPath("link", src)
	if err != nil {
		return err
	}
	o := s.Overlay(ovl)
	if o == nil {
		return vferrors.NotFound("link", src)
	}
	n := walk(o.Root, srcParts)
	if n == nil {
		return vferrors.NotFound("link", src)
	}

	dstParent, dstBase, err := s.ensureParentDir("link", dst, ovl)
	if err != nil {
		return err
	}
	if !dstParent.dirLike {
		return vferrors.NotADirectory("link", dst)
	}
	if n.isAncestorOf(dstParent) {
		return vferrors.Internal("link", "would create a cycle: "+src+" is an ancestor of "+dst)
	}
	if _, exists := dstParent.children[dstBase]; exists {
		return vferrors.Internal("link", "destination already exists")
	}
	dstParent.children[dstBase] = n
	n.addParent(dstParent)
	s.markDirty(ovl)
	return nil
}

// AttachChild adds child to parent's child map with the parent
// back-reference populated — the mutation op lazy adapters (mounts)
// use when materializing children outside the path-based AddNode flow.
// It never touches overlay dirty flags: lazy materialization is not a
// user mutation.
func (s *Store) AttachChild(parent, child *Node) error {
	if !parent.dirLike {
		return vferrors.NotADirectory("attachChild", parent.Name)
	}
	if _, exists := parent.children[child.Name]; exists {
		return vferrors.Internal("attachChild", "duplicate child name "+child.Name)
	}
	parent.children[child.Name] = child
	child.addParent(parent)
	return nil
}

// DetachChild removes parent's child by name, dropping the parent
// back-reference and destroying the node if that was its last parent
// edge. No-op if absent. The inverse of AttachChild, with the same
// no-dirty-flag semantics.
func (s *Store) DetachChild(parent *Node, name string) {
	child, ok := parent.children[name]
	if !ok {
		return
	}
	delete(parent.children, name)
	child.removeParent(parent)
	s.destroy(child)
}

// AddNode attaches a pre-built node (from the sast/cppast/plan/mount
// packages) under dir in overlay ovl, used by AST and plan constructors.
func (s *Store) AddNode(dir string, n *Node, ovl int) error {
	o := s.Overlay(ovl)
	if o == nil {
		return vferrors.NotFound("addNode", dir)
	}
	parts, err := SplitPath("addNode", dir)
	if err != nil {
		return err
	}
	parent := walk(o.Root, parts)
	if parent == nil {
		return vferrors.NotFound("addNode", dir)
	}
	if !parent.dirLike {
		return vferrors.NotADirectory("addNode", dir)
	}
	if _, exists := parent.children[n.Name]; exists {
		return vferrors.Internal("addNode", "duplicate child name "+n.Name)
	}
	parent.children[n.Name] = n
	n.addParent(parent)
	s.markDirty(ovl)
	return nil
}
