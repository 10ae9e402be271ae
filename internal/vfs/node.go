// Package vfs implements the overlay virtual filesystem core described
// in spec.md §3–§4.1, grounded on
// _examples/original_source/VfsShell/vfs_core.h and the mutex-guarded
// lazy-derived-state pattern in
// _examples/other_examples/2880309c_cue-lang-cue__internal-lsp-fscache-fs_overlay.go.go.
package vfs

import (
	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/vfsboot/internal/tagid"
)

// Kind is the node variant discriminator from spec.md §3.1.
type Kind int

const (
	KindDir Kind = iota
	KindFile
	KindSAst
	KindCppAst
	KindPlan
	KindMount
	KindLibrary
	KindLibrarySymbol
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindDir:
		return "dir"
	case KindFile:
		return "file"
	case KindSAst:
		return "sast"
	case KindCppAst:
		return "cppast"
	case KindPlan:
		return "plan"
	case KindMount:
		return "mount"
	case KindLibrary:
		return "library"
	case KindLibrarySymbol:
		return "librarysymbol"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// IsDirLike reports whether nodes of this kind carry a child map. Dir,
// Mount, Library, and Remote are always directory-like; SAst, CppAst,
// and Plan carry directory-like sub-kinds (Compound, Function, Plan*,
// etc.) that set dirLike per-instance, since not every SAst/CppAst
// variant has children (spec.md §3.4/§3.5).
func (k Kind) IsDirLike() bool {
	switch k {
	case KindDir, KindMount, KindLibrary, KindRemote:
		return true
	default:
		return false
	}
}

// NodeReader lets a node's Payload override the default Read behavior
// (used by Plan's structured text form and LibrarySymbol's signature
// string, and by mount adapters that stream from an external source).
type NodeReader interface {
	ReadNode() (string, error)
}

// NodeWriter lets a node's Payload override the default Write behavior.
// Per spec.md §9's open question, SAst/CppAst payloads deliberately do
// NOT implement this — writing to an AST node always fails with
// NotWritable; mutation goes through each package's typed constructors.
type NodeWriter interface {
	WriteNode(data []byte) error
}

// LazyDir lets a node's Payload (Mount/Library/Remote adapters) refresh
// its children on demand instead of eagerly, per spec.md §4.2.
type LazyDir interface {
	NeedsRefresh() bool
	Refresh(n *Node) error
}

// Node is the tagged-union node every overlay tree is built from. The
// directory-like capability (ordered, unique-named child map) is a
// property of the Node itself, not re-implemented per kind, since
// spec.md §3.4 calls out that Compound/Function/Plan* variants are
// directories that merely carry extra typed fields in Payload.
type Node struct {
	id       tagid.NodeID
	Name     string
	Kind     Kind
	dirLike  bool // true for Dir and every directory-like AST/Plan/mount variant
	children map[string]*Node
	content  []byte
	Payload  any // kind-specific data: SAst/CppAst/Plan variant fields, mount handles, etc.
	parents  []*Node
}

// ID returns this node's process-local identity, used as the key for
// tag storage (spec.md §3.3) and for cycle detection in link.
func (n *Node) ID() tagid.NodeID { return n.id }

// IsDir reports whether n carries a child map.
func (n *Node) IsDir() bool { return n.dirLike }

// Children returns the live child map (nil for leaf nodes). Callers
// must not mutate the returned map directly; use the Store mutation ops.
func (n *Node) Children() map[string]*Node { return n.children }

func newNode(id tagid.NodeID, name string, kind Kind, dirLike bool) *Node {
	n := &Node{id: id, Name: name, Kind: kind, dirLike: dirLike}
	if dirLike {
		n.children = make(map[string]*Node)
	}
	return n
}

// read implements the default Read semantics before falling back to a
// Payload's NodeReader override.
func (n *Node) read() (string, error) {
	if r, ok := n.Payload.(NodeReader); ok {
		return r.ReadNode()
	}
	if n.dirLike {
		return "", nil
	}
	if n.Kind == KindFile {
		return string(n.content), nil
	}
	return "", nil
}

// write implements the default Write semantics before falling back to a
// Payload's NodeWriter override.
func (n *Node) write(data []byte) error {
	if n.Kind == KindFile {
		if w, ok := n.Payload.(NodeWriter); ok {
			return w.WriteNode(data)
		}
		n.content = data
		return nil
	}
	if w, ok := n.Payload.(NodeWriter); ok {
		return w.WriteNode(data)
	}
	return errNotWritable
}

// sentinel used internally; translated to a *vferrors.Error with the
// path attached by the Store methods that call write().
var errNotWritable = &writableError{}

type writableError struct{}

func (*writableError) Error() string { return "not writable" }

func (n *Node) maybeRefresh() error {
	if lz, ok := n.Payload.(LazyDir); ok && lz.NeedsRefresh() {
		return lz.Refresh(n)
	}
	return nil
}

func (n *Node) addParent(p *Node) {
	for _, existing := range n.parents {
		if existing == p {
			return
		}
	}
	n.parents = append(n.parents, p)
}

func (n *Node) removeParent(p *Node) {
	for i, existing := range n.parents {
		if existing == p {
			n.parents = append(n.parents[:i], n.parents[i+1:]...)
			return
		}
	}
}

// ContentHash hashes n's current readable content with xxhash, used by
// the tree printer's show-hash toggle and by any caller that needs a
// cheap fingerprint of a node without a real mtime (spec.md §3.6 nodes
// have no host-filesystem timestamp of their own).
func (n *Node) ContentHash() uint64 {
	text, err := n.read()
	if err != nil {
		return 0
	}
	return xxhash.Sum64String(text)
}

// isAncestorOf reports whether target is n or appears somewhere in n's
// subtree,
// used by link to reject edges that would make a node its own ancestor
// (spec.md §5).
func (n *Node) isAncestorOf(target *Node) bool {
	if n == target {
		return true
	}
	for _, c := range n.children {
		if c.isAncestorOf(target) {
			return true
		}
	}
	return false
}
