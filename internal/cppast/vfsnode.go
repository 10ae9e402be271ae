package cppast

import (
	"fmt"

	"github.com/standardbeagle/vfsboot/internal/vfs"
)

// reader implements vfs.NodeReader, returning a node's dumped source on
// read. Construction-API nodes deliberately never implement
// vfs.NodeWriter — mutation goes through the typed AddFunction/AddInclude
// etc. constructors below, not generic `write` (spec.md §9's open
// question, same decision as internal/sast).
type reader struct {
	node Node
}

func (r *reader) ReadNode() (string, error) { return r.node.Dump(0), nil }

// AttachTranslationUnit builds a directory-like CppAst subtree for tu
// and attaches it under dirPath, per spec.md §4.5's "cpp.dump tu file"
// and the construction API's "accept a VFS path for the parent".
// Includes are exposed as read-only leaves; each function is a
// directory whose "body" child is a directory of statement children
// (cpp_ast.h: CppFunction/CppCompound/CppRangeFor all expose a child
// map), so `cd`/`ls` can navigate into a function body.
func AttachTranslationUnit(store *vfs.Store, dirPath, name string, tu *TranslationUnit, ovl int) error {
	root := store.NewNode(name, vfs.KindCppAst, true)
	root.Payload = &reader{node: tu}
	for i, inc := range tu.Includes {
		childName := fmt.Sprintf("include%d", i)
		leaf := store.NewNode(childName, vfs.KindCppAst, false)
		leaf.Payload = &reader{node: inc}
		_ = store.AttachChild(root, leaf)
	}
	for i := range tu.Funcs {
		fn := &tu.Funcs[i]
		_ = store.AttachChild(root, buildFunctionNode(store, fn))
	}
	return store.AddNode(dirPath, root, ovl)
}

func buildFunctionNode(store *vfs.Store, fn *Function) *vfs.Node {
	n := store.NewNode(fn.Name, vfs.KindCppAst, true)
	n.Payload = &reader{node: fn}
	_ = store.AttachChild(n, buildCompoundNode(store, "body", &fn.Body))
	return n
}

func buildCompoundNode(store *vfs.Store, name string, c *Compound) *vfs.Node {
	n := store.NewNode(name, vfs.KindCppAst, true)
	n.Payload = &reader{node: c}
	for i := range c.Stmts {
		childName := fmt.Sprintf("stmt%d", i)
		_ = store.AttachChild(n, buildStmtNode(store, childName, c.Stmts[i]))
	}
	return n
}

func buildStmtNode(store *vfs.Store, name string, s Stmt) *vfs.Node {
	switch t := s.(type) {
	case Compound:
		return buildCompoundNode(store, name, &t)
	case RangeFor:
		n := store.NewNode(name, vfs.KindCppAst, true)
		n.Payload = &reader{node: t}
		_ = store.AttachChild(n, buildCompoundNode(store, "body", &t.Body))
		return n
	default:
		n := store.NewNode(name, vfs.KindCppAst, false)
		n.Payload = &reader{node: s}
		return n
	}
}

// AddFunction appends a new, empty-bodied function to the in-memory tu
// and returns it; it takes no VFS path and does not touch the VFS. Callers
// re-run AttachTranslationUnit (after Rm-ing the old subtree) to refresh
// the VFS view; the in-memory tu is the single source of truth.
func (tu *TranslationUnit) AddFunction(retType, name string, params ...Param) *Function {
	tu.Funcs = append(tu.Funcs, Function{RetType: retType, Name: name, Params: params})
	return &tu.Funcs[len(tu.Funcs)-1]
}

// AddInclude appends a new #include directive.
func (tu *TranslationUnit) AddInclude(header string, angled bool) {
	tu.Includes = append(tu.Includes, Include{Header: header, Angled: angled})
}

// AddStmt appends a statement to a function's body.
func (fn *Function) AddStmt(s Stmt) {
	fn.Body.Stmts = append(fn.Body.Stmts, s)
}
