package sast

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/vfsboot/internal/vfs"
)

// Attach builds a vfs.Node subtree mirroring n and adds it under dirPath
// in the given store/overlay via AddNode, per spec.md §3.4/§4.1's
// "parse <src> <dst>" operation. Container variants (If/Lambda/Call/
// Holder) expose their subterms as named children, matching sexp.h's
// shared-owned-children design; leaf variants (Int/Bool/Str/Sym) are
// plain non-directory nodes.
func Attach(store *vfs.Store, dirPath string, name string, n Node, ovl int) error {
	root := buildVfsNode(store, name, n)
	return store.AddNode(dirPath, root, ovl)
}

func buildVfsNode(store *vfs.Store, name string, n Node) *vfs.Node {
	switch t := n.(type) {
	case Int, Bool, Str, Sym:
		leaf := store.NewNode(name, vfs.KindSAst, false)
		leaf.Payload = &reader{text: Render(n)}
		return leaf
	case If:
		dir := store.NewNode(name, vfs.KindSAst, true)
		dir.Payload = &reader{text: Render(n)}
		_ = store.AttachChild(dir, buildVfsNode(store, "cond", t.Cond))
		_ = store.AttachChild(dir, buildVfsNode(store, "then", t.Then))
		_ = store.AttachChild(dir, buildVfsNode(store, "else", t.Else))
		return dir
	case Lambda:
		dir := store.NewNode(name, vfs.KindSAst, true)
		dir.Payload = &reader{text: Render(n)}
		_ = store.AttachChild(dir, buildVfsNode(store, "body", t.Body))
		return dir
	case Call:
		dir := store.NewNode(name, vfs.KindSAst, true)
		dir.Payload = &reader{text: Render(n)}
		_ = store.AttachChild(dir, buildVfsNode(store, "fn", t.Fn))
		for i, a := range t.Args {
			childName := fmt.Sprintf("arg%d", i)
			_ = store.AttachChild(dir, buildVfsNode(store, childName, a))
		}
		return dir
	case Holder:
		dir := store.NewNode(name, vfs.KindSAst, true)
		dir.Payload = &reader{text: Render(n)}
		_ = store.AttachChild(dir, buildVfsNode(store, "inner", t.Inner))
		return dir
	case Define:
		dir := store.NewNode(name, vfs.KindSAst, true)
		dir.Payload = &reader{text: Render(n)}
		_ = store.AttachChild(dir, buildVfsNode(store, "expr", t.Expr))
		return dir
	case Let:
		dir := store.NewNode(name, vfs.KindSAst, true)
		dir.Payload = &reader{text: Render(n)}
		_ = store.AttachChild(dir, buildVfsNode(store, "body", t.Body))
		for i, init := range t.Inits {
			childName := fmt.Sprintf("binding%d", i)
			_ = store.AttachChild(dir, buildVfsNode(store, childName, init))
		}
		return dir
	default:
		leaf := store.NewNode(name, vfs.KindSAst, false)
		leaf.Payload = &reader{text: Render(n)}
		return leaf
	}
}

// reader implements vfs.NodeReader, returning a node's source-like
// rendering on read. SAst nodes deliberately never implement
// vfs.NodeWriter (see internal/vfs node.go's documented open-question
// decision): mutation goes through parse + mv, not write.
type reader struct{ text string }

func (r *reader) ReadNode() (string, error) { return r.text, nil }

// Render pretty-prints a Node back to S-expression source, used for
// both the reader Payload above and debugging.
func Render(n Node) string {
	switch t := n.(type) {
	case Int:
		return fmt.Sprintf("%d", t.Val)
	case Bool:
		if t.Val {
			return "#t"
		}
		return "#f"
	case Str:
		return fmt.Sprintf("%q", t.Val)
	case Sym:
		return t.ID
	case If:
		return fmt.Sprintf("(if %s %s %s)", Render(t.Cond), Render(t.Then), Render(t.Else))
	case Lambda:
		return fmt.Sprintf("(lambda (%s) %s)", strings.Join(t.Params, " "), Render(t.Body))
	case Call:
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = Render(a)
		}
		return fmt.Sprintf("(%s %s)", Render(t.Fn), strings.Join(args, " "))
	case Holder:
		return Render(t.Inner)
	case Define:
		return fmt.Sprintf("(define %s %s)", t.Name, Render(t.Expr))
	case Let:
		bindings := make([]string, len(t.Names))
		for i, name := range t.Names {
			bindings[i] = fmt.Sprintf("(%s %s)", name, Render(t.Inits[i]))
		}
		return fmt.Sprintf("(let (%s) %s)", strings.Join(bindings, " "), Render(t.Body))
	default:
		return "<?>"
	}
}
