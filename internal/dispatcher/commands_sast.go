package dispatcher

import (
	"github.com/standardbeagle/vfsboot/internal/sast"
	"github.com/standardbeagle/vfsboot/internal/vferrors"
	"github.com/standardbeagle/vfsboot/internal/vfs"
)

// registerSastCommands installs parse and eval (spec.md §4.4).
func (d *Dispatcher) registerSastCommands() {
	d.register("parse", cmdParse)
	d.register("eval", cmdEval)
}

// cmdParse reads S-expression source from a VFS file and attaches the
// parsed AST at the destination path.
func cmdParse(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("parse", "usage: parse <src> <dst>")
	}
	src, err := d.readPath(inv.Args[0])
	if err != nil {
		return Result{}, err
	}
	ast, err := sast.Parse(src)
	if err != nil {
		return Result{}, err
	}
	abs := d.Sess.ResolvePath(inv.Args[1])
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return Result{}, err
	}
	dir := vfs.Dirname(abs)
	if err := d.Sess.Store.Mkdir(dir, ovl); err != nil {
		return Result{}, err
	}
	if err := sast.Attach(d.Sess.Store, dir, vfs.Basename(abs), ast, ovl); err != nil {
		return Result{}, err
	}
	d.noteMutation(ovl)
	return Result{Success: true, Output: "AST @ " + abs + "\n"}, nil
}

// cmdEval evaluates the AST at the given path in the dispatcher's
// persistent global environment. The node's rendered source round-trips
// through the parser, so evaluation always sees the current tree.
func cmdEval(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("eval", "usage: eval <path>")
	}
	n, _, err := d.Sess.Resolve("eval", inv.Args[0])
	if err != nil {
		return Result{}, err
	}
	if n.Kind != vfs.KindSAst {
		return Result{}, vferrors.NotFound("eval", d.Sess.ResolvePath(inv.Args[0])).WithDetail("not an AST node")
	}
	reader, ok := n.Payload.(vfs.NodeReader)
	if !ok {
		return Result{}, vferrors.Internal("eval", "AST node has no source form")
	}
	src, err := reader.ReadNode()
	if err != nil {
		return Result{}, err
	}
	ast, err := sast.Parse(src)
	if err != nil {
		return Result{}, err
	}
	val, err := ast.Eval(d.env)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Output: val.Show() + "\n"}, nil
}
