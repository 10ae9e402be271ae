package dispatcher

import (
	"strconv"
	"strings"

	"github.com/standardbeagle/vfsboot/internal/cppast"
	"github.com/standardbeagle/vfsboot/internal/vferrors"
	"github.com/standardbeagle/vfsboot/internal/vfs"
)

// cppBuilder tracks the translation units under construction, keyed by
// their VFS path. The in-memory TranslationUnit is the source of truth;
// the VFS subtree is re-attached after every mutation so cd/ls always
// see the current shape.
type cppBuilder struct {
	tus map[string]*cppast.TranslationUnit
}

func newCppBuilder() *cppBuilder {
	return &cppBuilder{tus: make(map[string]*cppast.TranslationUnit)}
}

// tuAt returns the translation unit registered at tuPath.
func (c *cppBuilder) tuAt(op, tuPath string) (*cppast.TranslationUnit, error) {
	tu, ok := c.tus[tuPath]
	if !ok {
		return nil, vferrors.NotFound(op, tuPath).WithDetail("no translation unit here; cpp.tu first")
	}
	return tu, nil
}

// funcAt resolves a function path (<tuPath>/<name>) to its tu and
// function. Functions are looked up by name on every call rather than
// cached: tu.Funcs is a slice and pointers into it go stale on append.
func (c *cppBuilder) funcAt(op, funcPath string) (string, *cppast.Function, error) {
	tuPath := vfs.Dirname(funcPath)
	name := vfs.Basename(funcPath)
	tu, err := c.tuAt(op, tuPath)
	if err != nil {
		return "", nil, err
	}
	for i := range tu.Funcs {
		if tu.Funcs[i].Name == name {
			return tuPath, &tu.Funcs[i], nil
		}
	}
	return "", nil, vferrors.NotFound(op, funcPath).WithDetail("no such function in translation unit")
}

// refreshTu re-attaches tuPath's VFS subtree from its in-memory tree.
func (d *Dispatcher) refreshTu(tuPath string) error {
	tu, ok := d.cpp.tus[tuPath]
	if !ok {
		return vferrors.NotFound("cpp", tuPath)
	}
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return err
	}
	_ = d.Sess.Store.Rm(tuPath, ovl)
	dir := vfs.Dirname(tuPath)
	if err := d.Sess.Store.Mkdir(dir, ovl); err != nil {
		return err
	}
	if err := cppast.AttachTranslationUnit(d.Sess.Store, dir, vfs.Basename(tuPath), tu, ovl); err != nil {
		return err
	}
	d.noteMutation(ovl)
	return nil
}

// registerCppCommands installs the C++ construction surface of spec.md
// §4.5/§6.1.
func (d *Dispatcher) registerCppCommands() {
	d.register("cpp.tu", cmdCppTu)
	d.register("cpp.include", cmdCppInclude)
	d.register("cpp.func", cmdCppFunc)
	d.register("cpp.param", cmdCppParam)
	d.register("cpp.print", cmdCppPrint)
	d.register("cpp.vardecl", cmdCppVarDecl)
	d.register("cpp.expr", cmdCppExpr)
	d.register("cpp.stmt", cmdCppStmt)
	d.register("cpp.return", cmdCppReturn)
	d.register("cpp.returni", cmdCppReturnI)
	d.register("cpp.rangefor", cmdCppRangeFor)
	d.register("cpp.dump", cmdCppDump)
	d.register("cpp.parse", cmdCppParse)
}

func cmdCppTu(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("cpp.tu", "usage: cpp.tu <path>")
	}
	abs := d.Sess.ResolvePath(inv.Args[0])
	d.cpp.tus[abs] = &cppast.TranslationUnit{}
	if err := d.refreshTu(abs); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

func cmdCppInclude(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("cpp.include", "usage: cpp.include <tu> <header> [angled]")
	}
	abs := d.Sess.ResolvePath(inv.Args[0])
	tu, err := d.cpp.tuAt("cpp.include", abs)
	if err != nil {
		return Result{}, err
	}
	angled := len(inv.Args) > 2 && (inv.Args[2] == "1" || inv.Args[2] == "true")
	tu.AddInclude(inv.Args[1], angled)
	if err := d.refreshTu(abs); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

func cmdCppFunc(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 3 {
		return Result{}, vferrors.ParseError("cpp.func", "usage: cpp.func <tu> <name> <returnType>")
	}
	abs := d.Sess.ResolvePath(inv.Args[0])
	tu, err := d.cpp.tuAt("cpp.func", abs)
	if err != nil {
		return Result{}, err
	}
	tu.AddFunction(inv.Args[2], inv.Args[1])
	if err := d.refreshTu(abs); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

func cmdCppParam(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 3 {
		return Result{}, vferrors.ParseError("cpp.param", "usage: cpp.param <func> <type> <name>")
	}
	abs := d.Sess.ResolvePath(inv.Args[0])
	tuPath, fn, err := d.cpp.funcAt("cpp.param", abs)
	if err != nil {
		return Result{}, err
	}
	fn.Params = append(fn.Params, cppast.Param{Type: inv.Args[1], Name: inv.Args[2]})
	if err := d.refreshTu(tuPath); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

// cmdCppPrint appends `std::cout << "<text>" << std::endl;`.
func cmdCppPrint(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("cpp.print", "usage: cpp.print <func> <text...>")
	}
	abs := d.Sess.ResolvePath(inv.Args[0])
	tuPath, fn, err := d.cpp.funcAt("cpp.print", abs)
	if err != nil {
		return Result{}, err
	}
	text := strings.Join(inv.Args[1:], " ")
	fn.AddStmt(cppast.ExprStmt{E: cppast.StreamOut{Chain: []cppast.Expr{
		cppast.CppString{Val: text},
		cppast.Id{ID: "endl"},
	}}})
	if err := d.refreshTu(tuPath); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

func cmdCppVarDecl(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 3 {
		return Result{}, vferrors.ParseError("cpp.vardecl", "usage: cpp.vardecl <func> <type> <name> [init...]")
	}
	abs := d.Sess.ResolvePath(inv.Args[0])
	tuPath, fn, err := d.cpp.funcAt("cpp.vardecl", abs)
	if err != nil {
		return Result{}, err
	}
	decl := cppast.VarDecl{Type: inv.Args[1], Name: inv.Args[2]}
	if len(inv.Args) > 3 {
		decl.Init = strings.Join(inv.Args[3:], " ")
		decl.HasInit = true
	}
	fn.AddStmt(decl)
	if err := d.refreshTu(tuPath); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

func cmdCppExpr(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("cpp.expr", "usage: cpp.expr <func> <expression...>")
	}
	abs := d.Sess.ResolvePath(inv.Args[0])
	tuPath, fn, err := d.cpp.funcAt("cpp.expr", abs)
	if err != nil {
		return Result{}, err
	}
	fn.AddStmt(cppast.ExprStmt{E: cppast.RawExpr{Text: strings.Join(inv.Args[1:], " ")}})
	if err := d.refreshTu(tuPath); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

func cmdCppStmt(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("cpp.stmt", "usage: cpp.stmt <func> <statement...>")
	}
	abs := d.Sess.ResolvePath(inv.Args[0])
	tuPath, fn, err := d.cpp.funcAt("cpp.stmt", abs)
	if err != nil {
		return Result{}, err
	}
	fn.AddStmt(cppast.RawStmt{Text: strings.Join(inv.Args[1:], " ")})
	if err := d.refreshTu(tuPath); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

func cmdCppReturn(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("cpp.return", "usage: cpp.return <func> [expression...]")
	}
	abs := d.Sess.ResolvePath(inv.Args[0])
	tuPath, fn, err := d.cpp.funcAt("cpp.return", abs)
	if err != nil {
		return Result{}, err
	}
	ret := cppast.Return{}
	if len(inv.Args) > 1 {
		ret.E = cppast.RawExpr{Text: strings.Join(inv.Args[1:], " ")}
	}
	fn.AddStmt(ret)
	if err := d.refreshTu(tuPath); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

func cmdCppReturnI(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("cpp.returni", "usage: cpp.returni <func> <int>")
	}
	abs := d.Sess.ResolvePath(inv.Args[0])
	tuPath, fn, err := d.cpp.funcAt("cpp.returni", abs)
	if err != nil {
		return Result{}, err
	}
	v, err := strconv.ParseInt(inv.Args[1], 10, 64)
	if err != nil {
		return Result{}, vferrors.ParseError("cpp.returni", "bad integer "+inv.Args[1])
	}
	fn.AddStmt(cppast.Return{E: cppast.Int{Val: v}})
	if err := d.refreshTu(tuPath); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

func cmdCppRangeFor(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 3 {
		return Result{}, vferrors.ParseError("cpp.rangefor", "usage: cpp.rangefor <func> <decl> <range>")
	}
	abs := d.Sess.ResolvePath(inv.Args[0])
	tuPath, fn, err := d.cpp.funcAt("cpp.rangefor", abs)
	if err != nil {
		return Result{}, err
	}
	fn.AddStmt(cppast.RangeFor{Decl: inv.Args[1], Range: inv.Args[2]})
	if err := d.refreshTu(tuPath); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

// cmdCppDump pretty-prints a translation unit into a VFS file.
func cmdCppDump(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("cpp.dump", "usage: cpp.dump <tu> <file>")
	}
	abs := d.Sess.ResolvePath(inv.Args[0])
	tu, err := d.cpp.tuAt("cpp.dump", abs)
	if err != nil {
		return Result{}, err
	}
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return Result{}, err
	}
	file := d.Sess.ResolvePath(inv.Args[1])
	if err := cppast.DumpToVfs(d.Sess.Store, tu, file, ovl); err != nil {
		return Result{}, err
	}
	d.noteMutation(ovl)
	return Result{Success: true, Output: "dumped " + file + "\n"}, nil
}

// cmdCppParse reads C++ source from a VFS file and builds a CppAst
// subtree from it through the tree-sitter adapter.
func cmdCppParse(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("cpp.parse", "usage: cpp.parse <src> <dst>")
	}
	src, err := d.readPath(inv.Args[0])
	if err != nil {
		return Result{}, err
	}
	abs := d.Sess.ResolvePath(inv.Args[1])
	tu, err := cppast.ParseTranslationUnit(vfs.Basename(abs), []byte(src))
	if err != nil {
		return Result{}, err
	}
	d.cpp.tus[abs] = tu
	if err := d.refreshTu(abs); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}
