package dispatcher

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/standardbeagle/vfsboot/internal/vferrors"
	"github.com/standardbeagle/vfsboot/internal/vfs"
)

// registerFsCommands installs the plain filesystem surface of spec.md
// §6.1: navigation, listing, file text utilities, and the graft
// operations mv/link/export.
func (d *Dispatcher) registerFsCommands() {
	d.register("pwd", cmdPwd)
	d.register("cd", cmdCd)
	d.register("ls", cmdLs)
	d.register("tree", cmdTree)
	d.register("tree.adv", cmdTreeAdv)
	d.register("mkdir", cmdMkdir)
	d.register("touch", cmdTouch)
	d.register("cat", cmdCat)
	d.register("grep", cmdGrep)
	d.register("rg", cmdRg)
	d.register("head", cmdHead)
	d.register("tail", cmdTail)
	d.register("uniq", cmdUniq)
	d.register("count", cmdCount)
	d.register("echo", cmdEcho)
	d.register("rm", cmdRm)
	d.register("mv", cmdMv)
	d.register("link", cmdLink)
	d.register("export", cmdExport)
}

// readPath resolves arg through the session's scope and policy and
// returns the node's content — the shared input path for cat, grep,
// head, tail, and friends.
func (d *Dispatcher) readPath(arg string) (string, error) {
	abs := d.Sess.ResolvePath(arg)
	n, ovl, err := d.Sess.Resolve("read", arg)
	if err != nil {
		return "", err
	}
	if n.IsDir() && n.Kind == vfs.KindDir {
		return "", vferrors.IsDirectory("read", abs)
	}
	return d.Sess.Store.Read(abs, &ovl)
}

// inputFor implements the "path argument or pipeline stdin" convention
// the line utilities share.
func (d *Dispatcher) inputFor(args []string, stdin string) (string, error) {
	if len(args) == 0 {
		return stdin, nil
	}
	return d.readPath(args[0])
}

func cmdPwd(d *Dispatcher, _ Invocation, _ string) (Result, error) {
	return Result{Success: true, Output: d.Sess.Cwd() + "\n"}, nil
}

func cmdCd(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	target := "/"
	if len(inv.Args) > 0 {
		target = inv.Args[0]
	}
	if err := d.Sess.Cd(target); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

// kindGlyph is the one-letter kind prefix ls/tree print before a name.
func kindGlyph(k vfs.Kind) string {
	switch k {
	case vfs.KindDir:
		return "d"
	case vfs.KindFile:
		return "f"
	case vfs.KindSAst:
		return "s"
	case vfs.KindCppAst:
		return "c"
	case vfs.KindPlan:
		return "p"
	case vfs.KindMount:
		return "m"
	case vfs.KindLibrary:
		return "l"
	case vfs.KindLibrarySymbol:
		return "y"
	case vfs.KindRemote:
		return "r"
	default:
		return "?"
	}
}

func cmdLs(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	target := ""
	if len(inv.Args) > 0 {
		target = inv.Args[0]
	}
	abs := d.Sess.ResolvePath(target)
	n, ovl, err := d.Sess.Resolve("ls", target)
	if err != nil {
		return Result{}, err
	}
	if !n.IsDir() {
		return Result{Success: true, Output: kindGlyph(n.Kind) + " " + n.Name + "\n"}, nil
	}
	entries, err := d.Sess.Store.ListDir(abs, []int{ovl})
	if err != nil {
		return Result{}, err
	}
	var b strings.Builder
	for _, e := range entries {
		mark := ""
		if e.Conflict() {
			mark = " !"
		}
		fmt.Fprintf(&b, "%s %s%s\n", kindGlyph(e.Hits[0].Node.Kind), e.Name, mark)
	}
	return Result{Success: true, Output: b.String()}, nil
}

func cmdTree(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	target := ""
	if len(inv.Args) > 0 {
		target = inv.Args[0]
	}
	abs := d.Sess.ResolvePath(target)
	n, ovl, err := d.Sess.Resolve("tree", target)
	if err != nil {
		return Result{}, err
	}
	var b strings.Builder
	treeGlyphInto(&b, d, abs, n, ovl, 0)
	return Result{Success: true, Output: b.String()}, nil
}

func treeGlyphInto(b *strings.Builder, d *Dispatcher, abs string, n *vfs.Node, ovl, depth int) {
	fmt.Fprintf(b, "%s%s %s\n", strings.Repeat("  ", depth), kindGlyph(n.Kind), n.Name)
	if !n.IsDir() {
		return
	}
	entries, err := d.Sess.Store.ListDir(abs, []int{ovl})
	if err != nil {
		return
	}
	for _, e := range entries {
		childPath := abs + "/" + e.Name
		if abs == "/" {
			childPath = "/" + e.Name
		}
		treeGlyphInto(b, d, childPath, e.Hits[0].Node, ovl, depth+1)
	}
}

// cmdTreeAdv is the toggle-rich tree from spec.md §4.1: flags select
// which annotations vfs.DumpOptions renders.
func cmdTreeAdv(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	opts := vfs.DumpOptions{}
	target := ""
	args := inv.Args
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--kind":
			opts.ShowKind = true
		case "--overlay":
			opts.ShowOverlay = true
		case "--hash":
			opts.ShowHash = true
		case "--size":
			opts.ShowSize = true
		case "--filter":
			if i+1 >= len(args) {
				return Result{}, vferrors.ParseError("tree.adv", "--filter needs a substring")
			}
			opts.Filter = args[i+1]
			i++
		case "--tags":
			opts.ShowTags = func(e vfs.Entry) []string {
				var names []string
				for _, id := range d.Sess.Tags.Tags(e.Hits[0].Node.ID()).Items() {
					names = append(names, d.Sess.Registry.Name(id))
				}
				return names
			}
		case "--depth":
			if i+1 >= len(args) {
				return Result{}, vferrors.ParseError("tree.adv", "--depth needs a number")
			}
			n, err := strconv.Atoi(args[i+1])
			if err != nil {
				return Result{}, vferrors.ParseError("tree.adv", "bad depth "+args[i+1])
			}
			opts.MaxDepth = n
			i++
		default:
			target = args[i]
		}
	}
	abs := d.Sess.ResolvePath(target)
	scope := d.Sess.Store.OverlaysForPath(abs)
	if len(scope) == 0 {
		return Result{}, vferrors.NotFound("tree.adv", abs)
	}
	out, err := d.Sess.Store.Tree(abs, scope, opts)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Output: out}, nil
}

func cmdMkdir(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("mkdir", "usage: mkdir <path>")
	}
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return Result{}, err
	}
	if err := d.Sess.Store.Mkdir(d.Sess.ResolvePath(inv.Args[0]), ovl); err != nil {
		return Result{}, err
	}
	d.noteMutation(ovl)
	return Result{Success: true}, nil
}

func cmdTouch(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("touch", "usage: touch <path>")
	}
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return Result{}, err
	}
	if err := d.Sess.Store.Touch(d.Sess.ResolvePath(inv.Args[0]), ovl); err != nil {
		return Result{}, err
	}
	d.noteMutation(ovl)
	return Result{Success: true}, nil
}

func cmdCat(d *Dispatcher, inv Invocation, stdin string) (Result, error) {
	data, err := d.inputFor(inv.Args, stdin)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Output: data}, nil
}

// grepLines keeps the lines of data containing pattern, the shared body
// of grep (substring) and rg (regexp).
func grepLines(data string, match func(string) bool) string {
	var b strings.Builder
	for _, line := range splitKeep(data) {
		if match(line) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// splitKeep splits data into lines, dropping a trailing empty line so
// "a\nb\n" is two lines, not three.
func splitKeep(data string) []string {
	lines := strings.Split(data, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func cmdGrep(d *Dispatcher, inv Invocation, stdin string) (Result, error) {
	args := inv.Args
	fold := false
	if len(args) > 0 && args[0] == "-i" {
		fold = true
		args = args[1:]
	}
	if len(args) < 1 {
		return Result{}, vferrors.ParseError("grep", "usage: grep [-i] <pattern> [path]")
	}
	pattern := args[0]
	data, err := d.inputFor(args[1:], stdin)
	if err != nil {
		return Result{}, err
	}
	match := func(line string) bool { return strings.Contains(line, pattern) }
	if fold {
		lower := strings.ToLower(pattern)
		match = func(line string) bool { return strings.Contains(strings.ToLower(line), lower) }
	}
	return Result{Success: true, Output: grepLines(data, match)}, nil
}

func cmdRg(d *Dispatcher, inv Invocation, stdin string) (Result, error) {
	args := inv.Args
	fold := false
	if len(args) > 0 && args[0] == "-i" {
		fold = true
		args = args[1:]
	}
	if len(args) < 1 {
		return Result{}, vferrors.ParseError("rg", "usage: rg [-i] <regex> [path]")
	}
	expr := args[0]
	if fold {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Result{}, vferrors.ParseError("rg", err.Error())
	}
	data, err := d.inputFor(args[1:], stdin)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Output: grepLines(data, re.MatchString)}, nil
}

// headTailArgs parses the shared `[-n N] [path]` argument form.
func headTailArgs(op string, args []string) (int, []string, error) {
	take := 10
	if len(args) > 0 && args[0] == "-n" {
		if len(args) < 2 {
			return 0, nil, vferrors.ParseError(op, op+" -n <count> [path]")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return 0, nil, vferrors.ParseError(op, "bad count "+args[1])
		}
		return n, args[2:], nil
	}
	return take, args, nil
}

func cmdHead(d *Dispatcher, inv Invocation, stdin string) (Result, error) {
	take, rest, err := headTailArgs("head", inv.Args)
	if err != nil {
		return Result{}, err
	}
	data, err := d.inputFor(rest, stdin)
	if err != nil {
		return Result{}, err
	}
	lines := splitKeep(data)
	if take < len(lines) {
		lines = lines[:take]
	}
	return Result{Success: true, Output: joinLines(lines)}, nil
}

func cmdTail(d *Dispatcher, inv Invocation, stdin string) (Result, error) {
	take, rest, err := headTailArgs("tail", inv.Args)
	if err != nil {
		return Result{}, err
	}
	data, err := d.inputFor(rest, stdin)
	if err != nil {
		return Result{}, err
	}
	lines := splitKeep(data)
	if take < len(lines) {
		lines = lines[len(lines)-take:]
	}
	return Result{Success: true, Output: joinLines(lines)}, nil
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// cmdUniq drops every repeated line, keeping first occurrences in
// order — set semantics rather than adjacent-only collapsing, so a
// pipeline never needs a sort stage first.
func cmdUniq(d *Dispatcher, inv Invocation, stdin string) (Result, error) {
	data, err := d.inputFor(inv.Args, stdin)
	if err != nil {
		return Result{}, err
	}
	seen := make(map[string]bool)
	var kept []string
	for _, line := range splitKeep(data) {
		if seen[line] {
			continue
		}
		seen[line] = true
		kept = append(kept, line)
	}
	return Result{Success: true, Output: joinLines(kept)}, nil
}

func cmdCount(d *Dispatcher, inv Invocation, stdin string) (Result, error) {
	data, err := d.inputFor(inv.Args, stdin)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Output: fmt.Sprintf("%d\n", len(splitKeep(data)))}, nil
}

// cmdEcho writes its joined text to a VFS path and passes the same text
// downstream, so `echo /a/f "hi"` both creates the file and feeds any
// following pipe stage.
func cmdEcho(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("echo", "usage: echo <path> <text...>")
	}
	text := strings.Join(inv.Args[1:], " ")
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return Result{}, err
	}
	if err := d.Sess.Store.Write(d.Sess.ResolvePath(inv.Args[0]), []byte(text), ovl); err != nil {
		return Result{}, err
	}
	d.noteMutation(ovl)
	return Result{Success: true, Output: text}, nil
}

func cmdRm(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("rm", "usage: rm <path>")
	}
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return Result{}, err
	}
	if err := d.Sess.Store.Rm(d.Sess.ResolvePath(inv.Args[0]), ovl); err != nil {
		return Result{}, err
	}
	d.noteMutation(ovl)
	return Result{Success: true}, nil
}

func cmdMv(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("mv", "usage: mv <src> <dst>")
	}
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return Result{}, err
	}
	if err := d.Sess.Store.Mv(d.Sess.ResolvePath(inv.Args[0]), d.Sess.ResolvePath(inv.Args[1]), ovl); err != nil {
		return Result{}, err
	}
	d.noteMutation(ovl)
	return Result{Success: true}, nil
}

func cmdLink(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("link", "usage: link <src> <dst>")
	}
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return Result{}, err
	}
	if err := d.Sess.Store.Link(d.Sess.ResolvePath(inv.Args[0]), d.Sess.ResolvePath(inv.Args[1]), ovl); err != nil {
		return Result{}, err
	}
	d.noteMutation(ovl)
	return Result{Success: true}, nil
}

func cmdExport(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("export", "usage: export <vfs> <host>")
	}
	data, err := d.readPath(inv.Args[0])
	if err != nil {
		return Result{}, err
	}
	if err := os.WriteFile(inv.Args[1], []byte(data), 0o644); err != nil {
		return Result{}, vferrors.ExternalFailure("export", inv.Args[1], err)
	}
	return Result{Success: true, Output: "export -> " + inv.Args[1] + "\n"}, nil
}
