package dispatcher

import (
	"sort"
	"strings"

	"github.com/standardbeagle/vfsboot/internal/logic"
	"github.com/standardbeagle/vfsboot/internal/tagid"
	"github.com/standardbeagle/vfsboot/internal/vferrors"
)

// registerTagCommands installs tag.add/remove/list/clear/has.
func (d *Dispatcher) registerTagCommands() {
	d.register("tag.add", cmdTagAdd)
	d.register("tag.remove", cmdTagRemove)
	d.register("tag.list", cmdTagList)
	d.register("tag.clear", cmdTagClear)
	d.register("tag.has", cmdTagHas)
}

// tagNames renders a tag set as sorted names.
func (d *Dispatcher) tagNames(s *tagid.Set) []string {
	names := make([]string, 0, s.Cardinality())
	for _, id := range s.Items() {
		names = append(names, d.Sess.Registry.Name(id))
	}
	sort.Strings(names)
	return names
}

func cmdTagAdd(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("tag.add", "usage: tag.add <path> <tag...>")
	}
	n, _, err := d.Sess.Resolve("tag.add", inv.Args[0])
	if err != nil {
		return Result{}, err
	}
	for _, name := range inv.Args[1:] {
		d.Sess.Tags.AddTag(n.ID(), d.Sess.Registry.Register(name))
	}
	return Result{Success: true}, nil
}

func cmdTagRemove(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("tag.remove", "usage: tag.remove <path> <tag...>")
	}
	n, _, err := d.Sess.Resolve("tag.remove", inv.Args[0])
	if err != nil {
		return Result{}, err
	}
	for _, name := range inv.Args[1:] {
		id := d.Sess.Registry.ID(name)
		if id == tagid.Invalid {
			e := vferrors.NotFound("tag.remove", name)
			if hint := logic.SuggestTagName(d.Sess.Registry, name); hint != "" {
				e = e.WithDetail("did you mean %q?", hint)
			}
			return Result{}, e
		}
		d.Sess.Tags.RemoveTag(n.ID(), id)
	}
	return Result{Success: true}, nil
}

func cmdTagList(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("tag.list", "usage: tag.list <path>")
	}
	n, _, err := d.Sess.Resolve("tag.list", inv.Args[0])
	if err != nil {
		return Result{}, err
	}
	names := d.tagNames(d.Sess.Tags.Tags(n.ID()))
	if len(names) == 0 {
		return Result{Success: true}, nil
	}
	return Result{Success: true, Output: strings.Join(names, "\n") + "\n"}, nil
}

func cmdTagClear(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("tag.clear", "usage: tag.clear <path>")
	}
	n, _, err := d.Sess.Resolve("tag.clear", inv.Args[0])
	if err != nil {
		return Result{}, err
	}
	d.Sess.Tags.Clear(n.ID())
	return Result{Success: true}, nil
}

func cmdTagHas(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("tag.has", "usage: tag.has <path> <tag>")
	}
	n, _, err := d.Sess.Resolve("tag.has", inv.Args[0])
	if err != nil {
		return Result{}, err
	}
	id := d.Sess.Registry.ID(inv.Args[1])
	if id != tagid.Invalid && d.Sess.Tags.Tags(n.ID()).Contains(id) {
		return Result{Success: true, Output: "yes\n"}, nil
	}
	return Result{Success: false, Output: "no\n"}, nil
}
