package dispatcher

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/standardbeagle/vfsboot/internal/persistence"
	"github.com/standardbeagle/vfsboot/internal/vferrors"
	"github.com/standardbeagle/vfsboot/internal/vfs"
)

// registerOverlayCommands installs the overlay stack, solution, and
// mount surface of spec.md §6.1.
func (d *Dispatcher) registerOverlayCommands() {
	d.register("overlay.list", cmdOverlayList)
	d.register("overlay.use", cmdOverlayUse)
	d.register("overlay.policy", cmdOverlayPolicy)
	d.register("overlay.mount", cmdOverlayMount)
	d.register("overlay.save", cmdOverlaySave)
	d.register("overlay.unmount", cmdOverlayUnmount)
	d.register("solution.save", cmdSolutionSave)

	d.register("mount", cmdMount)
	d.register("mount.lib", cmdMountLib)
	d.register("mount.remote", cmdMountRemote)
	d.register("mount.list", cmdMountList)
	d.register("mount.allow", cmdMountAllow)
	d.register("mount.disallow", cmdMountDisallow)
	d.register("unmount", cmdUnmount)
}

func cmdOverlayList(d *Dispatcher, _ Invocation, _ string) (Result, error) {
	var b strings.Builder
	for _, o := range d.Sess.Store.Overlays() {
		mark := " "
		if o.Dirty() {
			mark = "*"
		}
		cur := " "
		if o.ID == d.Sess.CurrentOverlay() {
			cur = ">"
		}
		fmt.Fprintf(&b, "%s%s %d %s", cur, mark, o.ID, o.Name)
		if o.Source != "" {
			fmt.Fprintf(&b, " (%s)", o.Source)
		}
		b.WriteByte('\n')
	}
	return Result{Success: true, Output: b.String()}, nil
}

func cmdOverlayUse(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("overlay.use", "usage: overlay.use <name>")
	}
	id, ok := d.Sess.Store.FindOverlayByName(inv.Args[0])
	if !ok {
		return Result{}, vferrors.NotFound("overlay.use", inv.Args[0])
	}
	if err := d.Sess.SetCurrentOverlay(id); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

func cmdOverlayPolicy(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{Success: true, Output: d.Sess.Policy().String() + "\n"}, nil
	}
	p, ok := vfs.ParsePolicy(inv.Args[0])
	if !ok {
		return Result{}, vferrors.ParseError("overlay.policy", "expected manual|oldest|newest, got "+inv.Args[0])
	}
	d.Sess.SetPolicy(p)
	return Result{Success: true}, nil
}

// cmdOverlayMount loads an overlay file into a freshly registered
// overlay and makes it the active solution (spec.md §3.6).
func cmdOverlayMount(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("overlay.mount", "usage: overlay.mount <name> <file>")
	}
	name, file := inv.Args[0], inv.Args[1]
	id, err := persistence.LoadSolution(d.Sess.Store, name, file)
	if err != nil {
		return Result{}, err
	}
	d.solution = id
	if d.Autosave != nil {
		d.Autosave.Track(id)
	}
	return Result{Success: true, Output: fmt.Sprintf("overlay %s mounted as %d\n", name, id)}, nil
}

func cmdOverlaySave(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("overlay.save", "usage: overlay.save <name> [file]")
	}
	id, ok := d.Sess.Store.FindOverlayByName(inv.Args[0])
	if !ok {
		return Result{}, vferrors.NotFound("overlay.save", inv.Args[0])
	}
	path := d.Sess.Store.Overlay(id).Source
	if len(inv.Args) > 1 {
		path = inv.Args[1]
	}
	if path == "" {
		return Result{}, vferrors.ParseError("overlay.save", "overlay has no source path; give a file argument")
	}
	if err := persistence.SaveSolution(d.Sess.Store, id, path); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Output: "saved " + path + "\n"}, nil
}

func cmdOverlayUnmount(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("overlay.unmount", "usage: overlay.unmount <name>")
	}
	id, ok := d.Sess.Store.FindOverlayByName(inv.Args[0])
	if !ok {
		return Result{}, vferrors.NotFound("overlay.unmount", inv.Args[0])
	}
	if err := d.Sess.Store.UnregisterOverlay(id); err != nil {
		return Result{}, err
	}
	if d.solution == id {
		d.solution = -1
	}
	if d.Autosave != nil {
		d.Autosave.Untrack(id)
	}
	if d.Sess.CurrentOverlay() == id {
		_ = d.Sess.SetCurrentOverlay(0)
	}
	return Result{Success: true}, nil
}

// cmdSolutionSave saves the active solution overlay back to its source
// file, or to an explicit path.
func cmdSolutionSave(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if d.solution < 0 {
		return Result{}, vferrors.ParseError("solution.save", "no active solution; overlay.mount one first")
	}
	path := d.Sess.Store.Overlay(d.solution).Source
	if len(inv.Args) > 0 {
		path = inv.Args[0]
	}
	if path == "" {
		return Result{}, vferrors.ParseError("solution.save", "solution has no source path; give a file argument")
	}
	if err := persistence.SaveSolution(d.Sess.Store, d.solution, path); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Output: "saved " + path + "\n"}, nil
}

func cmdMount(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("mount", "usage: mount <hostPath> <vfsPath>")
	}
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return Result{}, err
	}
	if err := d.Sess.Mounts.MountHost(d.Sess.ResolvePath(inv.Args[1]), inv.Args[0], ovl); err != nil {
		return Result{}, err
	}
	d.noteMutation(ovl)
	return Result{Success: true}, nil
}

func cmdMountLib(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("mount.lib", "usage: mount.lib <libPath> <vfsPath>")
	}
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return Result{}, err
	}
	if err := d.Sess.Mounts.MountLibrary(d.Sess.ResolvePath(inv.Args[1]), inv.Args[0], ovl); err != nil {
		return Result{}, err
	}
	d.noteMutation(ovl)
	return Result{Success: true}, nil
}

func cmdMountRemote(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 4 {
		return Result{}, vferrors.ParseError("mount.remote", "usage: mount.remote <host> <port> <remotePath> <vfsPath>")
	}
	port, err := strconv.Atoi(inv.Args[1])
	if err != nil {
		return Result{}, vferrors.ParseError("mount.remote", "bad port "+inv.Args[1])
	}
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return Result{}, err
	}
	if err := d.Sess.Mounts.MountRemote(d.Sess.ResolvePath(inv.Args[3]), inv.Args[0], port, inv.Args[2], ovl); err != nil {
		return Result{}, err
	}
	d.noteMutation(ovl)
	return Result{Success: true}, nil
}

func cmdMountList(d *Dispatcher, _ Invocation, _ string) (Result, error) {
	var b strings.Builder
	for _, r := range d.Sess.Mounts.List() {
		fmt.Fprintf(&b, "%s %s <- %s\n", r.Kind, r.VfsPath, r.Origin)
	}
	return Result{Success: true, Output: b.String()}, nil
}

func cmdMountAllow(d *Dispatcher, _ Invocation, _ string) (Result, error) {
	d.Sess.Mounts.Allow()
	return Result{Success: true}, nil
}

func cmdMountDisallow(d *Dispatcher, _ Invocation, _ string) (Result, error) {
	d.Sess.Mounts.Disallow()
	return Result{Success: true}, nil
}

func cmdUnmount(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("unmount", "usage: unmount <vfsPath>")
	}
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return Result{}, err
	}
	if err := d.Sess.Mounts.Unmount(d.Sess.ResolvePath(inv.Args[0]), ovl); err != nil {
		return Result{}, err
	}
	d.noteMutation(ovl)
	return Result{Success: true}, nil
}
