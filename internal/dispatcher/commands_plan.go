package dispatcher

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/standardbeagle/vfsboot/internal/persistence"
	"github.com/standardbeagle/vfsboot/internal/plan"
	"github.com/standardbeagle/vfsboot/internal/vferrors"
	"github.com/standardbeagle/vfsboot/internal/vfs"
)

// registerPlanCommands installs the planner surface of spec.md §6.1.
func (d *Dispatcher) registerPlanCommands() {
	d.register("plan.create", cmdPlanCreate)
	d.register("plan.goto", cmdPlanGoto)
	d.register("plan.forward", cmdPlanForward)
	d.register("plan.backward", cmdPlanBackward)
	d.register("plan.context.add", cmdPlanContextAdd)
	d.register("plan.context.remove", cmdPlanContextRemove)
	d.register("plan.context.clear", cmdPlanContextClear)
	d.register("plan.context.list", cmdPlanContextList)
	d.register("plan.jobs.add", cmdPlanJobsAdd)
	d.register("plan.jobs.complete", cmdPlanJobsComplete)
	d.register("plan.verify", cmdPlanVerify)
	d.register("plan.tags.infer", cmdPlanTagsInfer)
	d.register("plan.tags.check", cmdPlanTagsCheck)
	d.register("plan.validate", cmdPlanValidate)
	d.register("plan.save", cmdPlanSave)
}

func parsePlanKind(s string) (plan.Kind, bool) {
	switch strings.ToLower(s) {
	case "root":
		return plan.KindRoot, true
	case "subplan":
		return plan.KindSubPlan, true
	case "goals":
		return plan.KindGoals, true
	case "ideas":
		return plan.KindIdeas, true
	case "strategy":
		return plan.KindStrategy, true
	case "jobs":
		return plan.KindJobs, true
	case "deps":
		return plan.KindDeps, true
	case "implemented":
		return plan.KindImplemented, true
	case "research":
		return plan.KindResearch, true
	case "notes":
		return plan.KindNotes, true
	default:
		return 0, false
	}
}

func cmdPlanCreate(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("plan.create", "usage: plan.create <path> <type> [content]")
	}
	kind, ok := parsePlanKind(inv.Args[1])
	if !ok {
		return Result{}, vferrors.ParseError("plan.create", "unknown plan type "+inv.Args[1])
	}
	content := ""
	if len(inv.Args) > 2 {
		content = strings.Join(inv.Args[2:], " ")
	}
	abs := d.Sess.ResolvePath(inv.Args[0])
	dir := vfs.Dirname(abs)
	name := vfs.Basename(abs)
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return Result{}, err
	}
	if err := d.Sess.Store.Mkdir(dir, ovl); err != nil {
		return Result{}, err
	}
	if _, err := plan.Create(d.Sess.Store, dir, name, kind, content, ovl); err != nil {
		return Result{}, err
	}
	d.noteMutation(ovl)
	return Result{Success: true}, nil
}

func cmdPlanGoto(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("plan.goto", "usage: plan.goto <path>")
	}
	abs := d.Sess.ResolvePath(inv.Args[0])
	if _, _, err := d.Sess.Resolve("plan.goto", inv.Args[0]); err != nil {
		return Result{}, err
	}
	d.Sess.Plan.NavigateTo(abs)
	return Result{Success: true}, nil
}

func cmdPlanForward(d *Dispatcher, _ Invocation, _ string) (Result, error) {
	d.Sess.Plan.Forward()
	return Result{Success: true, Output: "mode: forward\n"}, nil
}

func cmdPlanBackward(d *Dispatcher, _ Invocation, _ string) (Result, error) {
	d.Sess.Plan.Backward()
	return Result{Success: true, Output: "mode: backward\n"}, nil
}

func cmdPlanContextAdd(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("plan.context.add", "usage: plan.context.add <path>")
	}
	abs := d.Sess.ResolvePath(inv.Args[0])
	if _, _, err := d.Sess.Resolve("plan.context.add", inv.Args[0]); err != nil {
		return Result{}, err
	}
	d.Sess.Plan.AddToContext(abs)
	return Result{Success: true}, nil
}

func cmdPlanContextRemove(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("plan.context.remove", "usage: plan.context.remove <path>")
	}
	d.Sess.Plan.RemoveFromContext(d.Sess.ResolvePath(inv.Args[0]))
	return Result{Success: true}, nil
}

func cmdPlanContextClear(d *Dispatcher, _ Invocation, _ string) (Result, error) {
	d.Sess.Plan.ClearContext()
	return Result{Success: true}, nil
}

func cmdPlanContextList(d *Dispatcher, _ Invocation, _ string) (Result, error) {
	paths := d.Sess.Plan.List()
	if len(paths) == 0 {
		return Result{Success: true}, nil
	}
	return Result{Success: true, Output: strings.Join(paths, "\n") + "\n"}, nil
}

// planNodeAt resolves arg and requires it to be a plan node.
func (d *Dispatcher) planNodeAt(op, arg string) (*vfs.Node, error) {
	n, _, err := d.Sess.Resolve(op, arg)
	if err != nil {
		return nil, err
	}
	if n.Kind != vfs.KindPlan {
		return nil, vferrors.NotFound(op, d.Sess.ResolvePath(arg)).WithDetail("not a plan node")
	}
	return n, nil
}

func cmdPlanJobsAdd(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 4 {
		return Result{}, vferrors.ParseError("plan.jobs.add", "usage: plan.jobs.add <path> <priority> <assignee> <description...>")
	}
	n, err := d.planNodeAt("plan.jobs.add", inv.Args[0])
	if err != nil {
		return Result{}, err
	}
	priority, err := strconv.Atoi(inv.Args[1])
	if err != nil {
		return Result{}, vferrors.ParseError("plan.jobs.add", "bad priority "+inv.Args[1])
	}
	description := strings.Join(inv.Args[3:], " ")
	if err := plan.AddJob(n, description, priority, inv.Args[2]); err != nil {
		return Result{}, err
	}
	if ovl, oerr := d.Sess.MutationOverlay(""); oerr == nil {
		d.noteMutation(ovl)
	}
	return Result{Success: true}, nil
}

func cmdPlanJobsComplete(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("plan.jobs.complete", "usage: plan.jobs.complete <path> <index>")
	}
	n, err := d.planNodeAt("plan.jobs.complete", inv.Args[0])
	if err != nil {
		return Result{}, err
	}
	index, err := strconv.Atoi(inv.Args[1])
	if err != nil {
		return Result{}, vferrors.ParseError("plan.jobs.complete", "bad index "+inv.Args[1])
	}
	if err := plan.CompleteJob(n, index); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

// planHit pairs a plan node with the path it was found at.
type planHit struct {
	path string
	node *vfs.Node
}

// collectPlanNodes walks the subtree under n, appending every plan node
// found.
func collectPlanNodes(abs string, n *vfs.Node, out *[]planHit) {
	if n.Kind == vfs.KindPlan {
		*out = append(*out, planHit{path: abs, node: n})
	}
	if !n.IsDir() {
		return
	}
	names := make([]string, 0, len(n.Children()))
	for name := range n.Children() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		childPath := abs + "/" + name
		if abs == "/" {
			childPath = "/" + name
		}
		collectPlanNodes(childPath, n.Children()[name], out)
	}
}

// cmdPlanVerify checks that every plan node under the given path (or
// /plan) renders and re-parses its structured text form cleanly.
func cmdPlanVerify(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	target := "/plan"
	if len(inv.Args) > 0 {
		target = inv.Args[0]
	}
	abs := d.Sess.ResolvePath(target)
	n, _, err := d.Sess.Resolve("plan.verify", target)
	if err != nil {
		return Result{}, err
	}
	var nodes []planHit
	collectPlanNodes(abs, n, &nodes)
	for _, hit := range nodes {
		reader, ok := hit.node.Payload.(vfs.NodeReader)
		if !ok {
			return Result{Success: false, Output: fmt.Sprintf("%s: plan node has no readable form\n", hit.path)}, nil
		}
		text, rerr := reader.ReadNode()
		if rerr != nil {
			return Result{Success: false, Output: fmt.Sprintf("%s: %v\n", hit.path, rerr)}, nil
		}
		if writer, ok := hit.node.Payload.(vfs.NodeWriter); ok {
			if werr := writer.WriteNode([]byte(text)); werr != nil {
				return Result{Success: false, Output: fmt.Sprintf("%s: text form does not round-trip: %v\n", hit.path, werr)}, nil
			}
		}
	}
	return Result{Success: true, Output: fmt.Sprintf("plan ok (%d nodes)\n", len(nodes))}, nil
}

func cmdPlanTagsInfer(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("plan.tags.infer", "usage: plan.tags.infer <path>")
	}
	n, _, err := d.Sess.Resolve("plan.tags.infer", inv.Args[0])
	if err != nil {
		return Result{}, err
	}
	initial := d.Sess.Tags.Tags(n.ID())
	inferred := d.Sess.Logic.InferTags(initial, 0.5)
	added := inferred.Difference(initial)
	for _, id := range added.Items() {
		d.Sess.Tags.AddTag(n.ID(), id)
	}
	if added.Empty() {
		return Result{Success: true, Output: "nothing new inferred\n"}, nil
	}
	return Result{Success: true, Output: "added: " + strings.Join(d.tagNames(added), ", ") + "\n"}, nil
}

func cmdPlanTagsCheck(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("plan.tags.check", "usage: plan.tags.check <path>")
	}
	n, _, err := d.Sess.Resolve("plan.tags.check", inv.Args[0])
	if err != nil {
		return Result{}, err
	}
	conflict := d.Sess.Logic.CheckConsistency(d.Sess.Tags.Tags(n.ID()))
	if conflict == nil {
		return Result{Success: true, Output: "consistent\n"}, nil
	}
	return Result{Success: false, Output: renderConflict(conflict)}, nil
}

// cmdPlanValidate runs the consistency check over every plan node under
// the given path (default /plan) and reports each conflict found.
func cmdPlanValidate(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	target := "/plan"
	if len(inv.Args) > 0 {
		target = inv.Args[0]
	}
	abs := d.Sess.ResolvePath(target)
	n, _, err := d.Sess.Resolve("plan.validate", target)
	if err != nil {
		return Result{}, err
	}
	var nodes []planHit
	collectPlanNodes(abs, n, &nodes)
	var b strings.Builder
	conflicts := 0
	for _, hit := range nodes {
		if conflict := d.Sess.Logic.CheckConsistency(d.Sess.Tags.Tags(hit.node.ID())); conflict != nil {
			conflicts++
			fmt.Fprintf(&b, "%s: %s\n", hit.path, conflict.Description)
		}
	}
	if conflicts == 0 {
		return Result{Success: true, Output: fmt.Sprintf("valid (%d nodes)\n", len(nodes))}, nil
	}
	return Result{Success: false, Output: b.String()}, nil
}

// cmdPlanSave persists the current mutation overlay, which carries the
// plan tree, through the standard solution path.
func cmdPlanSave(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return Result{}, err
	}
	path := d.Sess.Store.Overlay(ovl).Source
	if len(inv.Args) > 0 {
		path = inv.Args[0]
	}
	if path == "" {
		return Result{}, vferrors.ParseError("plan.save", "overlay has no source path; give a file argument")
	}
	if err := persistence.SaveSolution(d.Sess.Store, ovl, path); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Output: "saved " + path + "\n"}, nil
}
