// Package plan implements the hierarchical planning tree from spec.md
// §3.5 and §4.6: plan variants with structured text read/write forms,
// plus the PlannerContext navigator. Grounded on
// _examples/original_source/src/VfsShell/planner.h's PlanNode family
// and PlannerContext.
package plan

import (
	"github.com/standardbeagle/vfsboot/internal/vferrors"
	"github.com/standardbeagle/vfsboot/internal/vfs"
)

// Kind names one of the ten plan node variants from spec.md §3.5.
type Kind int

const (
	KindRoot Kind = iota
	KindSubPlan
	KindGoals
	KindIdeas
	KindStrategy
	KindJobs
	KindDeps
	KindImplemented
	KindResearch
	KindNotes
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindSubPlan:
		return "subplan"
	case KindGoals:
		return "goals"
	case KindIdeas:
		return "ideas"
	case KindStrategy:
		return "strategy"
	case KindJobs:
		return "jobs"
	case KindDeps:
		return "deps"
	case KindImplemented:
		return "implemented"
	case KindResearch:
		return "research"
	case KindNotes:
		return "notes"
	default:
		return "unknown"
	}
}

// freeform reports whether k stores its body as free-form text
// (Root/SubPlan/Strategy/Notes) rather than a parsed line-list (spec.md
// §3.5).
func (k Kind) freeform() bool {
	switch k {
	case KindRoot, KindSubPlan, KindStrategy, KindNotes:
		return true
	default:
		return false
	}
}

// node is the vfs.Node Payload for every plan variant. It implements
// vfs.NodeReader and vfs.NodeWriter so `read`/`write` on a plan path run
// through each variant's structured text form; Jobs additionally keeps
// a parsed []Job behind the text so AddJob/CompleteJob can mutate it
// without a round-trip through Render/Parse.
type node struct {
	kind    Kind
	content string // free-form variants and the raw text for others
	lines   []string
	jobs    []Job
}

// ReadNode renders the variant's current state as its structured text
// form (spec.md §3.5).
func (n *node) ReadNode() (string, error) {
	switch {
	case n.kind.freeform():
		return n.content, nil
	case n.kind == KindJobs:
		return renderJobs(n.jobs), nil
	default:
		return renderLines(n.lines), nil
	}
}

// WriteNode replaces the variant's state from structured text, the
// inverse of ReadNode.
func (n *node) WriteNode(data []byte) error {
	text := string(data)
	switch {
	case n.kind.freeform():
		n.content = text
	case n.kind == KindJobs:
		jobs, err := parseJobs(text)
		if err != nil {
			return err
		}
		n.jobs = jobs
	default:
		n.lines = parseLines(text)
	}
	return nil
}

// Create attaches a new plan node of kind k, named name, under dirPath,
// with the given initial text content (interpreted per kind, as
// WriteNode would). Every plan variant is a directory (spec.md §3.5:
// "All plan variants are directories and may have children").
func Create(store *vfs.Store, dirPath, name string, k Kind, content string, ovl int) (*vfs.Node, error) {
	n := store.NewNode(name, vfs.KindPlan, true)
	payload := &node{kind: k}
	if err := payload.WriteNode([]byte(content)); err != nil {
		return nil, err
	}
	n.Payload = payload
	if err := store.AddNode(dirPath, n, ovl); err != nil {
		return nil, err
	}
	return n, nil
}

// KindOf returns the plan variant of n, or false if n was not created
// by this package.
func KindOf(n *vfs.Node) (Kind, bool) {
	p, ok := n.Payload.(*node)
	if !ok {
		return 0, false
	}
	return p.kind, true
}

func renderLines(lines []string) string {
	s := ""
	for _, l := range lines {
		if l == "" {
			continue
		}
		s += l + "\n"
	}
	return s
}

func parseLines(text string) []string {
	var out []string
	line := ""
	flush := func() {
		if line != "" {
			out = append(out, line)
		}
		line = ""
	}
	for _, r := range text {
		if r == '\n' {
			flush()
			continue
		}
		line += string(r)
	}
	flush()
	return out
}

// AppendLine adds one non-empty line to a Goals/Ideas/Deps/Implemented/
// Research node's item list. Returns an error if n is not one of those
// kinds.
func AppendLine(n *vfs.Node, line string) error {
	p, ok := n.Payload.(*node)
	if !ok || p.kind.freeform() || p.kind == KindJobs {
		return vferrors.Internal("plan.append", n.Name+" is not a line-list variant")
	}
	if line != "" {
		p.lines = append(p.lines, line)
	}
	return nil
}
