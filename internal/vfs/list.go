package vfs

import (
	"fmt"
	"sort"
	"strings"
)

// Entry is one row of a union directory listing: a name visible under
// some scope, together with every (overlay, node) hit backing it. A
// name with more than one hit of differing Kind is a listing conflict,
// flagged in dump output with "!" per spec.md §4.3.
type Entry struct {
	Name string
	Hits []Hit
}

// Conflict reports whether this entry's hits disagree on Kind.
func (e Entry) Conflict() bool {
	for _, h := range e.Hits[1:] {
		if h.Node.Kind != e.Hits[0].Node.Kind {
			return true
		}
	}
	return false
}

// ListDir produces the union listing of dir across scope, sorted by
// name. Each name appears once with every overlay hit attached, so
// callers can apply a Policy themselves or simply report a conflict.
func (s *Store) ListDir(dir string, scope []int) ([]Entry, error) {
	parts, err := SplitPath("ls", dir)
	if err != nil {
		return nil, err
	}
	allowed := make(map[int]bool, len(scope))
	for _, id := range scope {
		allowed[id] = true
	}

	byName := make(map[string][]Hit)
	var order []string
	for _, o := range s.overlays {
		if !allowed[o.ID] {
			continue
		}
		dirNode := walk(o.Root, parts)
		if dirNode == nil || !dirNode.dirLike {
			continue
		}
		names := make([]string, 0, len(dirNode.children))
		for name := range dirNode.children {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, seen := byName[name]; !seen {
				order = append(order, name)
			}
			byName[name] = append(byName[name], Hit{OverlayID: o.ID, Node: dirNode.children[name]})
		}
	}

	sort.Strings(order)
	entries := make([]Entry, len(order))
	for i, name := range order {
		entries[i] = Entry{Name: name, Hits: byName[name]}
	}
	return entries, nil
}

// DumpOptions toggles tree-printing detail, per spec.md §4.1's "tree"
// and "treeAdvanced" commands.
type DumpOptions struct {
	ShowKind    bool
	ShowOverlay bool
	ShowHash    bool
	ShowSize    bool
	ShowTags    func(id Entry) []string // optional tag annotator, wired by the session layer
	MaxDepth    int                     // 0 means unlimited
	Filter      string                  // substring filter on names; directories always shown
}

// Tree renders dir as an indented tree across scope. It is pure string
// building over ListDir/Children; no output formatting here depends on
// anything outside this package.
func (s *Store) Tree(dir string, scope []int, opts DumpOptions) (string, error) {
	var b strings.Builder
	if err := s.treeInto(&b, dir, scope, opts, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Store) treeInto(b *strings.Builder, dir string, scope []int, opts DumpOptions, depth int) error {
	entries, err := s.ListDir(dir, scope)
	if err != nil {
		return err
	}
	if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
		return nil
	}
	for _, e := range entries {
		if opts.Filter != "" && !e.Hits[0].Node.IsDir() && !strings.Contains(e.Name, opts.Filter) {
			continue
		}
		indent := strings.Repeat("  ", depth)
		marker := ""
		if e.Conflict() {
			marker = " !"
		}
		line := fmt.Sprintf("%s%s", indent, e.Name)
		if opts.ShowKind {
			line += fmt.Sprintf(" [%s]", e.Hits[0].Node.Kind)
		}
		if opts.ShowSize && !e.Hits[0].Node.IsDir() {
			if content, err := e.Hits[0].Node.read(); err == nil {
				line += fmt.Sprintf(" %dB", len(content))
			}
		}
		if opts.ShowOverlay {
			names := make([]string, len(e.Hits))
			for i, h := range e.Hits {
				names[i] = s.Overlay(h.OverlayID).Name
			}
			line += fmt.Sprintf(" (%s)", strings.Join(names, ","))
		}
		if opts.ShowHash {
			line += fmt.Sprintf(" %08x", uint32(e.Hits[0].Node.ContentHash()))
		}
		if opts.ShowTags != nil {
			if tags := opts.ShowTags(e); len(tags) > 0 {
				line += fmt.Sprintf(" #%s", strings.Join(tags, " #"))
			}
		}
		line += marker
		b.WriteString(line)
		b.WriteByte('\n')

		if e.Hits[0].Node.IsDir() {
			childPath := dir
			if childPath == "/" {
				childPath += e.Name
			} else {
				childPath += "/" + e.Name
			}
			hitOverlays := make([]int, len(e.Hits))
			for i, h := range e.Hits {
				hitOverlays[i] = h.OverlayID
			}
			if err := s.treeInto(b, childPath, hitOverlays, opts, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
