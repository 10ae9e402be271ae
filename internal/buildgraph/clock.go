package buildgraph

import "github.com/cespare/xxhash/v2"

// logicalClock substitutes for the wall-clock mtime build_graph.cpp's
// getModTime reads from stat(2): VFS nodes have no mtime of their own.
// Instead of pinning every VFS output to a constant 0 (which would make
// two VFS outputs never compare "newer than" each other), each observed
// path gets a monotonically increasing tick the first time its content
// hash changes, so "rebuild if a dependency is newer" still holds
// within one process's lifetime.
type logicalClock struct {
	seen map[string]clockEntry
	tick uint64
}

type clockEntry struct {
	hash uint64
	tick uint64
}

func newLogicalClock() *logicalClock {
	return &logicalClock{seen: make(map[string]clockEntry)}
}

// observe returns path's logical tick, advancing it only when content
// differs from the last call for this path.
func (c *logicalClock) observe(path, content string) uint64 {
	h := xxhash.Sum64String(content)
	entry, ok := c.seen[path]
	if ok && entry.hash == h {
		return entry.tick
	}
	c.tick++
	c.seen[path] = clockEntry{hash: h, tick: c.tick}
	return c.tick
}
