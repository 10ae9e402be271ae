// Package mount implements the three external-source adapters from
// spec.md §4.2 — host directory, shared library, and remote peer — each
// a vfs.Node Payload implementing vfs.LazyDir plus, where writable,
// vfs.NodeReader/NodeWriter. Grounded on
// _examples/original_source/src/VfsShell/vfs_mount.h's MountNode/
// LibraryNode/LibrarySymbolNode/RemoteNode.
package mount

import (
	"os"
	"path/filepath"
	"time"

	"github.com/standardbeagle/vfsboot/internal/outline"
	"github.com/standardbeagle/vfsboot/internal/vferrors"
	"github.com/standardbeagle/vfsboot/internal/vfs"
	"github.com/fsnotify/fsnotify"
)

// HostMount lazily mirrors a host directory into a VFS subtree. Listing
// rebuilds on first access and whenever fsnotify reports a change under
// hostPath; file nodes stream their content from disk on read and
// propagate writes back to disk (spec.md §4.2).
type HostMount struct {
	HostPath string
	store    *vfs.Store
	watcher  *fsnotify.Watcher
	dirty    bool
}

// NewHostMount creates a Mount node rooted at hostPath. The caller
// attaches the returned node into the store via Store.AddNode.
func NewHostMount(store *vfs.Store, name, hostPath string) (*vfs.Node, *HostMount, error) {
	info, err := os.Stat(hostPath)
	if err != nil {
		return nil, nil, vferrors.ExternalFailure("mount", "cannot stat host path", err)
	}
	if !info.IsDir() {
		return nil, nil, vferrors.ExternalFailure("mount", "host path is not a directory", nil)
	}

	hm := &HostMount{HostPath: hostPath, store: store, dirty: true}
	n := store.NewNode(name, vfs.KindMount, true)

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if werr := watcher.Add(hostPath); werr == nil {
			hm.watcher = watcher
			go hm.watchLoop()
		} else {
			watcher.Close()
		}
	}
	return n, hm, nil
}

func (h *HostMount) watchLoop() {
	for {
		select {
		case _, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			h.dirty = true
		case _, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.dirty = true
		}
	}
}

// Close stops the fsnotify watcher, if any.
func (h *HostMount) Close() error {
	if h.watcher != nil {
		return h.watcher.Close()
	}
	return nil
}

// NeedsRefresh implements vfs.LazyDir.
func (h *HostMount) NeedsRefresh() bool { return h.dirty }

// Refresh rebuilds n's children from the host directory listing,
// creating a File leaf for each regular file and a nested HostMount for
// each subdirectory, per spec.md §4.2.
func (h *HostMount) Refresh(n *vfs.Node) error {
	entries, err := os.ReadDir(h.HostPath)
	if err != nil {
		return vferrors.ExternalFailure("mount.refresh", "readdir failed", err)
	}
	children := n.Children()
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[e.Name()] = true
		if !e.IsDir() {
			if ext := filepath.Ext(e.Name()); outline.Supports(ext) {
				seen[e.Name()+".outline"] = true
			}
		}
		if _, exists := children[e.Name()]; exists {
			continue
		}
		full := filepath.Join(h.HostPath, e.Name())
		if e.IsDir() {
			childNode := h.store.NewNode(e.Name(), vfs.KindMount, true)
			sub := &HostMount{HostPath: full, store: h.store, dirty: true}
			childNode.Payload = sub
			if err := h.store.AttachChild(n, childNode); err != nil {
				return err
			}
		} else {
			childNode := h.store.NewNode(e.Name(), vfs.KindFile, false)
			hf := &hostFile{path: full}
			childNode.Payload = hf
			if err := h.store.AttachChild(n, childNode); err != nil {
				return err
			}
			if ext := filepath.Ext(e.Name()); outline.Supports(ext) {
				outlineName := e.Name() + ".outline"
				if _, exists := children[outlineName]; !exists {
					outlineNode := h.store.NewNode(outlineName, vfs.KindFile, false)
					outlineNode.Payload = &outlineFile{source: hf, ext: ext}
					if err := h.store.AttachChild(n, outlineNode); err != nil {
						return err
					}
				}
			}
		}
	}
	for name := range children {
		if !seen[name] {
			h.store.DetachChild(n, name)
		}
	}
	h.dirty = false
	return nil
}

// hostFile is the Payload for a leaf under a HostMount: it streams
// content from the backing host file on every read/write instead of
// caching it in the node, per spec.md §4.2 ("writes propagate to the
// host file").
type hostFile struct {
	path string
}

func (f *hostFile) ReadNode() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", vferrors.ExternalFailure("read", "host file read failed", err)
	}
	return string(data), nil
}

func (f *hostFile) WriteNode(data []byte) error {
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return vferrors.ExternalFailure("write", "host file write failed", err)
	}
	return nil
}

// ModTime reports the backing file's modification time, used by the
// outline enrichment pass to decide whether a cached outline is stale.
func (f *hostFile) ModTime() time.Time {
	info, err := os.Stat(f.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// outlineFile is the Payload for a host-mounted source file's sibling
// "<name>.outline" node (SPEC_FULL.md §C). It never changes what
// mount/unmount/mount.list report — it only appears as an extra leaf
// next to a file whose extension has a registered grammar. The
// extracted symbol list is cached and recomputed only when the backing
// file's mtime advances past the last computation.
type outlineFile struct {
	source    *hostFile
	ext       string
	computed  time.Time
	cached    string
	hasCached bool
}

func (o *outlineFile) ReadNode() (string, error) {
	mtime := o.source.ModTime()
	if o.hasCached && !mtime.After(o.computed) {
		return o.cached, nil
	}
	data, err := os.ReadFile(o.source.path)
	if err != nil {
		return "", vferrors.ExternalFailure("read", "host file read failed", err)
	}
	symbols, err := outline.Extract(o.ext, data)
	if err != nil {
		return "", err
	}
	o.cached = outline.Render(symbols)
	o.computed = mtime
	o.hasCached = true
	return o.cached, nil
}
