package mount

import (
	"debug/elf"
	"fmt"

	"github.com/standardbeagle/vfsboot/internal/vferrors"
	"github.com/standardbeagle/vfsboot/internal/vfs"
)

// LibraryMount represents an opened shared object (spec.md §4.2). Go has
// no general facility to call an arbitrary exported C symbol by name —
// unlike the reference's dlopen/dlsym, the standard library's `plugin`
// package can only look up symbols a Go plugin build already declared,
// not enumerate unknown ones. So this adapter is deliberately read-only:
// it parses the ELF dynamic symbol table with debug/elf (best effort,
// exactly as spec.md §4.2 allows: "if unavailable, leaves an empty
// children map") and exposes each exported function symbol as a
// LibrarySymbol leaf whose read() yields a signature-shaped string.
type LibraryMount struct {
	LibPath string
	file    *elf.File
}

// NewLibraryMount opens libPath and populates a Library node's symbol
// children. Closing is the caller's responsibility via Close, which the
// mount Manager invokes on unmount and on CloseAll.
func NewLibraryMount(store *vfs.Store, name, libPath string) (*vfs.Node, *LibraryMount, error) {
	n := store.NewNode(name, vfs.KindLibrary, true)
	lm := &LibraryMount{LibPath: libPath}

	f, err := elf.Open(libPath)
	if err != nil {
		// Best effort: leave an empty children map rather than failing
		// the whole mount, per spec.md §4.2.
		return n, lm, nil
	}
	lm.file = f

	syms, err := f.DynamicSymbols()
	if err != nil {
		return n, lm, nil
	}
	for _, sym := range syms {
		if sym.Name == "" || elf.ST_TYPE(sym.Info) != elf.STT_FUNC {
			continue
		}
		if _, exists := n.Children()[sym.Name]; exists {
			continue
		}
		sig := fmt.Sprintf("%s@%s (size=%d)", sym.Name, lm.LibPath, sym.Size)
		leaf := store.NewNode(sym.Name, vfs.KindLibrarySymbol, false)
		leaf.Payload = &librarySymbol{signature: sig}
		if err := store.AttachChild(n, leaf); err != nil {
			continue
		}
	}
	return n, lm, nil
}

// Close releases the underlying ELF file handle.
func (lm *LibraryMount) Close() error {
	if lm.file != nil {
		return lm.file.Close()
	}
	return nil
}

type librarySymbol struct {
	signature string
}

func (s *librarySymbol) ReadNode() (string, error) { return s.signature, nil }

// Reopen closes the current ELF file handle, if any, and opens LibPath
// again; the node's symbol children are not rebuilt.
func (lm *LibraryMount) Reopen() error {
	if lm.file != nil {
		lm.file.Close()
	}
	f, err := elf.Open(lm.LibPath)
	if err != nil {
		return vferrors.ExternalFailure("mount.lib", "reopen failed", err)
	}
	lm.file = f
	return nil
}
