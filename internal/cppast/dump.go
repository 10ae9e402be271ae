package cppast

import "github.com/standardbeagle/vfsboot/internal/vfs"

// DumpToVfs writes tu's rendered source to filePath, creating the file
// if absent, per spec.md §4.5's "cpp.dump tu file". Dumping itself does
// not mutate tu; only the destination file is written.
func DumpToVfs(store *vfs.Store, tu *TranslationUnit, filePath string, ovl int) error {
	return store.Write(filePath, []byte(tu.Dump(0)), ovl)
}
