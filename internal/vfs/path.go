package vfs

import (
	"strings"

	upath "path"

	"github.com/standardbeagle/vfsboot/internal/vferrors"
)

// SplitPath validates and splits an absolute VFS path into path
// components, per spec.md §4.1 ("All public operations take absolute
// paths and reject relative ones with InvalidPath"). "." and ".." must
// already be resolved by the caller (the dispatcher, against its
// working directory) before reaching the core; SplitPath additionally
// runs path.Clean defensively so a caller-supplied "/a/./b" still works.
func SplitPath(op, p string) ([]string, error) {
	if !strings.HasPrefix(p, "/") {
		return nil, vferrors.InvalidPath(op, p)
	}
	clean := upath.Clean(p)
	if clean == "/" {
		return nil, nil
	}
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	for _, part := range parts {
		if part == ".." {
			return nil, vferrors.InvalidPath(op, p)
		}
	}
	return parts, nil
}

// JoinPath renders path components back into an absolute VFS path.
func JoinPath(parts []string) string {
	if len(parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(parts, "/")
}

// Basename returns the last component of an absolute path, or "/" for
// the root.
func Basename(p string) string {
	clean := upath.Clean(p)
	if clean == "/" {
		return "/"
	}
	return upath.Base(clean)
}

// Dirname returns the parent path of an absolute path.
func Dirname(p string) string {
	clean := upath.Clean(p)
	if clean == "/" {
		return "/"
	}
	return upath.Dir(clean)
}
