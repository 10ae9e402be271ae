// Package workspace translates a U++-style workspace (a primary package
// plus a dependency graph of sibling packages) into an
// internal/buildgraph.Graph, per spec.md §4.8. Grounded on
// _examples/original_source/VfsShell/upp_assembly.h's UppWorkspace/
// UppPackage and upp_workspace_build.cpp's build_workspace.
package workspace

// Package is one U++ package: a name, a source directory, a description
// pulled from its .upp file, the other packages/libraries it depends on,
// and the source files it lists (UppPackage in upp_assembly.h).
type Package struct {
	Name         string
	Path         string
	Description  string
	Dependencies []string
	Files        []string
	IsPrimary    bool
}

// Workspace is a named collection of packages anchored at an assembly
// (.var-equivalent) file and a base directory, with one package marked
// primary (UppWorkspace in upp_assembly.h).
type Workspace struct {
	Name           string
	AssemblyPath   string
	BaseDir        string
	PrimaryPackage string

	Packages map[string]*Package
	order    []string // insertion order, for deterministic AllPackages
}

// NewWorkspace returns an empty workspace anchored at assemblyPath.
func NewWorkspace(name, assemblyPath string) *Workspace {
	return &Workspace{Name: name, AssemblyPath: assemblyPath, Packages: make(map[string]*Package)}
}

// AddPackage inserts or replaces pkg. If pkg.IsPrimary, it also becomes
// the workspace's primary package (UppWorkspace::add_package).
func (w *Workspace) AddPackage(pkg *Package) {
	if _, exists := w.Packages[pkg.Name]; !exists {
		w.order = append(w.order, pkg.Name)
	}
	w.Packages[pkg.Name] = pkg
	if pkg.IsPrimary {
		w.PrimaryPackage = pkg.Name
	}
}

// GetPackage looks up a package by name (UppWorkspace::get_package).
func (w *Workspace) GetPackage(name string) (*Package, bool) {
	p, ok := w.Packages[name]
	return p, ok
}

// Primary returns the workspace's primary package, if one is set
// (UppWorkspace::get_primary_package).
func (w *Workspace) Primary() (*Package, bool) {
	if w.PrimaryPackage == "" {
		return nil, false
	}
	return w.GetPackage(w.PrimaryPackage)
}

// AllPackages returns every package in insertion order
// (UppWorkspace::get_all_packages).
func (w *Workspace) AllPackages() []*Package {
	out := make([]*Package, 0, len(w.order))
	for _, name := range w.order {
		out = append(out, w.Packages[name])
	}
	return out
}
