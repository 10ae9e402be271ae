package workspace

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/standardbeagle/vfsboot/internal/buildgraph"
	"github.com/standardbeagle/vfsboot/internal/vferrors"
	"github.com/standardbeagle/vfsboot/internal/vfs"
)

// HostPathResolver maps a VFS path to the host path backing it, if any.
// *mount.Manager satisfies this directly; it is its own interface here
// so this package never imports internal/mount.
type HostPathResolver interface {
	MapToHostPath(vfsPath string) (string, bool)
}

// Options configures one BuildWorkspace call (WorkspaceBuildOptions in
// upp_workspace_build.h).
type Options struct {
	BuildType     string // "debug" (default) or "release"
	BuilderName   string // empty means the registry's active builder
	OutputDir     string
	ExtraIncludes []string
	TargetPackage string // empty means the workspace's primary package
	Verbose       bool
	DryRun        bool
}

// Summary is the result of translating and running one workspace build
// (WorkspaceBuildSummary in upp_workspace_build.h).
type Summary struct {
	Result       buildgraph.Result
	Plan         *buildgraph.Graph
	PackageOrder []string
	BuilderUsed  string
}

// preferHostPath mirrors prefer_host_path: if resolver maps path to a
// host path, use that; otherwise path is returned unchanged (it is
// already a host-side path, e.g. workspace.BaseDir set directly from a
// manifest rather than through a mount).
func preferHostPath(resolver HostPathResolver, p string) string {
	if p == "" || resolver == nil {
		return p
	}
	if mapped, ok := resolver.MapToHostPath(p); ok {
		return mapped
	}
	return p
}

// collectPackages performs a dependency-first topological walk starting
// at pkgName, appending to order and erroring on a cycle
// (collect_packages in upp_workspace_build.cpp).
func collectPackages(ws *Workspace, pkgName string, visiting, visited map[string]bool, order *[]string) error {
	if visited[pkgName] {
		return nil
	}
	if visiting[pkgName] {
		return vferrors.CircularDependency(pkgName, []string{pkgName})
	}

	visiting[pkgName] = true
	if pkg, ok := ws.GetPackage(pkgName); ok {
		for _, dep := range pkg.Dependencies {
			if _, ok := ws.GetPackage(dep); ok {
				if err := collectPackages(ws, dep, visiting, visited, order); err != nil {
					return err
				}
			}
		}
	}
	delete(visiting, pkgName)

	visited[pkgName] = true
	*order = append(*order, pkgName)
	return nil
}

// packageTarget is the buildgraph rule name a package compiles to
// (package_target in upp_workspace_build.cpp).
func packageTarget(name string) string {
	return "pkg:" + name
}

// assemblySearchDirs gathers every directory umk should search for
// package sources: the workspace base dir, the assembly file's parent,
// the package's own parent directory, any extra includes the caller
// passed, the builder's INCLUDES list, and the $UPP environment
// variable, deduplicated and sorted (build_asmlist in
// upp_workspace_build.cpp).
func assemblySearchDirs(ws *Workspace, pkg *Package, opts Options, resolver HostPathResolver, builder *Builder, getenv func(string) string) []string {
	dirs := make(map[string]bool)
	capture := func(raw string) {
		if raw == "" {
			return
		}
		normalized := preferHostPath(resolver, raw)
		dirs[filepath.Clean(normalized)] = true
	}

	if ws.BaseDir != "" {
		capture(ws.BaseDir)
	}
	if ws.AssemblyPath != "" {
		if parent := filepath.Dir(ws.AssemblyPath); parent != "." && parent != "" {
			capture(parent)
		}
	}
	if pkg.Path != "" {
		pkgPath := pkg.Path
		if !filepath.IsAbs(pkgPath) && ws.BaseDir != "" {
			pkgPath = filepath.Join(ws.BaseDir, pkgPath)
		}
		if parent := filepath.Dir(pkgPath); parent != "." && parent != "" {
			capture(filepath.Clean(parent))
		}
	}
	for _, inc := range opts.ExtraIncludes {
		capture(inc)
	}
	if builder != nil {
		for _, inc := range builder.SplitList("INCLUDES", ';') {
			capture(inc)
		}
	}
	if getenv != nil {
		if uppEnv := getenv("UPP"); uppEnv != "" {
			for _, inc := range strings.Split(uppEnv, ":") {
				capture(inc)
			}
		}
	}

	result := make([]string, 0, len(dirs))
	for d := range dirs {
		result = append(result, d)
	}
	sort.Strings(result)
	return result
}

// umkFlags renders the umk-style build mode flag (umk_flags in
// upp_workspace_build.cpp).
func umkFlags(opts Options) string {
	flags := "-d"
	if opts.BuildType == "release" {
		flags = "-r"
	}
	if opts.Verbose {
		flags += "v"
	}
	return flags
}

// defaultOutputPath computes where a package's build artifact lands
// when the caller hasn't named an explicit rule output
// (default_output_path in upp_workspace_build.cpp).
func defaultOutputPath(ws *Workspace, pkg *Package, opts Options, resolver HostPathResolver) string {
	if opts.OutputDir != "" {
		base := opts.OutputDir
		if !filepath.IsAbs(base) && ws.BaseDir != "" {
			base = filepath.Join(ws.BaseDir, base)
		}
		return preferHostPath(resolver, filepath.Clean(filepath.Join(base, pkg.Name)))
	}
	if ws.BaseDir != "" {
		return preferHostPath(resolver, filepath.Clean(filepath.Join(ws.BaseDir, "out", pkg.Name)))
	}
	return ""
}

// renderCommandTemplate does naive "{key}" substring substitution over
// tpl (render_command_template in upp_workspace_build.cpp).
func renderCommandTemplate(tpl string, vars map[string]string) string {
	result := tpl
	for key, value := range vars {
		marker := "{" + key + "}"
		result = strings.ReplaceAll(result, marker, value)
	}
	return result
}

// shellQuote single-quotes value for safe inclusion in a `sh -c`
// command line, escaping embedded single quotes the POSIX way
// (shell_quote in upp_workspace_build.cpp).
func shellQuote(value string) string {
	if value == "" {
		return "''"
	}
	var b strings.Builder
	b.WriteByte('\'')
	for _, ch := range value {
		if ch == '\'' {
			b.WriteString(`'"'"'`)
		} else {
			b.WriteRune(ch)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// commandForPackage assembles the full shell command that builds pkg:
// a `cd <working_dir> &&` prefix, an optional `mkdir -p` for the output
// directory, and the builder's COMMAND template with every {placeholder}
// substituted (make_command_for_package in upp_workspace_build.cpp).
func commandForPackage(ws *Workspace, pkg *Package, opts Options, resolver HostPathResolver, builder *Builder, getenv func(string) string) string {
	assemblyDirs := assemblySearchDirs(ws, pkg, opts, resolver, builder, getenv)
	assemblyArg := "."
	if len(assemblyDirs) > 0 {
		assemblyArg = strings.Join(assemblyDirs, ",")
	}
	flags := umkFlags(opts)
	outputPath := defaultOutputPath(ws, pkg, opts, resolver)

	var pkgPathFS string
	if pkg.Path != "" {
		pkgPathFS = pkg.Path
		if !filepath.IsAbs(pkgPathFS) && ws.BaseDir != "" {
			pkgPathFS = filepath.Join(ws.BaseDir, pkgPathFS)
		}
	}

	packagePath := ""
	if pkg.Path != "" {
		toRender := pkg.Path
		if pkgPathFS != "" {
			toRender = pkgPathFS
		}
		packagePath = preferHostPath(resolver, filepath.Clean(toRender))
	}

	baseDir := ""
	if ws.BaseDir != "" {
		baseDir = preferHostPath(resolver, ws.BaseDir)
	}

	vars := map[string]string{
		"assembly":     shellQuote(assemblyArg),
		"package":      shellQuote(pkg.Name),
		"package_path": shellQuote(packagePath),
		"build_type":   shellQuote(opts.BuildType),
		"flags":        shellQuote(flags),
		"output":       "",
		"workspace":    shellQuote(ws.Name),
	}
	if outputPath != "" {
		vars["output"] = shellQuote(outputPath)
	}

	if builder != nil {
		builderSource := builder.SourcePath
		if builderSource != "" {
			builderSource = preferHostPath(resolver, builderSource)
		}
		vars["builder"] = shellQuote(builder.ID)
		if builderSource != "" {
			vars["builder_path"] = shellQuote(builderSource)
		} else {
			vars["builder_path"] = shellQuote(builder.ID)
		}
	} else {
		vars["builder"] = "''"
		vars["builder_path"] = "''"
	}

	var workingDir string
	switch {
	case baseDir != "":
		workingDir = baseDir
	case pkg.Path != "":
		parent := filepath.Dir(pkgPathFS)
		if parent == "" || parent == "." {
			workingDir = "."
		} else {
			workingDir = preferHostPath(resolver, filepath.Clean(parent))
		}
	default:
		workingDir = "."
	}

	commandBody := ""
	hasRealCommand := true
	if builder != nil {
		if tpl, ok := builder.Get("COMMAND"); ok {
			commandBody = renderCommandTemplate(tpl, vars)
		}
	}
	if commandBody == "" {
		hasRealCommand = false
		builderLabel := "<default>"
		if builder != nil {
			builderLabel = builder.ID
		}
		message := "upp.wksp.build: builder '" + builderLabel +
			"' has no COMMAND defined; configure the build method to describe how to build package '" +
			pkg.Name + "'.\n"
		commandBody = "printf '%s' " + shellQuote(message) + " >&2; exit 1"
	}

	if hasRealCommand && outputPath != "" {
		if parent := filepath.Dir(outputPath); parent != "" && parent != "." {
			commandBody = "mkdir -p " + shellQuote(parent) + " && " + commandBody
		}
	}

	return "cd " + shellQuote(workingDir) + " && " + commandBody
}

// BuildWorkspace translates ws into a buildgraph.Graph rooted at the
// target package (explicit opts.TargetPackage, or the workspace's
// primary package), using builder (explicit opts.BuilderName resolved
// through registry, or the registry's active builder), then runs it
// against store (build_workspace in upp_workspace_build.cpp).
//
// A nil getenv skips the $UPP lookup; the dispatcher passes os.Getenv,
// and tests pass a fake to keep $UPP-driven include search deterministic.
func BuildWorkspace(ctx context.Context, ws *Workspace, registry *Registry, store *vfs.Store, resolver HostPathResolver, opts Options, getenv func(string) string) (Summary, error) {
	if opts.BuildType == "" {
		opts.BuildType = "debug"
	}

	var targetPkg *Package
	if opts.TargetPackage != "" {
		pkg, ok := ws.GetPackage(opts.TargetPackage)
		if !ok {
			return Summary{}, vferrors.NotFound("upp.wksp.build", opts.TargetPackage)
		}
		targetPkg = pkg
	} else {
		pkg, ok := ws.Primary()
		if !ok {
			return Summary{}, vferrors.Internal("upp.wksp.build", "workspace has no primary package; use upp.wksp.pkg.set to choose one")
		}
		targetPkg = pkg
	}

	var builder *Builder
	if opts.BuilderName != "" {
		b, ok := registry.Get(opts.BuilderName)
		if !ok {
			return Summary{}, vferrors.NotFound("upp.wksp.build", opts.BuilderName)
		}
		builder = b
	} else if registry != nil {
		if b, ok := registry.Active(); ok {
			builder = b
		}
	}

	summary := Summary{}
	if builder != nil {
		summary.BuilderUsed = builder.ID
	} else {
		summary.BuilderUsed = "<default>"
	}

	visiting := make(map[string]bool)
	visited := make(map[string]bool)
	if err := collectPackages(ws, targetPkg.Name, visiting, visited, &summary.PackageOrder); err != nil {
		return Summary{}, err
	}

	plan := buildgraph.NewGraph()
	for _, pkgName := range summary.PackageOrder {
		pkg, ok := ws.GetPackage(pkgName)
		if !ok {
			continue
		}

		rule := buildgraph.Rule{Name: packageTarget(pkgName), AlwaysRun: true}
		for _, dep := range pkg.Dependencies {
			if _, ok := ws.GetPackage(dep); ok {
				rule.Dependencies = append(rule.Dependencies, packageTarget(dep))
			}
		}
		rule.Commands = []buildgraph.Command{{
			Kind: buildgraph.CommandShell,
			Text: commandForPackage(ws, pkg, opts, resolver, builder, getenv),
		}}
		if out := defaultOutputPath(ws, pkg, opts, resolver); out != "" {
			rule.Outputs = []string{out}
		}
		plan.AddRule(rule)
	}
	summary.Plan = plan

	buildOpts := buildgraph.Options{
		Verbose: opts.Verbose,
		Executor: func(ctx context.Context, rule buildgraph.Rule, result *buildgraph.Result, verbose bool) bool {
			if opts.DryRun {
				for _, cmd := range rule.Commands {
					result.Output += "[dry-run] " + cmd.Text + "\n"
				}
				return true
			}
			return buildgraph.ShellExecutor(ctx, rule, result, verbose)
		},
	}

	targetName := packageTarget(targetPkg.Name)
	summary.Result = plan.Build(ctx, targetName, store, buildOpts)
	return summary, nil
}
