package dispatcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/standardbeagle/vfsboot/internal/buildgraph"
	"github.com/standardbeagle/vfsboot/internal/vferrors"
	"github.com/standardbeagle/vfsboot/internal/workspace"
)

// registerBuildCommands installs make, sample.run, and upp.wksp.build.
func (d *Dispatcher) registerBuildCommands() {
	d.register("make", cmdMake)
	d.register("sample.run", cmdSampleRun)
	d.register("upp.wksp.build", cmdUppWkspBuild)
}

// cmdMake reads a minimal-make-subset Makefile from the VFS, translates
// it into a build graph, and builds the requested target (default
// "all", falling back to the first rule).
func cmdMake(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	makefilePath := "/Makefile"
	target := "all"
	verbose := false
	dryRun := false
	args := inv.Args
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-f":
			if i+1 >= len(args) {
				return Result{}, vferrors.ParseError("make", "usage: make [target] [-f makefile] [-v]")
			}
			makefilePath = args[i+1]
			i++
		case "-v", "--verbose":
			verbose = true
		case "--dry-run":
			dryRun = true
		default:
			target = args[i]
		}
	}

	content, err := d.readPath(makefilePath)
	if err != nil {
		return Result{}, err
	}
	mf, err := buildgraph.ParseMakefile(content, os.Getenv)
	if err != nil {
		return Result{}, err
	}
	if target == "all" && !mf.HasRule("all") {
		if first := mf.FirstRule(); first != "" {
			target = first
		}
	}

	graph := mf.ToGraph()
	d.Sess.Graph = graph // kept for inspection by later commands
	opts := buildgraph.Options{Verbose: verbose}
	if dryRun {
		opts.Executor = buildgraph.DryRunExecutor
	}
	result := graph.Build(context.Background(), target, d.Sess.Store, opts)

	var b strings.Builder
	b.WriteString(result.Output)
	if !result.Success {
		for _, e := range result.Errors {
			b.WriteString(e + "\n")
		}
		return Result{Success: false, Output: b.String()}, nil
	}
	// A command-less aggregate rule (e.g. "all: a b") rebuilds trivially
	// every run; only rules that executed commands count as work done.
	var built []string
	for _, name := range result.TargetsBuilt {
		if rule, ok := graph.Rules[name]; ok && len(rule.Commands) > 0 {
			built = append(built, name)
		}
	}
	if len(built) == 0 {
		fmt.Fprintf(&b, "%s is up to date\n", target)
	} else {
		fmt.Fprintf(&b, "built: %s\n", strings.Join(built, " "))
	}
	return Result{Success: true, Output: b.String()}, nil
}

// runCaptured runs a shell command, returning combined output and exit
// code.
func runCaptured(command string) (string, int) {
	c := exec.Command("sh", "-c", command)
	out, err := c.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(out), exitErr.ExitCode()
		}
		return string(out) + err.Error(), -1
	}
	return string(out), 0
}

// cmdSampleRun is the end-to-end demo of spec.md §8 scenario 5: build a
// hello-world translation unit with the cpp.* constructors, dump it,
// compile it with the host toolchain, run the binary, and record logs
// plus /env/sample.status.
func cmdSampleRun(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	keep := false
	trace := false
	for _, arg := range inv.Args {
		switch arg {
		case "--keep":
			keep = true
		case "--trace":
			trace = true
		default:
			return Result{}, vferrors.ParseError("sample.run", "unknown flag "+arg)
		}
	}

	start := time.Now()
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return Result{}, err
	}

	var b strings.Builder
	tracef := func(format string, args ...any) {
		if trace {
			fmt.Fprintf(&b, "[sample.run] "+format+"\n", args...)
		}
	}

	tracef("resetting state")
	for _, p := range []string{"/astcpp/demo", "/cpp/demo.cpp", "/logs/sample.compile.out", "/logs/sample.compile.err", "/logs/sample.run.out", "/logs/sample.run.err", "/env/sample.status"} {
		_ = d.Sess.Store.Rm(p, ovl)
	}
	if err := d.Sess.Store.Mkdir("/logs", ovl); err != nil {
		return Result{}, err
	}

	tracef("building C++ AST")
	steps := []Invocation{
		{Name: "cpp.tu", Args: []string{"/astcpp/demo"}},
		{Name: "cpp.include", Args: []string{"/astcpp/demo", "iostream", "1"}},
		{Name: "cpp.func", Args: []string{"/astcpp/demo", "main", "int"}},
		{Name: "cpp.print", Args: []string{"/astcpp/demo/main", "Hello from vfsh sample!"}},
		{Name: "cpp.returni", Args: []string{"/astcpp/demo/main", "0"}},
		{Name: "cpp.dump", Args: []string{"/astcpp/demo", "/cpp/demo.cpp"}},
	}
	for _, step := range steps {
		if _, err := d.execute(step, ""); err != nil {
			return Result{}, err
		}
	}
	source, err := d.Sess.Store.Read("/cpp/demo.cpp", &ovl)
	if err != nil {
		return Result{}, err
	}

	compiler := "c++"
	if v, err := d.Sess.Store.Read("/env/compiler", &ovl); err == nil && strings.TrimSpace(v) != "" {
		compiler = strings.TrimSpace(v)
	}
	if v := os.Getenv("CXX"); v != "" {
		compiler = v
	}
	tracef("using compiler: %s", compiler)

	tmpSrc := fmt.Sprintf("%s/vfsh_sample_%d.cpp", os.TempDir(), os.Getpid())
	tmpBin := fmt.Sprintf("%s/vfsh_sample_%d", os.TempDir(), os.Getpid())
	if err := os.WriteFile(tmpSrc, []byte(source), 0o644); err != nil {
		return Result{}, vferrors.ExternalFailure("sample.run", "cannot create temp source", err)
	}
	cleanup := func() {
		if !keep {
			_ = os.Remove(tmpSrc)
			_ = os.Remove(tmpBin)
		}
	}

	tracef("compiling %s -> %s", tmpSrc, tmpBin)
	compileOut, compileCode := runCaptured(fmt.Sprintf("%s -std=c++17 -O2 %s -o %s 2>&1", compiler, tmpSrc, tmpBin))
	_ = d.Sess.Store.Write("/logs/sample.compile.out", []byte(compileOut), ovl)
	if compileCode != 0 {
		_ = d.Sess.Store.Write("/logs/sample.compile.err", []byte(compileOut), ovl)
		status := fmt.Sprintf("FAILED: compilation\nexit_code: %d\n", compileCode)
		_ = d.Sess.Store.Write("/env/sample.status", []byte(status), ovl)
		d.noteMutation(ovl)
		cleanup()
		fmt.Fprintf(&b, "sample.run: compilation failed (exit code %d)\n", compileCode)
		return Result{Success: false, Output: b.String()}, nil
	}

	tracef("executing %s", tmpBin)
	execOut, execCode := runCaptured(tmpBin + " 2>&1")
	_ = d.Sess.Store.Write("/logs/sample.run.out", []byte(execOut), ovl)
	if execCode != 0 {
		_ = d.Sess.Store.Write("/logs/sample.run.err", []byte(execOut), ovl)
	}
	cleanup()

	duration := time.Since(start).Milliseconds()
	var status strings.Builder
	if execCode == 0 {
		status.WriteString("SUCCESS\n")
	} else {
		status.WriteString("FAILED: execution\n")
	}
	fmt.Fprintf(&status, "compile_exit_code: 0\n")
	fmt.Fprintf(&status, "exec_exit_code: %d\n", execCode)
	fmt.Fprintf(&status, "duration_ms: %d\n", duration)
	if err := d.Sess.Store.Write("/env/sample.status", []byte(status.String()), ovl); err != nil {
		return Result{}, err
	}
	d.noteMutation(ovl)

	if execCode == 0 {
		b.WriteString("sample.run: SUCCESS\n")
	} else {
		b.WriteString("sample.run: FAILED\n")
	}
	fmt.Fprintf(&b, "Output: /logs/sample.run.out\nStatus: /env/sample.status\n")
	return Result{Success: execCode == 0, Output: b.String()}, nil
}

// cmdUppWkspBuild loads a workspace manifest (and optional builder
// registry) from the VFS and runs the workspace build of spec.md §4.8.
func cmdUppWkspBuild(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("upp.wksp.build", "usage: upp.wksp.build <workspace.toml> [builders.toml] [package] [--release] [--dry-run] [-v]")
	}
	opts := workspace.Options{}
	var positional []string
	for _, arg := range inv.Args {
		switch arg {
		case "--release":
			opts.BuildType = "release"
		case "--dry-run":
			opts.DryRun = true
		case "-v", "--verbose":
			opts.Verbose = true
		default:
			positional = append(positional, arg)
		}
	}

	wsData, err := d.readPath(positional[0])
	if err != nil {
		return Result{}, err
	}
	ws, err := workspace.LoadWorkspace([]byte(wsData))
	if err != nil {
		return Result{}, err
	}

	registry := workspace.NewRegistry()
	if len(positional) > 1 {
		regData, err := d.readPath(positional[1])
		if err != nil {
			return Result{}, err
		}
		registry, err = workspace.LoadBuilderRegistry([]byte(regData))
		if err != nil {
			return Result{}, err
		}
	}
	if len(positional) > 2 {
		opts.TargetPackage = positional[2]
	}

	summary, err := workspace.BuildWorkspace(context.Background(), ws, registry, d.Sess.Store, d.Sess.Mounts, opts, os.Getenv)
	if err != nil {
		return Result{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "builder: %s\n", summary.BuilderUsed)
	fmt.Fprintf(&b, "order: %s\n", strings.Join(summary.PackageOrder, " "))
	b.WriteString(summary.Result.Output)
	for _, e := range summary.Result.Errors {
		b.WriteString(e + "\n")
	}
	return Result{Success: summary.Result.Success, Output: b.String()}, nil
}
