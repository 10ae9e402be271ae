// Package buildgraph implements the generic DAG build primitives from
// spec.md §4.7, shared by the workspace builder and the `build`
// dispatcher command. Grounded on
// _examples/original_source/VfsShell/build_graph.h/.cpp's
// BuildGraph/BuildRule/BuildCommand/BuildResult/BuildOptions.
package buildgraph

import (
	"context"
	"strings"

	"github.com/standardbeagle/vfsboot/internal/vfs"
)

// CommandKind distinguishes a shell command from an AI-prompt command
// (build_graph.h's BuildCommand::Type).
type CommandKind int

const (
	CommandShell CommandKind = iota
	CommandAiPrompt
)

// Command is one step of a Rule. Metadata carries AiPrompt-specific
// key/value context (e.g. provider, model) that the executor may
// consult; it is ignored by the default shell executor.
type Command struct {
	Kind     CommandKind
	Text     string
	Metadata map[string]string
}

// Rule describes how to produce one target: its dependencies, the
// commands that build it, the VFS/host paths it produces, and whether
// it must always run regardless of freshness.
type Rule struct {
	Name         string
	Dependencies []string
	Commands     []Command
	Outputs      []string
	AlwaysRun    bool
}

// Result accumulates the outcome of a build: whether it succeeded, the
// combined stdout/log text, which rules actually ran, and any errors
// encountered (build_graph.h's BuildResult).
type Result struct {
	Success      bool
	Output       string
	TargetsBuilt []string
	Errors       []string
}

// Executor runs a rule's commands, appending to result and returning
// whether it succeeded. Swappable via Options.Executor — the default is
// ShellExecutor; DryRunExecutor records commands without running them.
type Executor func(ctx context.Context, rule Rule, result *Result, verbose bool) bool

// OutputTimeOverride lets a caller substitute its own freshness clock
// for a rule's outputs (e.g. the workspace builder uses a logical clock
// instead of wall time). Returns (time, true) if determinable.
type OutputTimeOverride func(rule Rule, store *vfs.Store) (uint64, bool)

// Options configures one Graph.Build call.
type Options struct {
	Verbose            bool
	Executor           Executor
	OutputTimeOverride OutputTimeOverride
}

// Graph is a target→Rule mapping, built incrementally by the workspace
// builder or by the dispatcher's `make` command.
type Graph struct {
	Rules map[string]Rule
	clock *logicalClock
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph {
	return &Graph{Rules: make(map[string]Rule), clock: newLogicalClock()}
}

// AddRule inserts or replaces the rule for rule.Name.
func (g *Graph) AddRule(rule Rule) {
	g.Rules[rule.Name] = rule
}

// Build resolves target: if it names a rule, recursively builds every
// dependency first, then rebuilds target itself when stale (spec.md
// §4.7 steps 1-5). If target has no rule but resolves to a VFS node,
// it's treated as already satisfied.
func (g *Graph) Build(ctx context.Context, target string, store *vfs.Store, opts Options) Result {
	result := Result{}
	if opts.Executor == nil {
		opts.Executor = ShellExecutor
	}

	if _, ok := g.Rules[target]; !ok {
		if _, err := store.ResolveForOverlay("build", target, 0); err == nil {
			result.Success = true
			return result
		}
		result.Errors = append(result.Errors, "No rule to build target: "+target)
		return result
	}

	visiting := make(map[string]bool)
	built := make(map[string]bool)
	if g.buildNode(ctx, target, store, opts, visiting, built, &result) {
		result.Success = true
	}
	return result
}

func (g *Graph) buildNode(ctx context.Context, target string, store *vfs.Store, opts Options, visiting, built map[string]bool, result *Result) bool {
	if visiting[target] {
		result.Errors = append(result.Errors, "Circular dependency detected: "+target)
		return false
	}
	if built[target] {
		return true
	}

	rule, ok := g.Rules[target]
	if !ok {
		if _, err := store.ResolveForOverlay("build", target, 0); err == nil {
			built[target] = true
			return true
		}
		result.Errors = append(result.Errors, "No rule to build target: "+target)
		return false
	}

	visiting[target] = true

	for _, dep := range rule.Dependencies {
		if _, depIsRule := g.Rules[dep]; depIsRule {
			if !g.buildNode(ctx, dep, store, opts, visiting, built, result) {
				delete(visiting, target)
				return false
			}
			continue
		}
		if _, err := store.ResolveForOverlay("build", dep, 0); err != nil {
			if _, hasTime := getModTime(dep); !hasTime && opts.Verbose {
				result.Output += "Dependency missing (will rely on rule): " + dep + "\n"
			}
		}
	}

	if g.needsRebuild(rule, store, opts) {
		if opts.Verbose {
			outputs := strings.Join(rule.Outputs, ", ")
			if outputs == "" {
				outputs = rule.Name
			}
			result.Output += "Building " + rule.Name + " -> " + outputs + "\n"
		}
		if !opts.Executor(ctx, rule, result, opts.Verbose) {
			delete(visiting, target)
			return false
		}
		result.TargetsBuilt = append(result.TargetsBuilt, rule.Name)
	} else if opts.Verbose {
		result.Output += "Target up-to-date: " + rule.Name + "\n"
	}

	delete(visiting, target)
	built[target] = true
	return true
}

func (g *Graph) needsRebuild(rule Rule, store *vfs.Store, opts Options) bool {
	if rule.AlwaysRun {
		return true
	}

	outputTime, ok := g.outputTime(rule, store, opts)
	if !ok {
		return true
	}

	for _, dep := range rule.Dependencies {
		if depRule, isRule := g.Rules[dep]; isRule {
			depTime, ok := g.outputTime(depRule, store, opts)
			if !ok || depTime > outputTime {
				return true
			}
			continue
		}
		depTime, ok := getModTime(dep)
		if !ok || depTime > outputTime {
			return true
		}
	}
	return false
}

func (g *Graph) outputTime(rule Rule, store *vfs.Store, opts Options) (uint64, bool) {
	if opts.OutputTimeOverride != nil {
		return opts.OutputTimeOverride(rule, store)
	}
	return g.determineOutputTime(rule, store)
}

// determineOutputTime computes the minimum freshness value across a
// rule's outputs (rule.Name itself if Outputs is empty). A VFS output
// contributes its logicalClock tick (SPEC_FULL.md's substitute for the
// reference's "VFS nodes contribute 0", since pinning every VFS output
// to the same constant would make two VFS outputs never compare
// "newer than" each other); a missing host file makes the whole rule
// stale.
func (g *Graph) determineOutputTime(rule Rule, store *vfs.Store) (uint64, bool) {
	outputs := rule.Outputs
	if len(outputs) == 0 {
		outputs = []string{rule.Name}
	}

	var min uint64
	haveMin := false
	for _, path := range outputs {
		if content, err := store.Read(path, intPtr(0)); err == nil {
			tick := g.clock.observe(path, content)
			if !haveMin || tick < min {
				min = tick
				haveMin = true
			}
			continue
		}
		hostTime, ok := getModTime(path)
		if !ok {
			return 0, false
		}
		if !haveMin || hostTime < min {
			min = hostTime
			haveMin = true
		}
	}
	return min, haveMin
}

func intPtr(i int) *int { return &i }

// ValidateNoCycle reports the first cycle reachable from target without
// running any commands, as a dry structural check. Returns the cycle's target chain, or nil if
// target's dependency graph is acyclic.
func (g *Graph) ValidateNoCycle(target string) []string {
	var stack []string
	onStack := make(map[string]bool)
	var walk func(t string) []string
	walk = func(t string) []string {
		if onStack[t] {
			return append(append([]string{}, stack...), t)
		}
		rule, ok := g.Rules[t]
		if !ok {
			return nil
		}
		stack = append(stack, t)
		onStack[t] = true
		for _, dep := range rule.Dependencies {
			if cycle := walk(dep); cycle != nil {
				return cycle
			}
		}
		onStack[t] = false
		stack = stack[:len(stack)-1]
		return nil
	}
	return walk(target)
}
