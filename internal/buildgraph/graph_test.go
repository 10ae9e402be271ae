package buildgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/standardbeagle/vfsboot/internal/vfs"
	"github.com/stretchr/testify/require"
)

func TestBuildRunsDependenciesBeforeTarget(t *testing.T) {
	store := vfs.NewStore()
	g := NewGraph()

	g.AddRule(Rule{Name: "a", Commands: []Command{{Kind: CommandShell, Text: "true"}}, Outputs: []string{"/a.out"}})
	g.AddRule(Rule{Name: "b", Dependencies: []string{"a"}, Commands: []Command{{Kind: CommandShell, Text: "true"}}, Outputs: []string{"/b.out"}})

	result := g.Build(context.Background(), "b", store, Options{})
	require.True(t, result.Success)
	require.Equal(t, []string{"a", "b"}, result.TargetsBuilt)
}

func TestBuildDetectsCircularDependency(t *testing.T) {
	store := vfs.NewStore()
	g := NewGraph()
	g.AddRule(Rule{Name: "a", Dependencies: []string{"b"}})
	g.AddRule(Rule{Name: "b", Dependencies: []string{"a"}})

	result := g.Build(context.Background(), "a", store, Options{})
	require.False(t, result.Success)
	require.Contains(t, result.Errors[0], "Circular dependency")
}

func TestBuildTreatsExistingVfsNodeAsSatisfied(t *testing.T) {
	store := vfs.NewStore()
	require.NoError(t, store.Write("/already-built.txt", []byte("x"), 0))
	g := NewGraph()

	result := g.Build(context.Background(), "/already-built.txt", store, Options{})
	require.True(t, result.Success)
	require.Empty(t, result.TargetsBuilt)
}

func TestBuildFailsWithNoRuleAndNoNode(t *testing.T) {
	store := vfs.NewStore()
	g := NewGraph()
	result := g.Build(context.Background(), "missing", store, Options{})
	require.False(t, result.Success)
	require.Contains(t, result.Errors[0], "No rule to build target")
}

func TestAlwaysRunRuleRebuildsEveryTime(t *testing.T) {
	store := vfs.NewStore()
	g := NewGraph()
	g.AddRule(Rule{Name: "a", AlwaysRun: true, Commands: []Command{{Kind: CommandShell, Text: "true"}}})

	r1 := g.Build(context.Background(), "a", store, Options{})
	require.True(t, r1.Success)
	r2 := g.Build(context.Background(), "a", store, Options{})
	require.True(t, r2.Success)
	require.Equal(t, []string{"a"}, r1.TargetsBuilt)
	require.Equal(t, []string{"a"}, r2.TargetsBuilt)
}

func TestRuleRebuildsWhenVfsOutputIsStaleAgainstDependency(t *testing.T) {
	store := vfs.NewStore()
	require.NoError(t, store.Write("/dep", []byte("v1"), 0))
	require.NoError(t, store.Write("/out", []byte("v1"), 0))

	g := NewGraph()
	g.AddRule(Rule{Name: "dep", Commands: []Command{{Kind: CommandShell, Text: "true"}}, Outputs: []string{"/dep"}})
	g.AddRule(Rule{Name: "app", Dependencies: []string{"dep"}, Commands: []Command{{Kind: CommandShell, Text: "true"}}, Outputs: []string{"/out"}})

	// First build observes /dep before /out (dependency-first
	// recursion), so the dependency's tick is older and app is fresh.
	r1 := g.Build(context.Background(), "app", store, Options{})
	require.True(t, r1.Success)
	require.Empty(t, r1.TargetsBuilt)

	// Changing the dependency's content advances its tick past /out's,
	// so the next build must re-run app.
	require.NoError(t, store.Write("/dep", []byte("v2"), 0))
	r2 := g.Build(context.Background(), "app", store, Options{})
	require.True(t, r2.Success)
	require.Equal(t, []string{"app"}, r2.TargetsBuilt)
}

func TestDryRunExecutorRecordsWithoutRunning(t *testing.T) {
	store := vfs.NewStore()
	g := NewGraph()
	g.AddRule(Rule{Name: "a", AlwaysRun: true, Commands: []Command{{Kind: CommandShell, Text: "exit 1"}}})

	result := g.Build(context.Background(), "a", store, Options{Executor: DryRunExecutor})
	require.True(t, result.Success)
	require.Contains(t, result.Output, "[dry-run] exit 1")
}

func TestShellExecutorCapturesOutputAndFailure(t *testing.T) {
	store := vfs.NewStore()
	g := NewGraph()
	g.AddRule(Rule{Name: "ok", AlwaysRun: true, Commands: []Command{{Kind: CommandShell, Text: "echo hi"}}})
	g.AddRule(Rule{Name: "bad", AlwaysRun: true, Commands: []Command{{Kind: CommandShell, Text: "exit 3"}}})

	okResult := g.Build(context.Background(), "ok", store, Options{})
	require.True(t, okResult.Success)
	require.Contains(t, okResult.Output, "hi")

	badResult := g.Build(context.Background(), "bad", store, Options{})
	require.False(t, badResult.Success)
	require.NotEmpty(t, badResult.Errors)
}

func TestHostFileFreshnessForcesRebuild(t *testing.T) {
	dir := t.TempDir()
	depPath := filepath.Join(dir, "dep.txt")
	require.NoError(t, os.WriteFile(depPath, []byte("v1"), 0o644))

	store := vfs.NewStore()
	g := NewGraph()
	g.AddRule(Rule{Name: "gen", Dependencies: []string{depPath}, Commands: []Command{{Kind: CommandShell, Text: "true"}}, Outputs: []string{"/missing-host-output-" + depPath}})

	result := g.Build(context.Background(), "gen", store, Options{})
	require.True(t, result.Success)
	require.Equal(t, []string{"gen"}, result.TargetsBuilt)
}

func TestValidateNoCycleFindsCycle(t *testing.T) {
	g := NewGraph()
	g.AddRule(Rule{Name: "a", Dependencies: []string{"b"}})
	g.AddRule(Rule{Name: "b", Dependencies: []string{"a"}})

	cycle := g.ValidateNoCycle("a")
	require.NotEmpty(t, cycle)
}

func TestValidateNoCycleCleanGraph(t *testing.T) {
	g := NewGraph()
	g.AddRule(Rule{Name: "a", Dependencies: []string{"b"}})
	g.AddRule(Rule{Name: "b"})

	require.Nil(t, g.ValidateNoCycle("a"))
}
