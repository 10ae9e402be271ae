package buildgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/standardbeagle/vfsboot/internal/vfs"
	"github.com/stretchr/testify/require"
)

func TestParseMakefileVariablesAndRules(t *testing.T) {
	content := "CC = gcc\n" +
		"FLAGS := -O2\n" +
		"OUT ?= bin\n" +
		"# comment\n" +
		"all: a b\n" +
		"a: src\n" +
		"\t$(CC) $(FLAGS) -o $@ $<\n" +
		".PHONY: clean\n" +
		"clean:\n" +
		"\trm -f a b\n"

	mf, err := ParseMakefile(content, func(string) string { return "" })
	require.NoError(t, err)

	require.Equal(t, "gcc", mf.Variables["CC"])
	require.Equal(t, "-O2", mf.Variables["FLAGS"])
	require.Equal(t, "bin", mf.Variables["OUT"])
	require.True(t, mf.HasRule("all"))
	require.Equal(t, "all", mf.FirstRule())

	g := mf.ToGraph()
	require.Equal(t, []string{"src"}, g.Rules["a"].Dependencies)
	require.Equal(t, "gcc -O2 -o a src", g.Rules["a"].Commands[0].Text)
	require.True(t, g.Rules["clean"].AlwaysRun)
	require.False(t, g.Rules["a"].AlwaysRun)
}

func TestParseMakefileQuestionAssignPrefersEnv(t *testing.T) {
	mf, err := ParseMakefile("OUT ?= bin\n", func(name string) string {
		if name == "OUT" {
			return "from-env"
		}
		return ""
	})
	require.NoError(t, err)
	require.Equal(t, "from-env", mf.Variables["OUT"])
}

func TestParseMakefileCommandWithoutTarget(t *testing.T) {
	_, err := ParseMakefile("\techo orphan\n", nil)
	require.Error(t, err)
}

func TestMakefileGraphBuildsAndStaysFresh(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	content := "all: " + a + " " + b + "\n" +
		a + ": " + src + "\n" +
		"\ttouch " + a + "\n" +
		b + ": " + src + "\n" +
		"\ttouch " + b + "\n"
	mf, err := ParseMakefile(content, nil)
	require.NoError(t, err)

	store := vfs.NewStore()
	g := mf.ToGraph()
	result := g.Build(context.Background(), "all", store, Options{})
	require.True(t, result.Success, "errors: %v", result.Errors)
	require.Contains(t, result.TargetsBuilt, a)
	require.Contains(t, result.TargetsBuilt, b)
	require.FileExists(t, a)
	require.FileExists(t, b)

	// Second pass: outputs exist and are no older than src.
	g2 := mf.ToGraph()
	result2 := g2.Build(context.Background(), "all", store, Options{})
	require.True(t, result2.Success)
	require.NotContains(t, result2.TargetsBuilt, a)
	require.NotContains(t, result2.TargetsBuilt, b)
}

func TestMakefileGraphDetectsCycle(t *testing.T) {
	content := "a: b\n\ttouch a\nb: a\n\ttouch b\n"
	mf, err := ParseMakefile(content, nil)
	require.NoError(t, err)

	store := vfs.NewStore()
	result := mf.ToGraph().Build(context.Background(), "a", store, Options{Executor: DryRunExecutor})
	require.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
}
