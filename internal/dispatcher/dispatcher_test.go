package dispatcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/vfsboot/internal/aibridge"
	"github.com/standardbeagle/vfsboot/internal/config"
	"github.com/standardbeagle/vfsboot/internal/session"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	cfg := config.Default()
	cfg.HistoryPath = filepath.Join(t.TempDir(), "history")
	return New(session.New(cfg), nil, nil, nil)
}

// mustRun executes a line and requires it to succeed.
func mustRun(t *testing.T, d *Dispatcher, line string) Result {
	t.Helper()
	res, err := d.Run(line)
	require.NoError(t, err)
	require.True(t, res.Success, "command failed: %s\noutput: %s", line, res.Output)
	return res
}

func TestTokenizeQuotingAndOperators(t *testing.T) {
	toks, err := Tokenize(`echo /a "hi there" | grep hi && cat /a > /out`)
	require.NoError(t, err)
	var kinds []TokenKind
	var texts []string
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
		texts = append(texts, tok.Text)
	}
	require.Equal(t, []string{"echo", "/a", "hi there", "|", "grep", "hi", "&&", "cat", "/a", ">", "/out"}, texts)
	require.Equal(t, Pipe, kinds[3])
	require.Equal(t, And, kinds[6])
	require.Equal(t, RedirectWrite, kinds[9])
}

func TestTokenizeDoubleQuoteControlEscapes(t *testing.T) {
	toks, err := Tokenize(`echo /f "a\nb\t\"c\""`)
	require.NoError(t, err)
	require.Equal(t, "a\nb\t\"c\"", toks[2].Text)
}

func TestTokenizeSingleQuotesAreLiteral(t *testing.T) {
	toks, err := Tokenize(`echo /f 'a\nb'`)
	require.NoError(t, err)
	require.Equal(t, `a\nb`, toks[2].Text)
}

func TestTokenizeErrors(t *testing.T) {
	_, err := Tokenize(`echo "unterminated`)
	require.Error(t, err)
	_, err = Tokenize(`echo 'unterminated`)
	require.Error(t, err)
	_, err = Tokenize(`a & b`)
	require.Error(t, err)
}

func TestParseChainErrors(t *testing.T) {
	for _, line := range []string{"a &&", "a ||", "a |", "a >", "| b"} {
		toks, err := Tokenize(line)
		require.NoError(t, err)
		_, err = ParseChain(toks)
		require.Error(t, err, "line: %s", line)
	}
}

// Scenario 1 from spec.md §8: VFS basics.
func TestVfsBasics(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, "mkdir /a")
	mustRun(t, d, "touch /a/f")
	mustRun(t, d, `echo /a/f "hi\n"`)

	res := mustRun(t, d, "cat /a/f")
	require.Equal(t, "hi\n", res.Output)

	res = mustRun(t, d, "tree /a")
	require.Contains(t, res.Output, "d a")
	require.Contains(t, res.Output, "f f")
}

// Scenario 2 from spec.md §8: overlay conflict.
func TestOverlayConflictPolicies(t *testing.T) {
	d := newTestDispatcher(t)
	ovl := d.Sess.Store.RegisterOverlay("scratch")
	require.NoError(t, d.Sess.Store.Mkdir("/x", 0))
	require.NoError(t, d.Sess.Store.Mkdir("/x", ovl))
	require.NoError(t, d.Sess.Store.Touch("/x/only-scratch", ovl))

	mustRun(t, d, "overlay.policy manual")
	res, err := d.Run("ls /x")
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Contains(t, res.Output, "base")
	require.Contains(t, res.Output, "scratch")

	mustRun(t, d, "overlay.policy newest")
	res = mustRun(t, d, "ls /x")
	require.Contains(t, res.Output, "only-scratch")
}

// Scenario 3 from spec.md §8: pipe + redirect.
func TestPipeAndRedirect(t *testing.T) {
	d := newTestDispatcher(t)
	res := mustRun(t, d, `echo data "alpha\nbeta\nalpha\n" | uniq | grep al > /out.txt`)
	require.Empty(t, res.Output, "redirect must clear the user-visible output")

	res = mustRun(t, d, "cat /out.txt")
	require.Equal(t, "alpha\n", res.Output)
}

func TestRedirectAppend(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, `echo /src "one\n" > /log`)
	mustRun(t, d, `echo /src "two\n" >> /log`)
	res := mustRun(t, d, "cat /log")
	require.Equal(t, "one\ntwo\n", res.Output)
}

func TestLogicalChaining(t *testing.T) {
	d := newTestDispatcher(t)
	res, err := d.Run(`cat /missing && echo /a "never"`)
	require.NoError(t, err)
	require.False(t, res.Success)
	_, _, resolveErr := d.Sess.Resolve("test", "/a")
	require.Error(t, resolveErr, "&& must skip after a failure")

	res = mustRun(t, d, `cat /missing || echo /b "fallback"`)
	require.Equal(t, "fallback", res.Output)
}

// Scenario 4 from spec.md §8: tag + logic.
func TestTagAndLogic(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, "touch /note")
	mustRun(t, d, "tag.add /note doc")
	mustRun(t, d, "logic.rule.add r1 doc text")

	res := mustRun(t, d, "logic.infer doc")
	require.Equal(t, "doc, text\n", res.Output)

	res = mustRun(t, d, "plan.tags.check /note")
	require.Equal(t, "consistent\n", res.Output)
}

func TestLogicExclusionConflict(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, "touch /note")
	mustRun(t, d, "tag.add /note draft final")
	mustRun(t, d, "logic.rule.exclude x1 draft final")

	res, err := d.Run("plan.tags.check /note")
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Contains(t, res.Output, "conflict")
}

func TestLogicRulesSaveLoadRoundTrip(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, "logic.rule.add r1 doc text 0.8")
	mustRun(t, d, "logic.rule.exclude x1 draft final")
	mustRun(t, d, "logic.rules.save")

	mustRun(t, d, "logic.rule.remove r1")
	require.False(t, d.Sess.Logic.HasRule("r1"))

	mustRun(t, d, "logic.rules.load")
	require.True(t, d.Sess.Logic.HasRule("r1"))
	require.True(t, d.Sess.Logic.HasRule("x1"))
}

func TestLogicInitAndSat(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, "logic.init")
	res := mustRun(t, d, "logic.listrules")
	require.Contains(t, res.Output, "doc")

	res = mustRun(t, d, `logic.sat "a & !b"`)
	require.Equal(t, "satisfiable\n", res.Output)

	res, err := d.Run(`logic.sat "a & !a"`)
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, "unsatisfiable\n", res.Output)
}

func TestTagHasAndRemove(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, "touch /n")
	mustRun(t, d, "tag.add /n alpha beta")

	res := mustRun(t, d, "tag.has /n alpha")
	require.Equal(t, "yes\n", res.Output)

	mustRun(t, d, "tag.remove /n alpha")
	res, err := d.Run("tag.has /n alpha")
	require.NoError(t, err)
	require.False(t, res.Success)

	res = mustRun(t, d, "tag.list /n")
	require.Equal(t, "beta\n", res.Output)

	mustRun(t, d, "tag.clear /n")
	res = mustRun(t, d, "tag.list /n")
	require.Empty(t, res.Output)
}

func TestPlanCreateJobsAndComplete(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, "plan.create /plan/root root top level plan")
	mustRun(t, d, "plan.create /plan/root/jobs jobs")
	mustRun(t, d, "plan.jobs.add /plan/root/jobs 2 alice write docs")
	mustRun(t, d, "plan.jobs.add /plan/root/jobs 1 bob fix parser")

	res := mustRun(t, d, "cat /plan/root/jobs")
	require.Contains(t, res.Output, "[ ] 1 bob: fix parser")
	require.Contains(t, res.Output, "[ ] 2 alice: write docs")

	mustRun(t, d, "plan.jobs.complete /plan/root/jobs 0")
	res = mustRun(t, d, "cat /plan/root/jobs")
	require.Contains(t, res.Output, "[x]")

	res = mustRun(t, d, "plan.verify")
	require.Contains(t, res.Output, "plan ok")
}

func TestPlanContextAndNavigation(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, "plan.create /plan/a goals")
	mustRun(t, d, "plan.goto /plan/a")
	mustRun(t, d, "plan.context.add /plan/a")

	res := mustRun(t, d, "plan.context.list")
	require.Contains(t, res.Output, "/plan/a")

	mustRun(t, d, "plan.context.remove /plan/a")
	res = mustRun(t, d, "plan.context.list")
	require.Empty(t, res.Output)

	mustRun(t, d, "plan.forward")
	res = mustRun(t, d, "plan.backward")
	require.Contains(t, res.Output, "backward")
}

func TestSexprParseAndEval(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, `echo /src.scm "(+ 1 (* 2 3))"`)
	mustRun(t, d, "parse /src.scm /ast/expr")

	res := mustRun(t, d, "eval /ast/expr")
	require.Equal(t, "7\n", res.Output)
}

func TestSexprWriteRejected(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, `echo /src.scm "(+ 1 2)"`)
	mustRun(t, d, "parse /src.scm /ast/expr")

	err := d.Sess.Store.Write("/ast/expr", []byte("(+ 3 4)"), 0)
	require.Error(t, err, "writes to AST nodes must be rejected")
}

func TestCppConstructionAndDump(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, "cpp.tu /astcpp/demo")
	mustRun(t, d, "cpp.include /astcpp/demo iostream 1")
	mustRun(t, d, "cpp.func /astcpp/demo main int")
	mustRun(t, d, "cpp.print /astcpp/demo/main Hello")
	mustRun(t, d, "cpp.returni /astcpp/demo/main 0")
	mustRun(t, d, "cpp.dump /astcpp/demo /cpp/demo.cpp")

	res := mustRun(t, d, "cat /cpp/demo.cpp")
	require.Contains(t, res.Output, "#include <iostream>")
	require.Contains(t, res.Output, "int main()")
	require.Contains(t, res.Output, `std::cout << "Hello" << std::endl;`)
	require.Contains(t, res.Output, "return 0;")

	// Function bodies are navigable as directories.
	res = mustRun(t, d, "ls /astcpp/demo/main")
	require.Contains(t, res.Output, "body")
}

func TestCppVarDeclExprAndRangeFor(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, "cpp.tu /astcpp/t")
	mustRun(t, d, "cpp.include /astcpp/t vector 1")
	mustRun(t, d, "cpp.func /astcpp/t count int")
	mustRun(t, d, "cpp.param /astcpp/t/count int n")
	mustRun(t, d, "cpp.vardecl /astcpp/t/count int total 0")
	mustRun(t, d, `cpp.rangefor /astcpp/t/count "auto&x" xs`)
	mustRun(t, d, "cpp.stmt /astcpp/t/count total += 1;")
	mustRun(t, d, "cpp.return /astcpp/t/count total")
	mustRun(t, d, "cpp.dump /astcpp/t /cpp/t.cpp")

	res := mustRun(t, d, "cat /cpp/t.cpp")
	require.Contains(t, res.Output, "int count(int n)")
	require.Contains(t, res.Output, "int total = 0;")
	require.Contains(t, res.Output, "for (auto&x : xs)")
	require.Contains(t, res.Output, "return total;")
}

// Scenario 6 from spec.md §8: make DAG with freshness.
func TestMakeDag(t *testing.T) {
	d := newTestDispatcher(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	makefile := "all: " + a + " " + b + "\\n" +
		a + ": " + src + "\\n" +
		"\\ttouch " + a + "\\n" +
		b + ": " + src + "\\n" +
		"\\ttouch " + b + "\\n"
	mustRun(t, d, `echo /Makefile "`+makefile+`"`)

	res := mustRun(t, d, "make all")
	require.Contains(t, res.Output, "built:")
	require.Contains(t, res.Output, a)
	require.Contains(t, res.Output, b)

	res = mustRun(t, d, "make all")
	require.Contains(t, res.Output, "all is up to date")
}

func TestMakeDryRun(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, `echo /Makefile "out: dep\n\techo building out\n"`)
	mustRun(t, d, "touch /dep")

	res := mustRun(t, d, "make out --dry-run -f /Makefile")
	require.Contains(t, res.Output, "[dry-run] echo building out")
}

func TestHeadTailCount(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, `echo /lines "1\n2\n3\n4\n5\n"`)

	res := mustRun(t, d, "head -n 2 /lines")
	require.Equal(t, "1\n2\n", res.Output)

	res = mustRun(t, d, "tail -n 2 /lines")
	require.Equal(t, "4\n5\n", res.Output)

	res = mustRun(t, d, "count /lines")
	require.Equal(t, "5\n", res.Output)
}

func TestGrepAndRg(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, `echo /f "Alpha\nbeta\ngamma\n"`)

	res := mustRun(t, d, "grep -i alpha /f")
	require.Equal(t, "Alpha\n", res.Output)

	res = mustRun(t, d, "rg ^g /f")
	require.Equal(t, "gamma\n", res.Output)
}

func TestMvAndLink(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, `echo /a/f "data"`)
	mustRun(t, d, "mv /a/f /b/g")

	res := mustRun(t, d, "cat /b/g")
	require.Equal(t, "data", res.Output)

	mustRun(t, d, "link /b/g /c/h")
	res = mustRun(t, d, "cat /c/h")
	require.Equal(t, "data", res.Output)

	// Removing one parent edge keeps the node alive under the other.
	mustRun(t, d, "rm /b/g")
	res = mustRun(t, d, "cat /c/h")
	require.Equal(t, "data", res.Output)
}

func TestCdAndPwd(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, "mkdir /deep/dir")
	mustRun(t, d, "cd /deep/dir")

	res := mustRun(t, d, "pwd")
	require.Equal(t, "/deep/dir\n", res.Output)

	mustRun(t, d, "cd ..")
	res = mustRun(t, d, "pwd")
	require.Equal(t, "/deep\n", res.Output)
}

func TestOverlayListAndUse(t *testing.T) {
	d := newTestDispatcher(t)
	d.Sess.Store.RegisterOverlay("work")

	res := mustRun(t, d, "overlay.list")
	require.Contains(t, res.Output, "base")
	require.Contains(t, res.Output, "work")

	mustRun(t, d, "overlay.use work")
	require.Equal(t, 1, d.Sess.CurrentOverlay())

	// Mutations now land in the "work" overlay, leaving base untouched.
	mustRun(t, d, "touch /only-work")
	_, err := d.Sess.Store.ResolveForOverlay("test", "/only-work", 0)
	require.Error(t, err)
	_, err = d.Sess.Store.ResolveForOverlay("test", "/only-work", 1)
	require.NoError(t, err)
	require.True(t, d.Sess.Store.Overlay(1).Dirty())
}

func TestSolutionSaveAndMountRoundTrip(t *testing.T) {
	d := newTestDispatcher(t)
	file := filepath.Join(t.TempDir(), "work.cxpkg")

	work := d.Sess.Store.RegisterOverlay("work")
	require.NoError(t, d.Sess.Store.Write("/proj/readme", []byte("hello"), work))
	mustRun(t, d, "overlay.save work "+file)
	require.False(t, d.Sess.Store.Overlay(work).Dirty())

	d2 := newTestDispatcher(t)
	mustRun(t, d2, "overlay.mount restored "+file)
	id, ok := d2.Sess.Store.FindOverlayByName("restored")
	require.True(t, ok)
	content, err := d2.Sess.Store.Read("/proj/readme", &id)
	require.NoError(t, err)
	require.Equal(t, "hello", content)

	mustRun(t, d2, "solution.save")
}

func TestExportWritesHostFile(t *testing.T) {
	d := newTestDispatcher(t)
	target := filepath.Join(t.TempDir(), "out.txt")
	mustRun(t, d, `echo /f "payload"`)
	mustRun(t, d, "export /f "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
}

func TestUnknownCommandFailsButContinues(t *testing.T) {
	d := newTestDispatcher(t)
	res, err := d.Run("no.such.command")
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Contains(t, res.Output, "no.such.command")

	mustRun(t, d, "pwd")
}

func TestQuitRequestsExit(t *testing.T) {
	d := newTestDispatcher(t)
	res := mustRun(t, d, "quit")
	require.True(t, res.ExitRequested)
}

func TestTreeAdvToggles(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, `echo /a/keep.txt "12345"`)
	mustRun(t, d, `echo /a/drop.log "x"`)

	res := mustRun(t, d, "tree.adv --kind --size /a")
	require.Contains(t, res.Output, "keep.txt [file] 5B")

	res = mustRun(t, d, "tree.adv --filter keep /a")
	require.Contains(t, res.Output, "keep.txt")
	require.NotContains(t, res.Output, "drop.log")
}

func TestMountDisallowBlocksMount(t *testing.T) {
	d := newTestDispatcher(t)
	mustRun(t, d, "mount.disallow")

	res, err := d.Run("mount " + t.TempDir() + " /host")
	require.NoError(t, err)
	require.False(t, res.Success)

	mustRun(t, d, "mount.allow")
	mustRun(t, d, "mount "+t.TempDir()+" /host")
	res = mustRun(t, d, "mount.list")
	require.Contains(t, res.Output, "/host")
	require.NoError(t, d.Sess.Mounts.CloseAll())
}

func TestAiRawUsesBridgeCache(t *testing.T) {
	cfg := config.Default()
	cfg.HistoryPath = filepath.Join(t.TempDir(), "history")
	calls := 0
	bridge := aibridge.New(t.TempDir(), func(prompt string) (string, error) {
		calls++
		return "pong: " + prompt, nil
	})
	d := New(session.New(cfg), nil, nil, bridge)

	res := mustRun(t, d, "ai.raw ping")
	require.Equal(t, "pong: ping", res.Output)

	mustRun(t, d, "ai.raw ping")
	require.Equal(t, 1, calls, "second identical prompt must be served from the cache")
}

func TestHelpListsCommands(t *testing.T) {
	d := newTestDispatcher(t)
	res := mustRun(t, d, "help")
	require.Contains(t, res.Output, "mkdir")
	require.Contains(t, res.Output, "logic.infer")
	require.Contains(t, res.Output, "cpp.dump")
}
