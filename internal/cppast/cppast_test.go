package cppast

import (
	"testing"

	"github.com/standardbeagle/vfsboot/internal/vfs"
	"github.com/stretchr/testify/require"
)

func TestDumpFunctionWithStatements(t *testing.T) {
	tu := &TranslationUnit{}
	tu.AddInclude("iostream", true)
	fn := tu.AddFunction("int", "main")
	fn.AddStmt(VarDecl{Type: "int", Name: "x", Init: "1", HasInit: true})
	fn.AddStmt(ExprStmt{E: StreamOut{Chain: []Expr{Id{ID: "x"}, Id{ID: "endl"}}}})
	fn.AddStmt(Return{E: Int{Val: 0}})

	out := tu.Dump(0)
	require.Contains(t, out, `#include <iostream>`)
	require.Contains(t, out, "int main() {")
	require.Contains(t, out, "int x = 1;")
	require.Contains(t, out, "std::cout << x << std::endl;")
	require.Contains(t, out, "return 0;")
}

func TestStringEscaping(t *testing.T) {
	s := CppString{Val: "a\"b\\c\nd"}
	require.Equal(t, `"a\"b\\c\nd"`, s.Dump(0))
}

func TestVarDeclWithoutInit(t *testing.T) {
	v := VarDecl{Type: "int", Name: "n"}
	require.Equal(t, "int n;", v.Dump(0))
}

func TestReturnWithoutExpr(t *testing.T) {
	r := Return{}
	require.Equal(t, "return;", r.Dump(0))
}

func TestAttachTranslationUnitBuildsDirectoryTree(t *testing.T) {
	store := vfs.NewStore()
	require.NoError(t, store.Mkdir("/cpp", 0))

	tu := &TranslationUnit{}
	fn := tu.AddFunction("void", "run")
	fn.AddStmt(RawStmt{Text: "doWork();"})

	require.NoError(t, AttachTranslationUnit(store, "/cpp", "prog", tu, 0))

	fnNode, err := store.ResolveForOverlay("resolve", "/cpp/prog/run", 0)
	require.NoError(t, err)
	require.True(t, fnNode.IsDir())

	bodyNode, err := store.ResolveForOverlay("resolve", "/cpp/prog/run/body", 0)
	require.NoError(t, err)
	require.True(t, bodyNode.IsDir())
	require.Contains(t, bodyNode.Children(), "stmt0")
}

func TestDumpToVfsWritesFile(t *testing.T) {
	store := vfs.NewStore()
	tu := &TranslationUnit{}
	tu.AddFunction("int", "main")

	require.NoError(t, DumpToVfs(store, tu, "/out.cpp", 0))
	content, err := store.Read("/out.cpp", nil)
	require.NoError(t, err)
	require.Contains(t, content, "int main()")
}
