package cppast

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tscpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"

	"github.com/standardbeagle/vfsboot/internal/vferrors"
)

// ParseTranslationUnit parses an existing host C++ source file into a
// TranslationUnit, the substitute spec.md §9 names for libclang ("the
// reference treats the C++ AST as purely constructive... a real
// implementation might additionally support *reading* existing C++
// source via a parser such as tree-sitter-cpp"). This is a best-effort
// structural reader: it recovers top-level #include directives and
// function signatures/bodies-as-raw-text, not a full semantic AST —
// good enough for `cpp.parse` to seed a construction tree that `cpp.dump`
// can then extend and re-render.
func ParseTranslationUnit(name string, source []byte) (*TranslationUnit, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(sitter.NewLanguage(tscpp.Language())); err != nil {
		return nil, vferrors.ExternalFailure("cpp.parse", "failed to load tree-sitter-cpp grammar", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, vferrors.ParseError("cpp.parse", "tree-sitter returned no parse tree")
	}
	defer tree.Close()

	tu := &TranslationUnit{}
	root := tree.RootNode()
	count := root.ChildCount()
	for i := uint(0); i < count; i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "preproc_include":
			if inc, ok := parseInclude(child, source); ok {
				tu.Includes = append(tu.Includes, inc)
			}
		case "function_definition":
			tu.Funcs = append(tu.Funcs, parseFunctionRaw(child, source))
		}
	}
	return tu, nil
}

func parseInclude(n *sitter.Node, source []byte) (Include, bool) {
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "string_literal":
			text := string(source[c.StartByte():c.EndByte()])
			return Include{Header: trimQuotes(text), Angled: false}, true
		case "system_lib_string":
			text := string(source[c.StartByte():c.EndByte()])
			return Include{Header: trimAngles(text), Angled: true}, true
		}
	}
	return Include{}, false
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func trimAngles(s string) string {
	if len(s) >= 2 && s[0] == '<' && s[len(s)-1] == '>' {
		return s[1 : len(s)-1]
	}
	return s
}

// parseFunctionRaw recovers a function's declared name and renders its
// existing body as a single RawStmt, since reconstructing a fully typed
// statement tree from arbitrary existing C++ is out of scope (spec.md
// §4.5 only specifies the dumper's output shape, not a C++ parser).
func parseFunctionRaw(n *sitter.Node, source []byte) Function {
	fn := Function{RetType: "auto", Name: "parsed"}
	declarator := findChildKind(n, "function_declarator")
	if declarator != nil {
		if ident := findChildKind(declarator, "identifier"); ident != nil {
			fn.Name = string(source[ident.StartByte():ident.EndByte()])
		}
	}
	if retType := findChildKind(n, "primitive_type"); retType != nil {
		fn.RetType = string(source[retType.StartByte():retType.EndByte()])
	}
	if body := findChildKind(n, "compound_statement"); body != nil {
		text := string(source[body.StartByte()+1 : body.EndByte()-1])
		fn.Body.Stmts = append(fn.Body.Stmts, RawStmt{Text: text})
	}
	return fn
}

func findChildKind(n *sitter.Node, kind string) *sitter.Node {
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		c := n.Child(i)
		if c != nil && c.Kind() == kind {
			return c
		}
	}
	return nil
}
