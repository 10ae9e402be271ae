// Package outline implements a generic per-language symbol outline
// extractor used to enrich host mounts (SPEC_FULL.md §C). It is
// additive sugar on top of internal/mount's §4.2 contract: reading a
// host-mounted source file's sibling ".outline" node runs the matching
// tree-sitter grammar and lists the declarations it recognizes at any
// nesting depth, without
// changing what mount/unmount/mount.list report.
//
// Grounded on the teacher's per-language grammar registration in
// _examples/standardbeagle-lci/internal/parser/parser_language_setup.go
// and its extractor family under internal/symbollinker.
package outline

import (
	"fmt"
	"strings"
	"unsafe"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tscsharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tsgo "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tsjava "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tsjavascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tsphp "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tspython "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tsrust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tstypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
	tszig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"

	"github.com/standardbeagle/vfsboot/internal/vferrors"
)

// Symbol is one extracted declaration.
type Symbol struct {
	Kind string // "function", "class", "method", "struct", "const", ...
	Name string
	Line uint
}

// grammar pairs a tree-sitter language with the node kinds this package
// treats as declarations, and the child slot holding the name.
type grammar struct {
	lang         func() unsafe_Pointer
	declKinds    map[string]string // node kind -> Symbol.Kind
	nameChildren []string          // candidate child kinds carrying the identifier
}

// unsafe_Pointer matches go-tree-sitter's *C.TSLanguage return
// convention (each grammar package's Language() returns this C
// pointer type, which sitter.NewLanguage wraps).
type unsafe_Pointer = unsafe.Pointer

var registry = map[string]grammar{
	".go":   {lang: wrap(tsgo.Language), declKinds: map[string]string{"function_declaration": "function", "method_declaration": "method", "type_declaration": "type"}, nameChildren: []string{"identifier", "field_identifier", "type_identifier"}},
	".java": {lang: wrap(tsjava.Language), declKinds: map[string]string{"method_declaration": "method", "class_declaration": "class", "interface_declaration": "interface"}, nameChildren: []string{"identifier"}},
	".js":   {lang: wrap(tsjavascript.Language), declKinds: map[string]string{"function_declaration": "function", "class_declaration": "class", "method_definition": "method"}, nameChildren: []string{"identifier", "property_identifier"}},
	".jsx":  {lang: wrap(tsjavascript.Language), declKinds: map[string]string{"function_declaration": "function", "class_declaration": "class", "method_definition": "method"}, nameChildren: []string{"identifier", "property_identifier"}},
	".py":   {lang: wrap(tspython.Language), declKinds: map[string]string{"function_definition": "function", "class_definition": "class"}, nameChildren: []string{"identifier"}},
	".rs":   {lang: wrap(tsrust.Language), declKinds: map[string]string{"function_item": "function", "struct_item": "struct", "impl_item": "impl", "enum_item": "enum"}, nameChildren: []string{"identifier", "type_identifier"}},
	".php":  {lang: wrap(tsphp.LanguagePHP), declKinds: map[string]string{"function_definition": "function", "class_declaration": "class", "method_declaration": "method"}, nameChildren: []string{"name"}},
	".cs":   {lang: wrap(tscsharp.Language), declKinds: map[string]string{"method_declaration": "method", "class_declaration": "class"}, nameChildren: []string{"identifier"}},
	".zig":  {lang: wrap(tszig.Language), declKinds: map[string]string{"function_declaration": "function"}, nameChildren: []string{"identifier"}},
}

func init() {
	// TypeScript and TSX share one grammar entry point in the teacher's
	// own setup (parser_language_setup.go's setupTypeScript registers
	// the same *Parser for both ".ts" and ".tsx").
	registry[".ts"] = grammar{lang: wrap(tstypescript.LanguageTypescript), declKinds: registry[".js"].declKinds, nameChildren: registry[".js"].nameChildren}
	registry[".tsx"] = registry[".ts"]
}

func wrap(f func() unsafe_Pointer) func() unsafe_Pointer { return f }

// Supports reports whether ext (including the leading dot) has a
// registered grammar.
func Supports(ext string) bool {
	_, ok := registry[ext]
	return ok
}

// Extract parses source with the grammar registered for ext and returns
// every top-level-or-nested declaration it recognizes. Best effort: an
// extension with no grammar, or a parse that yields no tree, is reported
// as a ParseError and a grammar it can't load as an ExternalFailure,
// rather than panicking (mirrors spec.md §4.2's "best effort" mount
// symbol enumeration).
func Extract(ext string, source []byte) ([]Symbol, error) {
	g, ok := registry[ext]
	if !ok {
		return nil, vferrors.ParseError("outline.extract", fmt.Sprintf("no grammar registered for %q", ext))
	}
	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(sitter.NewLanguage(g.lang())); err != nil {
		return nil, vferrors.ExternalFailure("outline.extract", "failed to load grammar", err)
	}
	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, vferrors.ParseError("outline.extract", "parser returned no tree")
	}
	defer tree.Close()

	var symbols []Symbol
	walk(tree.RootNode(), source, g, &symbols)
	return symbols, nil
}

func walk(n *sitter.Node, source []byte, g grammar, out *[]Symbol) {
	if n == nil {
		return
	}
	if kind, ok := g.declKinds[n.Kind()]; ok {
		if name, found := findName(n, source, g.nameChildren); found {
			line := lineOf(source, n.StartByte())
			*out = append(*out, Symbol{Kind: kind, Name: name, Line: line})
		}
	}
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		walk(n.Child(i), source, g, out)
	}
}

func findName(n *sitter.Node, source []byte, candidates []string) (string, bool) {
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		for _, want := range candidates {
			if c.Kind() == want {
				return string(source[c.StartByte():c.EndByte()]), true
			}
		}
	}
	return "", false
}

func lineOf(source []byte, offset uint) uint {
	var line uint = 1
	for i := uint(0); i < offset && int(i) < len(source); i++ {
		if source[i] == '\n' {
			line++
		}
	}
	return line
}

// Render formats symbols one per line as "kind name:line", the textual
// form a ".outline" node's read() returns.
func Render(symbols []Symbol) string {
	var b strings.Builder
	for _, s := range symbols {
		fmt.Fprintf(&b, "%s %s:%d\n", s.Kind, s.Name, s.Line)
	}
	return b.String()
}
