package outline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSupportsKnownAndUnknownExtensions(t *testing.T) {
	require.True(t, Supports(".go"))
	require.True(t, Supports(".py"))
	require.True(t, Supports(".tsx"))
	require.False(t, Supports(".md"))
}

func TestExtractGoFunctions(t *testing.T) {
	src := []byte(`package main

func Foo() int {
	return 1
}

type T struct{}

func (t T) Bar() {}
`)
	symbols, err := Extract(".go", src)
	require.NoError(t, err)

	names := map[string]string{}
	for _, s := range symbols {
		names[s.Name] = s.Kind
	}
	require.Equal(t, "function", names["Foo"])
	require.Equal(t, "method", names["Bar"])
}

func TestExtractPythonFunctionsAndClasses(t *testing.T) {
	src := []byte(`def foo():
    pass

class Widget:
    def render(self):
        pass
`)
	symbols, err := Extract(".py", src)
	require.NoError(t, err)

	var sawFoo, sawWidget bool
	for _, s := range symbols {
		if s.Name == "foo" && s.Kind == "function" {
			sawFoo = true
		}
		if s.Name == "Widget" && s.Kind == "class" {
			sawWidget = true
		}
	}
	require.True(t, sawFoo)
	require.True(t, sawWidget)
}

func TestExtractUnknownExtensionErrors(t *testing.T) {
	_, err := Extract(".unknownlang", []byte("whatever"))
	require.Error(t, err)
}

func TestRenderFormatsOneSymbolPerLine(t *testing.T) {
	out := Render([]Symbol{{Kind: "function", Name: "Foo", Line: 3}})
	require.Equal(t, "function Foo:3\n", out)
}
