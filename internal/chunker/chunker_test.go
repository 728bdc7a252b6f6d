package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codecontext/pkg/types"
)

// assertCoverage checks that fragments tile the file exactly once
func assertCoverage(t *testing.T, content string, frags []*types.Fragment) {
	t.Helper()
	require.NotEmpty(t, frags)
	lines := strings.Split(content, "\n")

	assert.Equal(t, 0, frags[0].StartLine)
	for i := 1; i < len(frags); i++ {
		assert.Equal(t, frags[i-1].EndLine+1, frags[i].StartLine, "gap or overlap before fragment %d", i)
	}
	assert.Equal(t, len(lines)-1, frags[len(frags)-1].EndLine)

	for _, f := range frags {
		assert.Equal(t, strings.Join(lines[f.StartLine:f.EndLine+1], "\n"), f.Content)
		assert.NoError(t, f.Validate())
	}
}

func kinds(frags []*types.Fragment) []types.FragmentKind {
	out := make([]types.FragmentKind, len(frags))
	for i, f := range frags {
		out[i] = f.Kind
	}
	return out
}

const pythonTwoFuncs = `import os


def calculate_total(items):
    """Sum prices."""
    return sum(i.price for i in items)


def apply_discount(total, rate):
    return total * (1 - rate)
`

func TestChunkFile_PythonFunctions(t *testing.T) {
	frags := New().ChunkFile("shop/pricing.py", pythonTwoFuncs)
	assertCoverage(t, pythonTwoFuncs, frags)

	require.Equal(t, []types.FragmentKind{types.KindModule, types.KindFunction, types.KindFunction}, kinds(frags))
	assert.Equal(t, 3, frags[1].StartLine)
	assert.Equal(t, 7, frags[1].EndLine)
	assert.Equal(t, []string{"calculate_total"}, frags[1].Functions)
	assert.Equal(t, []string{"apply_discount"}, frags[2].Functions)
	assert.Contains(t, frags[1].Description, "containing function(s): calculate_total")
	assert.Equal(t, types.LangPython, frags[1].Language)
}

func TestChunkFile_PythonDecoratorsAndClasses(t *testing.T) {
	src := "@app.route(\"/\")\ndef index():\n    return \"ok\"\n\nclass View:\n    def get(self):\n        return 1\n"
	frags := New().ChunkFile("views.py", src)
	assertCoverage(t, src, frags)

	require.Equal(t, []types.FragmentKind{types.KindFunction, types.KindClass}, kinds(frags))
	assert.True(t, strings.HasPrefix(frags[0].Content, "@app.route"))
	assert.Equal(t, []string{"View"}, frags[1].Classes)
	assert.Contains(t, frags[1].Functions, "get")
}

func TestChunkFile_PythonSyntaxErrorUsesRegex(t *testing.T) {
	src := "def ok():\n    return 1\n\ndef broken(:\n    pass\n"
	frags := New().ChunkFile("bad.py", src)
	assertCoverage(t, src, frags)

	assert.Equal(t, []types.FragmentKind{types.KindFunction, types.KindFunction}, kinds(frags))
}

func TestChunkFile_PythonWithoutDefinitionsUsesWindows(t *testing.T) {
	src := "import os\nprint(os.getcwd())\n"
	frags := New().ChunkFile("script.py", src)
	assertCoverage(t, src, frags)

	require.Len(t, frags, 1)
	assert.Equal(t, types.KindBlock, frags[0].Kind)
}

const scriptSource = `import React from 'react';

export function Button({ label }) {
  return <button className="btn">{label}</button>;
}

const x = 5;

export default class Card extends React.Component {
  render() {
    return <div />;
  }
}
`

func TestChunkFile_JavaScript(t *testing.T) {
	frags := New().ChunkFile("src/Button.jsx", scriptSource)
	assertCoverage(t, scriptSource, frags)

	require.Equal(t, []types.FragmentKind{
		types.KindModule, types.KindFunction, types.KindFunction, types.KindClass,
	}, kinds(frags))
	assert.Equal(t, 2, frags[1].StartLine)
	assert.Equal(t, 5, frags[1].EndLine)
	assert.Equal(t, []string{"btn"}, frags[1].CSSClasses)
	assert.Contains(t, frags[1].UIComponents, "Button")
	assert.Contains(t, frags[3].ExportedSymbols, "src/Button.jsx:default")
}

const goSource = `package main

import "fmt"

// Greeter says hello.
type Greeter struct {
	Name string
}

// Greet prints a greeting.
func (g Greeter) Greet() {
	fmt.Println("hi", g.Name)
}

func main() {
	Greeter{Name: "x"}.Greet()
}
`

func TestChunkFile_Go(t *testing.T) {
	frags := New().ChunkFile("cmd/main.go", goSource)
	assertCoverage(t, goSource, frags)

	require.Equal(t, []types.FragmentKind{
		types.KindModule, types.KindClass, types.KindFunction, types.KindFunction,
	}, kinds(frags))
	assert.True(t, strings.HasPrefix(frags[1].Content, "// Greeter says hello."))
	assert.Equal(t, []string{"Greeter"}, frags[1].Classes)
	assert.Contains(t, frags[1].Description, "containing type(s): Greeter")
	assert.Equal(t, []string{"Greet"}, frags[2].Functions)
	assert.Contains(t, frags[0].Imports, "fmt")
}

func TestChunkFile_GoSyntaxErrorUsesBraces(t *testing.T) {
	src := "package x\n\nfunc A() {\n\treturn\n}\n\nfunc B( {\n"
	frags := New().ChunkFile("x.go", src)
	assertCoverage(t, src, frags)

	assert.Equal(t, types.KindFunction, frags[1].Kind)
	assert.Equal(t, 2, frags[1].StartLine)
}

const htmlSource = `<!DOCTYPE html>
<html>
<head>
  <title>T</title>
</head>
<body>
  <header class="top">Hi</header>
</body>
</html>
`

func TestChunkFile_HTML(t *testing.T) {
	frags := New().ChunkFile("index.html", htmlSource)
	assertCoverage(t, htmlSource, frags)

	require.Equal(t, []types.FragmentKind{
		types.KindModule, types.KindMarkupSection, types.KindMarkupSection, types.KindModule,
	}, kinds(frags))
	assert.Equal(t, 2, frags[1].StartLine)
	assert.Equal(t, 4, frags[1].EndLine)
	assert.Equal(t, 7, frags[2].EndLine)
	assert.Contains(t, frags[2].Description, "HTML section")
}

func TestChunkFile_HTMLWithoutClosingTagUsesFallback(t *testing.T) {
	var b strings.Builder
	b.WriteString("<section>\n")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "<p>%d</p>\n", i)
	}
	src := b.String()

	frags := New().ChunkFile("page.html", src)
	assertCoverage(t, src, frags)
	assert.Equal(t, types.KindMarkupSection, frags[0].Kind)
	assert.Equal(t, markupFallbackLines-1, frags[0].EndLine)
}

const cssSource = `@import './base.css';

.btn,
.btn-primary {
  color: red;
}

@media (max-width: 600px) {
  .btn { padding: 0; }
}
`

func TestChunkFile_CSS(t *testing.T) {
	frags := New().ChunkFile("styles/button.css", cssSource)
	assertCoverage(t, cssSource, frags)

	require.Equal(t, []types.FragmentKind{
		types.KindStyleRule, types.KindStyleRule, types.KindStyleRule,
	}, kinds(frags))
	assert.Equal(t, 2, frags[1].StartLine)
	assert.ElementsMatch(t, []string{"btn", "btn-primary"}, frags[1].CSSClasses)
	assert.Contains(t, frags[1].Description, "CSS rule")
}

func TestChunkFile_GenericWindows(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	src := strings.TrimSuffix(b.String(), "\n")

	frags := New().ChunkFile("notes.md", src)
	assertCoverage(t, src, frags)

	require.Len(t, frags, 3)
	assert.Equal(t, 49, frags[0].EndLine)
	assert.Empty(t, frags[0].ContextBefore)
	assert.Equal(t, "line 45\nline 46\nline 47\nline 48\nline 49\n", frags[1].ContextBefore)
	for _, f := range frags {
		assert.Equal(t, types.KindBlock, f.Kind)
	}
}

func TestChunkFile_GenericWindowsRespectCharCap(t *testing.T) {
	line := strings.Repeat("x", 1000)
	src := strings.Repeat(line+"\n", 20)

	frags := New().ChunkFile("blob.txt", src)
	assertCoverage(t, src, frags)
	for _, f := range frags {
		assert.LessOrEqual(t, len(f.Content), MaxFragmentChars)
	}
}

func TestChunkFile_WithWindowOption(t *testing.T) {
	src := strings.Repeat("a\n", 9) + "a"
	frags := New(WithWindow(4, 1)).ChunkFile("a.txt", src)
	assertCoverage(t, src, frags)
	assert.Len(t, frags, 3)
	assert.Equal(t, "a\n", frags[1].ContextBefore)
}

func TestChunkFile_BlankContent(t *testing.T) {
	assert.Empty(t, New().ChunkFile("empty.py", ""))
	assert.Empty(t, New().ChunkFile("blank.go", "\n\n   \n"))
}

func TestChunkFile_DeterministicIDs(t *testing.T) {
	c := New()
	first := c.ChunkFile("shop/pricing.py", pythonTwoFuncs)
	second := c.ChunkFile("shop/pricing.py", pythonTwoFuncs)

	require.Equal(t, len(first), len(second))
	seen := map[string]bool{}
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.False(t, seen[first[i].ID], "duplicate id")
		seen[first[i].ID] = true
	}
}

func TestChunkFile_CoverageAcrossLanguages(t *testing.T) {
	inputs := map[string]string{
		"a.py":   pythonTwoFuncs + "\n\n# trailing comment\n",
		"b.jsx":  scriptSource,
		"c.go":   goSource,
		"d.html": htmlSource,
		"e.css":  cssSource,
		"f.ts":   "\n\ninterface A {\n  x: number\n}\n\nlet y = 1\n",
		"g.java": "package a;\n\npublic class A {\n  void f() {}\n}\n",
		"h.rs":   "use std::io;\n\nfn main() {\n}\n",
		"i.yaml": "a: 1\nb: 2\n",
		"j.css":  ".a { color: red;\n",
	}
	for name, src := range inputs {
		t.Run(name, func(t *testing.T) {
			assertCoverage(t, src, New().ChunkFile(name, src))
		})
	}
}

func TestDescribe(t *testing.T) {
	a := types.Analysis{
		Language:     types.LangPython,
		Functions:    []string{"foo", "bar", "baz", "qux"},
		Imports:      []string{"os"},
		UIComponents: []string{"Nav"},
	}
	got := Describe("src/app.py", "def foo():\n  pass", types.KindFunction, a)
	assert.Equal(t,
		"Code from app.py. containing function(s): foo, bar, baz. UI components: Nav. imports: os. in python. Content: def foo():   pass",
		got)

	long := strings.Repeat("y", 150)
	assert.True(t, strings.HasSuffix(Describe("a.txt", long, types.KindBlock, types.Analysis{Language: types.LangText}), "..."))
	assert.Contains(t, Describe("a.py", "x = 1", types.KindModule, types.Analysis{Language: types.LangPython}), "module-level code")
}
