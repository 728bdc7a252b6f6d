package analyzer

import (
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strings"
)

var (
	goFuncRe   = regexp.MustCompile(`(?m)^\s*func\s+(?:\([^)]*\)\s*)?([A-Za-z_]\w*)`)
	goTypeRe   = regexp.MustCompile(`(?m)^\s*type\s+([A-Za-z_]\w*)`)
	goImportRe = regexp.MustCompile(`(?m)^\s*(?:import\s+)?(?:[A-Za-z_.]\w*\s+)?"([^"]+)"`)
)

// goStrategy extracts symbols with the standard library parser.
// Fragments rarely carry a package clause, so one is synthesized when the
// first attempt fails.
func goStrategy(text string) Symbols {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", text, parser.SkipObjectResolution)
	if err != nil && !strings.HasPrefix(strings.TrimSpace(text), "package ") {
		file, err = parser.ParseFile(fset, "", "package fragment\n"+text, parser.SkipObjectResolution)
	}
	if err != nil || file == nil {
		return goRegexStrategy(text)
	}

	ex := &goExtractor{}
	for _, imp := range file.Imports {
		ex.syms.Imports = append(ex.syms.Imports, strings.Trim(imp.Path.Value, `"`))
	}
	for _, decl := range file.Decls {
		ex.visitDecl(decl)
	}
	return ex.syms
}

// goExtractor collects top-level declarations from a parsed file
type goExtractor struct {
	syms Symbols
}

// visitDecl records function, method and type declarations
func (e *goExtractor) visitDecl(decl ast.Decl) {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		e.syms.Functions = append(e.syms.Functions, d.Name.Name)
		// Methods are reachable through their receiver type, not exported on their own
		if d.Recv == nil && token.IsExported(d.Name.Name) {
			e.syms.Exports = append(e.syms.Exports, d.Name.Name)
		}
	case *ast.GenDecl:
		if d.Tok != token.TYPE {
			return
		}
		for _, spec := range d.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			e.syms.Classes = append(e.syms.Classes, ts.Name.Name)
			if token.IsExported(ts.Name.Name) {
				e.syms.Exports = append(e.syms.Exports, ts.Name.Name)
			}
		}
	}
}

// goRegexStrategy is the heuristic fallback for Go text that does not parse
func goRegexStrategy(text string) Symbols {
	var syms Symbols
	for _, m := range goFuncRe.FindAllStringSubmatch(text, -1) {
		syms.Functions = append(syms.Functions, m[1])
	}
	for _, m := range goTypeRe.FindAllStringSubmatch(text, -1) {
		syms.Classes = append(syms.Classes, m[1])
		if token.IsExported(m[1]) {
			syms.Exports = append(syms.Exports, m[1])
		}
	}
	if strings.Contains(text, "import") {
		for _, m := range goImportRe.FindAllStringSubmatch(importSection(text), -1) {
			syms.Imports = append(syms.Imports, m[1])
		}
	}
	return syms
}

// importSection returns the text of import declarations only
func importSection(text string) string {
	var b strings.Builder
	inBlock := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
		case inBlock && trimmed == ")":
			inBlock = false
		case inBlock || strings.HasPrefix(trimmed, "import "):
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
