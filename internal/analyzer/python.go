package analyzer

import (
	"regexp"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dshills/codecontext/pkg/types"
)

var (
	pyDefRe        = regexp.MustCompile(`(?m)^[ \t]*(?:async\s+)?def\s+(\w+)`)
	pyClassRe      = regexp.MustCompile(`(?m)^[ \t]*class\s+(\w+)`)
	pyTopLevelRe   = regexp.MustCompile(`(?m)^(?:async\s+def|def|class)\s+(\w+)`)
	pyImportRe     = regexp.MustCompile(`(?m)^[ \t]*import\s+([\w.]+(?:\s*,\s*[\w.]+)*)`)
	pyFromImportRe = regexp.MustCompile(`(?m)^[ \t]*from\s+([\w.]+)\s+import\s+\(?([\w\s,*]+)\)?`)
)

// pythonStrategy walks the tree-sitter syntax tree. Text with syntax errors
// falls back to the regex heuristics.
func pythonStrategy(text string) Symbols {
	src := []byte(text)
	tree, err := ParseTree(types.LangPython, src)
	if tree != nil {
		defer tree.Close()
	}
	if err != nil {
		return pythonRegexStrategy(text)
	}

	var syms Symbols
	root := tree.RootNode()
	walk(root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "function_definition":
			syms.Functions = append(syms.Functions, fieldText(n, "name", src))
		case "class_definition":
			syms.Classes = append(syms.Classes, fieldText(n, "name", src))
		case "import_statement":
			for i := uint(0); i < n.NamedChildCount(); i++ {
				child := n.NamedChild(i)
				switch child.Kind() {
				case "dotted_name":
					syms.Imports = append(syms.Imports, child.Utf8Text(src))
				case "aliased_import":
					syms.Imports = append(syms.Imports, fieldText(child, "name", src))
				}
			}
			return false
		case "import_from_statement":
			syms.addPythonFromImport(n, src)
			return false
		}
		return true
	})

	for i := uint(0); i < root.NamedChildCount(); i++ {
		def := root.NamedChild(i)
		if def.Kind() == "decorated_definition" {
			def = def.ChildByFieldName("definition")
		}
		if def == nil {
			continue
		}
		if def.Kind() == "function_definition" || def.Kind() == "class_definition" {
			syms.addPythonExport(fieldText(def, "name", src))
		}
	}
	return syms
}

// addPythonFromImport records `from module import a, b`
func (s *Symbols) addPythonFromImport(n *sitter.Node, src []byte) {
	module := n.ChildByFieldName("module_name")
	if module == nil {
		return
	}
	source := module.Utf8Text(src)
	s.Imports = append(s.Imports, source)

	var names []string
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child.StartByte() == module.StartByte() {
			continue
		}
		switch child.Kind() {
		case "dotted_name":
			names = append(names, child.Utf8Text(src))
		case "aliased_import":
			names = append(names, fieldText(child, "name", src))
		}
	}
	s.addPythonImportedFrom(source, names)
}

// pythonRegexStrategy is the heuristic extraction used when parsing fails
func pythonRegexStrategy(text string) Symbols {
	var syms Symbols
	for _, m := range pyDefRe.FindAllStringSubmatch(text, -1) {
		syms.Functions = append(syms.Functions, m[1])
	}
	for _, m := range pyClassRe.FindAllStringSubmatch(text, -1) {
		syms.Classes = append(syms.Classes, m[1])
	}
	for _, m := range pyImportRe.FindAllStringSubmatch(text, -1) {
		for _, name := range strings.Split(m[1], ",") {
			syms.Imports = append(syms.Imports, strings.TrimSpace(name))
		}
	}
	for _, m := range pyFromImportRe.FindAllStringSubmatch(text, -1) {
		syms.Imports = append(syms.Imports, m[1])
		var names []string
		for _, name := range strings.Split(m[2], ",") {
			fields := strings.Fields(name)
			if len(fields) > 0 && fields[0] != "*" {
				names = append(names, fields[0])
			}
		}
		syms.addPythonImportedFrom(m[1], names)
	}
	for _, m := range pyTopLevelRe.FindAllStringSubmatch(text, -1) {
		syms.addPythonExport(m[1])
	}
	return syms
}

func (s *Symbols) addPythonExport(name string) {
	if name != "" && !strings.HasPrefix(name, "_") {
		s.Exports = append(s.Exports, name)
	}
}

// addPythonImportedFrom maps relative imports to path-like sources.
// Absolute module imports refer to packages outside the file tree and are
// left to the literal symbol matching of the dependency graph.
func (s *Symbols) addPythonImportedFrom(module string, names []string) {
	if !strings.HasPrefix(module, ".") {
		return
	}
	rest := strings.TrimLeft(module, ".")
	if rest != "" {
		s.addImportedFrom(pythonRelativeSource(module), names...)
		return
	}
	// `from . import utils` imports sibling modules
	for _, name := range names {
		s.addImportedFrom(pythonRelativeSource(module+name), name)
	}
}

// pythonRelativeSource converts ".pkg.mod" to "./pkg/mod" and "..mod" to "../mod"
func pythonRelativeSource(module string) string {
	dots := len(module) - len(strings.TrimLeft(module, "."))
	prefix := "./"
	if dots > 1 {
		prefix = strings.Repeat("../", dots-1)
	}
	rest := strings.ReplaceAll(module[dots:], ".", "/")
	if rest == "" {
		return strings.TrimSuffix(prefix, "/")
	}
	return prefix + rest
}
