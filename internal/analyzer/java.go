package analyzer

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dshills/codecontext/pkg/types"
)

var javaTypeKinds = map[string]bool{
	"class_declaration":           true,
	"interface_declaration":       true,
	"enum_declaration":            true,
	"record_declaration":          true,
	"annotation_type_declaration": true,
}

// javaStrategy walks the tree-sitter Java tree. Trees with errors are still
// walked since tree-sitter recovers most declarations.
func javaStrategy(text string) Symbols {
	src := []byte(text)
	tree, _ := ParseTree(types.LangJava, src)
	if tree == nil {
		return genericStrategy(text)
	}
	defer tree.Close()

	var syms Symbols
	root := tree.RootNode()
	walk(root, func(n *sitter.Node) bool {
		kind := n.Kind()
		switch {
		case kind == "method_declaration" || kind == "constructor_declaration":
			syms.Functions = append(syms.Functions, fieldText(n, "name", src))
		case javaTypeKinds[kind]:
			syms.Classes = append(syms.Classes, fieldText(n, "name", src))
		case kind == "import_declaration":
			imp := strings.TrimSpace(n.Utf8Text(src))
			imp = strings.TrimPrefix(imp, "import")
			imp = strings.TrimSpace(strings.TrimSuffix(imp, ";"))
			imp = strings.TrimSpace(strings.TrimPrefix(imp, "static "))
			syms.Imports = append(syms.Imports, imp)
			return false
		}
		return true
	})

	for i := uint(0); i < root.NamedChildCount(); i++ {
		decl := root.NamedChild(i)
		if javaTypeKinds[decl.Kind()] {
			if name := fieldText(decl, "name", src); name != "" {
				syms.Exports = append(syms.Exports, name)
			}
		}
	}
	return syms
}
