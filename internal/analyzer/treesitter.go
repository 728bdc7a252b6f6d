package analyzer

import (
	"errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/dshills/codecontext/pkg/types"
)

var errSyntax = errors.New("syntax tree contains errors")

// grammars holds the tree-sitter languages available for parsing.
// Languages are immutable and safe to share; parsers are not.
var grammars = map[types.Language]*sitter.Language{
	types.LangPython: sitter.NewLanguage(tree_sitter_python.Language()),
	types.LangJava:   sitter.NewLanguage(tree_sitter_java.Language()),
	types.LangGo:     sitter.NewLanguage(tree_sitter_go.Language()),
}

// ParseTree parses src with the grammar registered for lang.
// The caller must Close the returned tree. A tree is returned together with
// errSyntax when the source contains syntax errors.
func ParseTree(lang types.Language, src []byte) (*sitter.Tree, error) {
	grammar, ok := grammars[lang]
	if !ok {
		return nil, errors.New("no grammar registered for " + string(lang))
	}

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(grammar); err != nil {
		return nil, err
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, errors.New("tree-sitter returned no tree")
	}
	if tree.RootNode().HasError() {
		return tree, errSyntax
	}
	return tree, nil
}

// walk visits node and its named descendants depth-first.
// Returning false from fn skips the node's children.
func walk(node *sitter.Node, fn func(*sitter.Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		walk(node.NamedChild(i), fn)
	}
}

// fieldText returns the text of a named field of node, or ""
func fieldText(node *sitter.Node, field string, src []byte) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return child.Utf8Text(src)
}
