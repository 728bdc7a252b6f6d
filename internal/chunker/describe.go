package chunker

import (
	"path"
	"strings"
	"unicode/utf8"

	"github.com/dshills/codecontext/pkg/types"
)

const (
	previewChars    = 100
	describeSymbols = 3
)

// Describe generates the natural-language summary embedded alongside a
// fragment, so retrieval can match on intent and not just code tokens.
func Describe(filePath, text string, kind types.FragmentKind, a types.Analysis) string {
	parts := []string{"Code from " + path.Base(filePath)}

	switch {
	case kind == types.KindFunction && len(a.Functions) > 0:
		parts = append(parts, "containing function(s): "+head(a.Functions))
	case kind == types.KindClass && len(a.Classes) > 0 && a.Language == types.LangGo:
		parts = append(parts, "containing type(s): "+head(a.Classes))
	case kind == types.KindClass && len(a.Classes) > 0:
		parts = append(parts, "containing class(es): "+head(a.Classes))
	case kind == types.KindModule:
		parts = append(parts, "module-level code")
	case kind == types.KindMarkupSection:
		parts = append(parts, "HTML section")
	case kind == types.KindStyleRule:
		parts = append(parts, "CSS rule")
	}

	if len(a.UIComponents) > 0 {
		parts = append(parts, "UI components: "+head(a.UIComponents))
	}
	if len(a.Imports) > 0 {
		parts = append(parts, "imports: "+head(a.Imports))
	}
	parts = append(parts, "in "+string(a.Language))
	parts = append(parts, "Content: "+preview(text))

	return strings.Join(parts, ". ")
}

func head(items []string) string {
	return strings.Join(items[:min(len(items), describeSymbols)], ", ")
}

// preview returns the first characters of the trimmed text on one line
func preview(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= previewChars {
		return strings.ReplaceAll(text, "\n", " ")
	}
	runes := []rune(text)
	return strings.ReplaceAll(string(runes[:previewChars]), "\n", " ") + "..."
}
