package analyzer

import (
	"log/slog"
	"path"
	"sort"

	"github.com/dshills/codecontext/pkg/types"
)

// DefaultExport is the marker a strategy reports for an anonymous default
// export. Analyze rewrites it to "<file>:default".
const DefaultExport = "default"

// Symbols is the output of a language strategy
type Symbols struct {
	Functions    []string
	Classes      []string
	Imports      []string
	Exports      []string
	ImportedFrom map[string][]string
}

// addImportedFrom records names bound from source. A source with no names is
// still recorded so that it produces a dependency edge.
func (s *Symbols) addImportedFrom(source string, names ...string) {
	if source == "" {
		return
	}
	if s.ImportedFrom == nil {
		s.ImportedFrom = make(map[string][]string)
	}
	s.ImportedFrom[source] = append(s.ImportedFrom[source], names...)
}

// Strategy extracts symbols from text. Strategies are pure functions and
// share no state, so they may run concurrently.
type Strategy func(text string) Symbols

// strategies selects the extraction strategy per language
var strategies = map[types.Language]Strategy{
	types.LangPython:     pythonStrategy,
	types.LangGo:         goStrategy,
	types.LangJava:       javaStrategy,
	types.LangJavaScript: scriptStrategy,
	types.LangTypeScript: scriptStrategy,
	types.LangHTML:       htmlStrategy,
	types.LangCSS:        cssStrategy,
	types.LangJSON:       emptyStrategy,
	types.LangYAML:       emptyStrategy,
	types.LangMarkdown:   emptyStrategy,
	types.LangText:       emptyStrategy,
}

// StrategyFor returns the extraction strategy registered for lang
func StrategyFor(lang types.Language) Strategy {
	if s, ok := strategies[lang]; ok {
		return s
	}
	return genericStrategy
}

// Analyze runs static analysis over text taken from filePath.
// It never fails: a strategy that panics degrades to empty symbol lists.
func Analyze(filePath, text string) types.Analysis {
	lang := DetectLanguage(filePath)
	syms := safeExtract(filePath, lang, text)

	exports := make([]string, 0, len(syms.Exports))
	for _, e := range syms.Exports {
		if e == DefaultExport {
			e = filePath + ":" + DefaultExport
		}
		exports = append(exports, e)
	}

	var importedFrom map[string][]string
	if len(syms.ImportedFrom) > 0 {
		importedFrom = make(map[string][]string, len(syms.ImportedFrom))
		for src, names := range syms.ImportedFrom {
			importedFrom[src] = unique(names)
		}
	}

	return types.Analysis{
		Language:        lang,
		Functions:       unique(syms.Functions),
		Classes:         unique(syms.Classes),
		Imports:         unique(syms.Imports),
		ExportedSymbols: unique(exports),
		ImportedFrom:    importedFrom,
		UIComponents:    sorted(UIComponents(text, lang)),
		CSSClasses:      CSSClasses(text, lang),
		DOMIDs:          DOMIDs(text),
		ComplexityScore: Complexity(text, lang),
	}
}

// safeExtract runs the language strategy and recovers from panics
func safeExtract(filePath string, lang types.Language, text string) (syms Symbols) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("symbol extraction failed", "file", path.Base(filePath), "language", lang, "panic", r)
			syms = Symbols{}
		}
	}()
	return StrategyFor(lang)(text)
}

// unique removes empty and duplicate entries, keeping first occurrences
func unique(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it == "" {
			continue
		}
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

func sorted(items []string) []string {
	sort.Strings(items)
	return items
}
