package analyzer

import (
	"regexp"
	"strings"

	"github.com/dshills/codecontext/pkg/types"
)

var complexityKeywords = map[types.Language][]string{
	types.LangPython:     {"if", "elif", "else", "for", "while", "try", "except", "with"},
	types.LangJavaScript: {"if", "else", "for", "while", "try", "catch", "switch", "case"},
	types.LangTypeScript: {"if", "else", "for", "while", "try", "catch", "switch", "case"},
	types.LangGo:         {"if", "else", "for", "switch", "case", "defer", "go", "select"},
	types.LangJava:       {"if", "else", "for", "while", "try", "catch", "switch", "case"},
	types.LangHTML:       {"script", "style", "form", "table"},
	types.LangCSS:        {"@media", "@keyframes", "@supports", ":hover", ":active"},
}

var defaultComplexityKeywords = []string{"if", "else", "for", "while", "try", "catch"}

// complexityPatterns holds one compiled alternation per language
var complexityPatterns = func() map[types.Language]*regexp.Regexp {
	patterns := make(map[types.Language]*regexp.Regexp, len(complexityKeywords)+1)
	for lang, words := range complexityKeywords {
		patterns[lang] = keywordPattern(words)
	}
	patterns[types.LangUnknown] = keywordPattern(defaultComplexityKeywords)
	return patterns
}()

// keywordPattern builds a case-insensitive pattern matching whole keywords.
// Keywords starting with punctuation only need a boundary on the right.
func keywordPattern(words []string) *regexp.Regexp {
	alts := make([]string, 0, len(words))
	for _, w := range words {
		q := regexp.QuoteMeta(w)
		if isWordByte(w[0]) {
			q = `\b` + q
		}
		alts = append(alts, q+`\b`)
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// Complexity returns the number of control-flow keyword occurrences in text
func Complexity(text string, lang types.Language) float64 {
	re, ok := complexityPatterns[lang]
	if !ok {
		re = complexityPatterns[types.LangUnknown]
	}
	return float64(len(re.FindAllStringIndex(text, -1)))
}
