package analyzer

import (
	"regexp"
	"strings"

	"github.com/dshills/codecontext/pkg/types"
)

var (
	jsxComponentRe    = regexp.MustCompile(`<([A-Z]\w+)`)
	classComponentRe  = regexp.MustCompile(`class\s+(\w+)\s+extends\s+(?:React\.)?(?:Pure)?Component`)
	funcComponentRe   = regexp.MustCompile(`(?:function|const)\s+([A-Z]\w+)\s*(?:=|\()`)
	customElementRe   = regexp.MustCompile(`<([a-z]+-[a-z]+)`)
	classAttributeRe  = regexp.MustCompile(`\b(?:className|class)\s*=\s*['"{]\s*['"]?([^'"}]+)['"]`)
	idAttributeRe     = regexp.MustCompile(`\bid\s*=\s*['"]([^'"]+)['"]`)
	cssSelectorNameRe = regexp.MustCompile(`\.([a-zA-Z_-][\w-]*)`)
)

// UIComponents returns component names rendered or declared in text
func UIComponents(text string, lang types.Language) []string {
	var components []string
	switch {
	case lang.IsScript():
		for _, re := range []*regexp.Regexp{jsxComponentRe, classComponentRe, funcComponentRe} {
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				components = append(components, m[1])
			}
		}
	case lang == types.LangHTML:
		for _, m := range customElementRe.FindAllStringSubmatch(text, -1) {
			components = append(components, m[1])
		}
	}
	return unique(components)
}

// classAttributeValues returns individual class names from class and
// className attributes
func classAttributeValues(text string) []string {
	var classes []string
	for _, m := range classAttributeRe.FindAllStringSubmatch(text, -1) {
		classes = append(classes, strings.Fields(m[1])...)
	}
	return classes
}

// CSSClasses returns class names referenced by markup in text. For style
// sheets the class selectors defined by text are returned instead.
func CSSClasses(text string, lang types.Language) []string {
	if lang == types.LangCSS {
		return StyleSheetClasses(text)
	}
	return unique(classAttributeValues(text))
}

// StyleSheetClasses returns the class names defined by selectors in a style sheet
func StyleSheetClasses(text string) []string {
	selectors := cssSelectorText(text)
	var classes []string
	for _, m := range cssSelectorNameRe.FindAllStringSubmatch(selectors, -1) {
		classes = append(classes, m[1])
	}
	return unique(classes)
}

// DOMIDs returns element ids assigned in markup
func DOMIDs(text string) []string {
	var ids []string
	for _, m := range idAttributeRe.FindAllStringSubmatch(text, -1) {
		ids = append(ids, m[1])
	}
	return unique(ids)
}
