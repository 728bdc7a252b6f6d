package analyzer

import "regexp"

var (
	htmlCustomElementRe = regexp.MustCompile(`<(\w+-\w+)`)
	htmlComponentRe     = regexp.MustCompile(`<([A-Z]\w+)`)
	htmlScriptSrcRe     = regexp.MustCompile(`(?i)<script[^>]*?src\s*=\s*['"]([^'"]+)['"]`)
	htmlLinkHrefRe      = regexp.MustCompile(`(?i)<link[^>]*?href\s*=\s*['"]([^'"]+)['"]`)

	cssClassSelectorRe = regexp.MustCompile(`\.([a-zA-Z_-][\w-]*)`)
	cssIDSelectorRe    = regexp.MustCompile(`#([a-zA-Z_-][\w-]*)`)
	cssMixinRe         = regexp.MustCompile(`@(?:mixin|function)\s+([a-zA-Z_-][\w-]*)`)
	cssImportRe        = regexp.MustCompile(`@import\s+['"]([^'"]+)['"]`)
	cssImportURLRe     = regexp.MustCompile(`@import\s+url\(\s*['"]?([^'")]+)['"]?\s*\)`)
	cssBlockCommentRe  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	cssDeclarationRe   = regexp.MustCompile(`(?m):[^;{}\n]*;`)
	cssStringRe        = regexp.MustCompile(`'[^'\n]*'|"[^"\n]*"|url\([^)]*\)`)

	remoteAssetRe = regexp.MustCompile(`^(?:[a-z]+:)?//|^data:|^/`)
)

// htmlStrategy extracts custom elements, component tags and linked assets
func htmlStrategy(text string) Symbols {
	var syms Symbols
	for _, re := range []*regexp.Regexp{htmlCustomElementRe, htmlComponentRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			syms.Functions = append(syms.Functions, m[1])
		}
	}
	syms.Classes = classAttributeValues(text)
	for _, re := range []*regexp.Regexp{htmlScriptSrcRe, htmlLinkHrefRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			syms.Imports = append(syms.Imports, m[1])
			if isLocalAsset(m[1]) {
				syms.addImportedFrom(m[1])
			}
		}
	}
	return syms
}

// cssStrategy extracts selectors as classes and mixins as functions
func cssStrategy(text string) Symbols {
	var syms Symbols
	selectors := cssSelectorText(text)
	for _, re := range []*regexp.Regexp{cssClassSelectorRe, cssIDSelectorRe} {
		for _, m := range re.FindAllStringSubmatch(selectors, -1) {
			syms.Classes = append(syms.Classes, m[1])
		}
	}
	for _, m := range cssMixinRe.FindAllStringSubmatch(text, -1) {
		syms.Functions = append(syms.Functions, m[1])
	}
	for _, re := range []*regexp.Regexp{cssImportRe, cssImportURLRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			syms.Imports = append(syms.Imports, m[1])
			if isLocalAsset(m[1]) {
				syms.addImportedFrom(m[1])
			}
		}
	}
	return syms
}

// isLocalAsset reports whether an asset reference points into the project
func isLocalAsset(ref string) bool {
	return ref != "" && !remoteAssetRe.MatchString(ref)
}

// cssSelectorText strips comments, strings and declarations, which would
// otherwise look like id and class selectors (`color: #fff;`, `'./a.css'`).
func cssSelectorText(text string) string {
	text = cssBlockCommentRe.ReplaceAllString(text, "")
	text = cssStringRe.ReplaceAllString(text, "''")
	return cssDeclarationRe.ReplaceAllString(text, ";")
}
