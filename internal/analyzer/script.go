package analyzer

import (
	"regexp"
	"strings"
)

var (
	jsFunctionRe       = regexp.MustCompile(`function\s*\*?\s+(\w+)`)
	jsConstArrowRe     = regexp.MustCompile(`const\s+(\w+)\s*=\s*(?:async\s+)?\(`)
	jsPropertyFuncRe   = regexp.MustCompile(`(\w+)\s*:\s*(?:async\s+)?function`)
	jsAssignedArrowRe  = regexp.MustCompile(`(\w+)\s*=\s*(?:async\s+)?\([^)\n]*\)\s*=>`)
	jsClassRe          = regexp.MustCompile(`class\s+(\w+)`)
	jsInterfaceRe      = regexp.MustCompile(`(?:interface|type)\s+([A-Z]\w*)\s*[={<]`)
	jsImportFromRe     = regexp.MustCompile(`import[^'"\n]*?from\s+['"]([^'"]+)['"]`)
	jsRequireRe        = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	jsSideEffectRe     = regexp.MustCompile(`import\s+['"]([^'"]+)['"]`)
	jsNamedImportRe    = regexp.MustCompile(`import\s*(?:type\s+)?(?:\w+\s*,\s*)?\{([^}]+)\}\s*from\s*['"]([^'"]+)['"]`)
	jsDefaultImportRe  = regexp.MustCompile(`import\s+(\w+)\s*(?:,\s*\{[^}]*\}\s*)?from\s*['"]([^'"]+)['"]`)
	jsNamespaceRe      = regexp.MustCompile(`import\s*\*\s*as\s+(\w+)\s+from\s*['"]([^'"]+)['"]`)
	jsRequireBindingRe = regexp.MustCompile(`(?:const|let|var)\s+(?:\{([^}]+)\}|(\w+))\s*=\s*require\(\s*['"]([^'"]+)['"]\s*\)`)
	jsExportDefaultRe  = regexp.MustCompile(`export\s+default\b`)
	jsExportDeclRe     = regexp.MustCompile(`export\s+(?:declare\s+)?(?:async\s+)?(?:const|let|var|function\*?|class|interface|type|enum|abstract\s+class)\s+(\w+)`)
	jsExportListRe     = regexp.MustCompile(`export\s*\{([^}]+)\}`)
)

// scriptStrategy covers JavaScript and TypeScript with regex heuristics
func scriptStrategy(text string) Symbols {
	var syms Symbols
	for _, re := range []*regexp.Regexp{jsFunctionRe, jsConstArrowRe, jsPropertyFuncRe, jsAssignedArrowRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			syms.Functions = append(syms.Functions, m[1])
		}
	}
	for _, re := range []*regexp.Regexp{jsClassRe, jsInterfaceRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			syms.Classes = append(syms.Classes, m[1])
		}
	}
	for _, re := range []*regexp.Regexp{jsImportFromRe, jsRequireRe, jsSideEffectRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			syms.Imports = append(syms.Imports, m[1])
		}
	}

	syms.ImportedFrom = scriptImportedFrom(text)
	syms.Exports = scriptExports(text)
	return syms
}

// scriptImportedFrom maps each import source to the local names bound from it
func scriptImportedFrom(text string) map[string][]string {
	var syms Symbols
	for _, m := range jsNamedImportRe.FindAllStringSubmatch(text, -1) {
		syms.addImportedFrom(m[2], splitBindings(m[1], " as ", true)...)
	}
	for _, m := range jsDefaultImportRe.FindAllStringSubmatch(text, -1) {
		syms.addImportedFrom(m[2], m[1])
	}
	for _, m := range jsNamespaceRe.FindAllStringSubmatch(text, -1) {
		syms.addImportedFrom(m[2], m[1])
	}
	for _, m := range jsSideEffectRe.FindAllStringSubmatch(text, -1) {
		syms.addImportedFrom(m[1])
	}
	for _, m := range jsRequireBindingRe.FindAllStringSubmatch(text, -1) {
		if m[1] != "" {
			syms.addImportedFrom(m[3], splitBindings(m[1], ":", true)...)
		} else {
			syms.addImportedFrom(m[3], m[2])
		}
	}
	return syms.ImportedFrom
}

// scriptExports returns explicitly exported names. A default export is
// reported as DefaultExport and qualified with the file path by Analyze.
func scriptExports(text string) []string {
	var exports []string
	if jsExportDefaultRe.MatchString(text) {
		exports = append(exports, DefaultExport)
	}
	for _, m := range jsExportDeclRe.FindAllStringSubmatch(text, -1) {
		exports = append(exports, m[1])
	}
	for _, m := range jsExportListRe.FindAllStringSubmatch(text, -1) {
		exports = append(exports, splitBindings(m[1], " as ", false)...)
	}
	return exports
}

// splitBindings splits "a, b as c" style lists. With original set, the name
// before the separator is kept, otherwise the name after it.
func splitBindings(list, sep string, original bool) []string {
	var names []string
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(item), "type "))
		if item == "" {
			continue
		}
		if before, after, ok := strings.Cut(item, sep); ok {
			if original {
				item = before
			} else {
				item = after
			}
		}
		if item = strings.TrimSpace(item); item != "" {
			names = append(names, item)
		}
	}
	return names
}
