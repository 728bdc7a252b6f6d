package analyzer

import (
	"path/filepath"
	"strings"

	"github.com/dshills/codecontext/pkg/types"
)

// extensionTable maps lower-cased file extensions to language tags
var extensionTable = map[string]types.Language{
	".py":   types.LangPython,
	".js":   types.LangJavaScript,
	".jsx":  types.LangJavaScript,
	".mjs":  types.LangJavaScript,
	".cjs":  types.LangJavaScript,
	".ts":   types.LangTypeScript,
	".tsx":  types.LangTypeScript,
	".go":   types.LangGo,
	".java": types.LangJava,
	".rs":   types.LangRust,
	".c":    types.LangC,
	".h":    types.LangC,
	".cpp":  types.LangCPP,
	".cc":   types.LangCPP,
	".hpp":  types.LangCPP,
	".rb":   types.LangRuby,
	".php":  types.LangPHP,
	".html": types.LangHTML,
	".htm":  types.LangHTML,
	".css":  types.LangCSS,
	".scss": types.LangCSS,
	".sass": types.LangCSS,
	".less": types.LangCSS,
	".json": types.LangJSON,
	".yaml": types.LangYAML,
	".yml":  types.LangYAML,
	".xml":  types.LangXML,
	".sql":  types.LangSQL,
	".md":   types.LangMarkdown,
	".txt":  types.LangText,
}

// DetectLanguage returns the language tag for a file path based on its extension
func DetectLanguage(path string) types.Language {
	if lang, ok := extensionTable[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return types.LangUnknown
}

// IsStyleSheet reports whether path is a style sheet
func IsStyleSheet(path string) bool {
	return DetectLanguage(path) == types.LangCSS
}

// IsScriptFile reports whether path belongs to the JavaScript family
func IsScriptFile(path string) bool {
	return DetectLanguage(path).IsScript()
}
