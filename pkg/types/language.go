package types

// Language is the tag detected from a file extension
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangGo         Language = "go"
	LangJava       Language = "java"
	LangRust       Language = "rust"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangRuby       Language = "ruby"
	LangPHP        Language = "php"
	LangHTML       Language = "html"
	LangCSS        Language = "css"
	LangJSON       Language = "json"
	LangYAML       Language = "yaml"
	LangXML        Language = "xml"
	LangSQL        Language = "sql"
	LangMarkdown   Language = "markdown"
	LangText       Language = "text"
	LangUnknown    Language = "unknown"
)

// IsScript reports whether the language belongs to the JavaScript family
func (l Language) IsScript() bool {
	return l == LangJavaScript || l == LangTypeScript
}
