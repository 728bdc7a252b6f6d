package types

// Analysis is the output of static analysis over one piece of text
type Analysis struct {
	Language Language

	Functions       []string
	Classes         []string
	Imports         []string
	ExportedSymbols []string
	ImportedFrom    map[string][]string

	UIComponents []string
	CSSClasses   []string
	DOMIDs       []string

	ComplexityScore float64
}
