package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// FragmentKind represents the structural role of a fragment
type FragmentKind string

const (
	KindFunction      FragmentKind = "function"
	KindClass         FragmentKind = "class"
	KindModule        FragmentKind = "module"
	KindMarkupSection FragmentKind = "markup_section"
	KindStyleRule     FragmentKind = "style_rule"
	KindBlock         FragmentKind = "block"
)

// IDContentPrefix is the number of content bytes mixed into a fragment id
const IDContentPrefix = 100

// CharsPerToken is the heuristic used for every token estimate
const CharsPerToken = 4

// Fragment is the atomic retrievable unit: a span of a source file plus the
// metadata extracted from it.
type Fragment struct {
	// Identification
	ID       string
	FilePath string // Relative to project root, slash separated

	// Content
	Content       string
	ContextBefore string // Overlap lines carried from the previous window

	// Location (0-based, inclusive)
	StartLine int
	EndLine   int

	// Metadata
	Kind        FragmentKind
	Language    Language
	Description string

	Functions       []string
	Classes         []string
	Imports         []string
	ExportedSymbols []string
	ImportedFrom    map[string][]string

	UIComponents []string
	CSSClasses   []string
	DOMIDs       []string

	ComplexityScore float64

	// Embedding is nil until the fragment has been indexed
	Embedding []float32
}

// FragmentID derives the deterministic identifier of a fragment
func FragmentID(filePath string, startLine, endLine int, content string) string {
	prefix := content
	if len(prefix) > IDContentPrefix {
		prefix = prefix[:IDContentPrefix]
	}
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%d:%d:%s", filePath, startLine, endLine, prefix))
	return hex.EncodeToString(sum[:])
}

// Validate performs structural validation of the fragment
func (f *Fragment) Validate() error {
	if f.ID == "" {
		return ErrInvalidFragmentID
	}
	if f.FilePath == "" {
		return ErrMissingFileInfo
	}
	if f.StartLine < 0 || f.EndLine < f.StartLine {
		return ErrInvalidLineSpan
	}
	if f.ComplexityScore < 0 {
		return errors.New("complexity score must be non-negative")
	}
	switch f.Kind {
	case KindFunction, KindClass, KindModule, KindMarkupSection, KindStyleRule, KindBlock:
	default:
		return ErrInvalidFragmentKind
	}
	return nil
}

// EmbeddingText returns the text sent to the embedding model
func (f *Fragment) EmbeddingText() string {
	var b strings.Builder
	b.Grow(len(f.Description) + len(f.ContextBefore) + len(f.Content) + 2)
	b.WriteString(f.Description)
	b.WriteString("\n\n")
	b.WriteString(f.ContextBefore)
	b.WriteString(f.Content)
	return b.String()
}

// WithEmbedding returns a copy of the fragment carrying vec.
// The receiver is left untouched.
func (f *Fragment) WithEmbedding(vec []float32) *Fragment {
	cp := *f
	cp.Embedding = vec
	return &cp
}

// EstimateTokens returns the chars/4 token estimate for s
func EstimateTokens(s string) int {
	return len(s) / CharsPerToken
}
