// Package analyzer performs per-file static analysis for the index.
//
// Language detection is a lookup on the file extension. Symbol extraction is
// selected from a table of strategies, one pure function per language:
//
//   - Python and Java are walked with tree-sitter syntax trees. Python text
//     that does not parse falls back to regular expressions.
//   - Go is parsed with go/parser. Fragments without a package clause get a
//     synthetic one.
//   - JavaScript, TypeScript, HTML and CSS use regular expressions.
//   - Everything else uses a generic keyword heuristic.
//
// Analyze never fails. A strategy that panics degrades to empty symbol lists
// so a single odd file cannot abort an indexing pass.
//
// Besides symbols, Analyze reports UI component names, CSS classes, DOM ids
// and a complexity score counting control-flow keywords.
package analyzer
