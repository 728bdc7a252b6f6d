// Package types provides shared type definitions for the codecontext index.
//
// # Core Types
//
// Fragment is the smallest retrievable unit of source text. It carries its
// span (0-based, inclusive lines), the structural kind, the language, a
// generated description and the symbols found in it:
//
//	frag := &types.Fragment{
//	    FilePath:  "src/app.py",
//	    StartLine: 0,
//	    EndLine:   12,
//	    Kind:      types.KindFunction,
//	    Language:  types.LangPython,
//	}
//	frag.ID = types.FragmentID(frag.FilePath, frag.StartLine, frag.EndLine, frag.Content)
//
// Fragment ids are derived from the path, the span and a content prefix, so
// indexing unchanged content twice yields identical ids.
//
// Fragments are never mutated after creation. Indexing attaches embeddings
// through WithEmbedding, which returns a copy.
//
// # Results
//
// SearchResult wraps a ranked fragment with its raw and boosted scores.
// ContextBundle is the budgeted output of context assembly: file paths, a
// path to content mapping and metadata describing which files were supplied
// in full and which as read-only excerpts.
//
// # Token Estimation
//
// All token counts use the chars/4 heuristic exposed as EstimateTokens.
package types
