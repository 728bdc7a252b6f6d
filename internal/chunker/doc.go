// Package chunker splits source files into fragments for embedding and search.
//
// Fragments follow natural boundaries so each one keeps its meaning when
// retrieved on its own:
//
//   - Python: top-level definitions from the tree-sitter tree. A block ends
//     before the next line indented no deeper than the definition.
//   - Go: top-level function, method, struct and interface declarations from
//     the tree-sitter tree, with their doc comments.
//   - JavaScript, TypeScript, Java, Rust, C, C++ and PHP: definition starts
//     found by regular expression, ends found by brace balance.
//   - HTML: major structural tags ended by their closing tag.
//   - CSS and preprocessors: selector and at-rule lines ended by brace balance.
//
// Text between recognized blocks becomes a module fragment, so the spans of a
// file's fragments are contiguous, disjoint and cover every line.
// Whitespace-only gaps are folded into the neighbouring block.
//
// Files with no recognized block fall back to fixed windows of lines. Window
// spans are disjoint. Each window carries the last few lines of the previous
// one in ContextBefore, which is embedded with it.
//
// # Basic Usage
//
//	c := chunker.New()
//	for _, f := range c.ChunkFile("src/app.py", content) {
//	    fmt.Printf("%s %d-%d: %s\n", f.Kind, f.StartLine, f.EndLine, f.Description)
//	}
//
// Every fragment carries the analyzer output for its text, a generated
// description and a deterministic id.
package chunker
