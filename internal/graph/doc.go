// Package graph builds the file-level dependency graph of a project.
//
// Construction runs in two passes over the complete fragment set. The first
// pass collects the symbols each file exports and the UI components each
// file references. The second pass links imports to files:
//
//   - imports naming an exported symbol link to the exporting file
//   - relative import sources ("./x", "../y") resolve against the importing
//     file's directory, trying common extensions and index files
//   - Go imports under the project's module path link to the files of the
//     matching package directory
//   - Java imports link by their simple type name
//
// Imports that resolve to nothing are external packages and are dropped.
//
// A Graph is immutable once built. It serializes to JSON for the on-disk
// cache through MarshalJSON and UnmarshalJSON.
package graph
