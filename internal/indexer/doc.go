// Package indexer runs a full indexing pass over a project tree.
//
// The pipeline is:
//
//  1. Scan: walk the root applying the ignore policy, collect supported
//     files and the freshness timestamp (newest mtime of any non-ignored
//     file, supported or not).
//  2. Chunk: read and chunk files concurrently with a bounded errgroup.
//     Results land in per-file slots so fragment order follows path order.
//  3. Embed: send description, overlap context and content of each fragment
//     to the embedder in batches. A failed batch is retried one fragment at
//     a time; fragments that still fail are dropped.
//  4. Graph: build the file dependency graph from the surviving fragments.
//
// There is no incremental mode. Every pass produces a complete Snapshot
// whose fragment slice and vector index share ordinals.
//
//	idx := indexer.New(emb, indexer.Config{Workers: 8, Logger: logger})
//	snap, err := idx.IndexProject(ctx, "/path/to/project")
//
// A file that cannot be read or chunked is logged at warn level and left
// out; it never fails the pass.
package indexer
