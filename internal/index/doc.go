// Package index is the per-project index store.
//
// A Manager hands out one ProjectIndex per absolute project root. Each
// ProjectIndex holds an immutable snapshot (fragments, their vectors in
// matching order, and the dependency graph) behind an atomic pointer, so
// searches keep running on the old snapshot while a rebuild prepares the
// next one. Rebuilds of a root are collapsed with singleflight.
//
// Snapshots persist under <cache dir>/<sha256(root)[:16]>/ as
// fragments.db, vectors.idx, graph.json and metadata.json. The metadata
// file is written last and records the freshness timestamp: the newest
// modification time among the project's tracked files. A cache is reused
// only when all four files agree with each other and with the configured
// embedding model, and nothing tracked has changed since; anything else
// triggers a full rebuild.
package index
