// Package storage persists the fragments of a project snapshot in SQLite.
//
// Each project cache directory holds one fragments.db. Rows keep the
// fragment's position as their ordinal, which is also its row in the vector
// index, so a snapshot is rebuilt by loading fragments in ordinal order and
// pairing them with the stored vectors. Embeddings themselves are not kept
// here.
//
// The schema is versioned with semantic versions and migrated on open:
//
//	1.0.0  fragments table
//	1.1.0  files table (per-file language, size, mtime, fragment count)
//
// Two drivers are supported. The default build uses modernc.org/sqlite
// (pure Go). Building with -tags sqlite_vec switches to
// github.com/mattn/go-sqlite3.
//
// Snapshots are written with WriteSnapshot, which fills a temporary
// database and renames it into place.
package storage
