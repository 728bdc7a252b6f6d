// Package vectorindex holds fragment embeddings for similarity search.
//
// Flat is an exact index: a query is scored against every stored vector by
// inner product, which equals cosine similarity because all vectors are
// L2-normalized before insertion. Ordinals are assigned in insertion order
// and match the position of the fragment in the owning snapshot.
//
// The on-disk form is a small header followed by little-endian float32
// values, row after row.
package vectorindex
