// Package searcher ranks indexed fragments against a natural-language query.
//
// A search embeds the query, pulls the 3k nearest fragments from the
// corpus, then walks them in similarity order keeping at most three per
// file until k survive. Fragments of the caller's current file have their
// score multiplied by 1.5 and the survivors are re-sorted, ties keeping
// their similarity order. The cap runs before the boost, so a boost never
// brings back a fragment the cap already dropped.
//
// Responses can be cached in an LRU keyed by query, k, current file and the
// corpus generation, so a rebuilt snapshot never serves stale hits.
package searcher
