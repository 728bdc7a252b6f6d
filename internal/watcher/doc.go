// Package watcher invalidates project indexes when their files change.
//
// It watches a project tree recursively with fsnotify, skipping the same
// directories the indexer ignores, and collapses bursts of events into a
// single callback after a quiet period.
package watcher
