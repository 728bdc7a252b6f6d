package storage

import (
	"time"

	"github.com/dshills/codecontext/pkg/types"
)

// File is one indexed source file
type File struct {
	Path          string // relative to the project root, slash separated
	Language      types.Language
	SizeBytes     int64
	ModTime       time.Time
	FragmentCount int
}

// Status contains statistics about a stored snapshot
type Status struct {
	SchemaVersion  string
	FilesCount     int
	FragmentsCount int
	Languages      map[types.Language]int // files per language
	SizeBytes      int64                  // total source bytes indexed
}
