package index

import (
	"sync/atomic"
	"time"

	"github.com/dshills/codecontext/internal/graph"
	"github.com/dshills/codecontext/internal/indexer"
	"github.com/dshills/codecontext/internal/storage"
	"github.com/dshills/codecontext/internal/vectorindex"
	"github.com/dshills/codecontext/pkg/types"
)

// generations numbers snapshots process-wide so cached query results
// never outlive the snapshot they were computed on
var generations atomic.Uint64

// snapshot is an immutable, fully built project index. fragments[i] owns
// vector i.
type snapshot struct {
	root       string
	generation uint64
	fragments  []*types.Fragment
	vectors    *vectorindex.Flat
	graph      *graph.Graph
	files      []storage.File
	byFile     map[string][]int
	freshness  time.Time
	builtAt    time.Time
	provider   string
	model      string
}

func newSnapshot(root string, fragments []*types.Fragment, vectors *vectorindex.Flat, g *graph.Graph, files []storage.File) *snapshot {
	s := &snapshot{
		root:       root,
		generation: generations.Add(1),
		fragments:  fragments,
		vectors:    vectors,
		graph:      g,
		files:      files,
		byFile:     make(map[string][]int),
	}
	for i, f := range fragments {
		s.byFile[f.FilePath] = append(s.byFile[f.FilePath], i)
	}
	return s
}

func fromBuild(b *indexer.Snapshot) *snapshot {
	s := newSnapshot(b.Root, b.Fragments, b.Vectors, b.Graph, b.Files)
	s.freshness = b.Freshness
	s.builtAt = b.BuiltAt
	s.provider = b.Provider
	s.model = b.Model
	return s
}

func (s *snapshot) Generation() uint64                   { return s.generation }
func (s *snapshot) Len() int                             { return len(s.fragments) }
func (s *snapshot) Fragment(ordinal int) *types.Fragment { return s.fragments[ordinal] }
func (s *snapshot) FileOrdinals(file string) []int       { return s.byFile[file] }
func (s *snapshot) Root() string                         { return s.root }
func (s *snapshot) Graph() *graph.Graph                  { return s.graph }

func (s *snapshot) Nearest(query []float32, n int) ([]vectorindex.Hit, error) {
	return s.vectors.Search(query, n)
}

func (s *snapshot) Score(query []float32, ordinal int) float64 {
	return s.vectors.Score(query, ordinal)
}

func (s *snapshot) ids() []string {
	ids := make([]string, len(s.fragments))
	for i, f := range s.fragments {
		ids[i] = f.ID
	}
	return ids
}
