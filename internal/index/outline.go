package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dshills/codecontext/internal/graph"
	"github.com/dshills/codecontext/internal/storage"
	"github.com/dshills/codecontext/pkg/types"
)

// ErrNotIndexed means a project has neither a loaded snapshot nor a cache
var ErrNotIndexed = errors.New("project is not indexed")

// FileOutline describes one indexed file: its fragments in line order and
// its edges in the dependency graph
type FileOutline struct {
	Path         string            `json:"path"`
	Language     types.Language    `json:"language"`
	Fragments    []FragmentSummary `json:"fragments"`
	Tokens       int               `json:"estimated_tokens"`
	Exports      []string          `json:"exports,omitempty"`
	Dependencies []Dependency      `json:"dependencies,omitempty"`
	Dependents   []string          `json:"dependents,omitempty"`
}

// FragmentSummary is a fragment without its content
type FragmentSummary struct {
	Kind        types.FragmentKind `json:"kind"`
	StartLine   int                `json:"start_line"`
	EndLine     int                `json:"end_line"`
	Description string             `json:"description"`
	Tokens      int                `json:"estimated_tokens"`
}

// Dependency is an outgoing graph edge and the symbols it carries
type Dependency struct {
	File    string   `json:"file"`
	Symbols []string `json:"symbols,omitempty"`
}

// Outline describes one file of root's index without loading or building
// it. file may be absolute or relative to root.
func (m *Manager) Outline(ctx context.Context, root, file string) (*FileOutline, error) {
	p, err := m.Project(root)
	if err != nil {
		return nil, err
	}
	return p.outline(ctx, relativeTo(p.root, file))
}

// outline reads the loaded snapshot, or the disk cache when nothing is
// loaded
func (p *ProjectIndex) outline(ctx context.Context, file string) (*FileOutline, error) {
	if s := p.current.Load(); s != nil {
		ordinals := s.byFile[file]
		frags := make([]*types.Fragment, 0, len(ordinals))
		for _, i := range ordinals {
			frags = append(frags, s.fragments[i])
		}
		sort.SliceStable(frags, func(i, j int) bool { return frags[i].StartLine < frags[j].StartLine })
		return newOutline(file, frags, s.graph)
	}

	p.diskMu.Lock()
	defer p.diskMu.Unlock()
	if _, err := os.Stat(filepath.Join(p.cacheDir, metadataFile)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotIndexed, p.root)
	}
	store, err := storage.OpenExisting(ctx, filepath.Join(p.cacheDir, fragmentsFile))
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	frags, err := store.ListFragmentsByFile(ctx, file)
	if err != nil {
		return nil, err
	}

	var g *graph.Graph
	if data, err := os.ReadFile(filepath.Join(p.cacheDir, graphFile)); err == nil {
		g = new(graph.Graph)
		if err := json.Unmarshal(data, g); err != nil {
			p.logger.Debug("cached graph unreadable", "error", err)
			g = nil
		}
	}
	return newOutline(file, frags, g)
}

func newOutline(file string, frags []*types.Fragment, g *graph.Graph) (*FileOutline, error) {
	if len(frags) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrFileNotFound, file)
	}
	o := &FileOutline{
		Path:      file,
		Language:  frags[0].Language,
		Fragments: make([]FragmentSummary, 0, len(frags)),
	}
	for _, f := range frags {
		tokens := types.EstimateTokens(f.Content)
		o.Tokens += tokens
		o.Fragments = append(o.Fragments, FragmentSummary{
			Kind:        f.Kind,
			StartLine:   f.StartLine,
			EndLine:     f.EndLine,
			Description: f.Description,
			Tokens:      tokens,
		})
	}
	if g == nil {
		return o, nil
	}
	o.Exports = g.ExportedSymbols(file)
	for _, dep := range g.Dependencies(file) {
		o.Dependencies = append(o.Dependencies, Dependency{File: dep, Symbols: g.EdgeSymbols(file, dep)})
	}
	o.Dependents = g.Dependents(file)
	return o, nil
}
