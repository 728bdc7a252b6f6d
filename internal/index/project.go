package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/codecontext/internal/embedder"
	"github.com/dshills/codecontext/internal/indexer"
	"github.com/dshills/codecontext/internal/storage"
	"github.com/dshills/codecontext/pkg/types"
)

// ProjectIndex owns the index of one project root. Readers use whatever
// snapshot is current; a rebuild swaps in a complete new snapshot.
type ProjectIndex struct {
	root     string
	cacheDir string
	indexer  *indexer.Indexer
	embedder embedder.Embedder
	logger   *slog.Logger

	current atomic.Pointer[snapshot]
	epoch   atomic.Uint64 // bumped by clear
	diskMu  sync.Mutex    // serializes cache reads, writes and deletion
}

// Status describes a project index
type Status struct {
	Root      string                 `json:"root"`
	CacheDir  string                 `json:"cache_dir"`
	Loaded    bool                   `json:"loaded"`
	Cached    bool                   `json:"cached"`
	Fragments int                    `json:"fragments"`
	Files     int                    `json:"files"`
	Languages map[types.Language]int `json:"languages,omitempty"`
	SizeBytes int64                  `json:"size_bytes"`
	Freshness time.Time              `json:"freshness,omitempty"`
	BuiltAt   time.Time              `json:"built_at,omitempty"`
	Provider  string                 `json:"embedding_provider,omitempty"`
	Model     string                 `json:"embedding_model,omitempty"`
	Stale     bool                   `json:"stale"`
}

// Root returns the absolute project root
func (p *ProjectIndex) Root() string {
	return p.root
}

// CacheDir returns the directory holding the project's cache files
func (p *ProjectIndex) CacheDir() string {
	return p.cacheDir
}

// Loaded reports whether a snapshot is in memory
func (p *ProjectIndex) Loaded() bool {
	return p.current.Load() != nil
}

// rebuild indexes the tree from scratch, persists the result and makes it
// current. A failed cache write is logged; the new snapshot is still used.
// A build that raced with clear is returned to its caller but neither
// saved nor made current.
func (p *ProjectIndex) rebuild(ctx context.Context) (*snapshot, *indexer.Statistics, error) {
	epoch := p.epoch.Load()
	built, err := p.indexer.IndexProject(ctx, p.root)
	if err != nil {
		return nil, nil, err
	}
	s := fromBuild(built)

	p.diskMu.Lock()
	defer p.diskMu.Unlock()
	if p.epoch.Load() != epoch {
		p.logger.Debug("discarding build invalidated while running", "root", p.root)
		return s, &built.Stats, nil
	}
	if err := saveSnapshot(ctx, p.cacheDir, s); err != nil {
		p.logger.Warn("failed to save index cache", "root", p.root, "error", err)
	}
	p.current.Store(s)
	return s, &built.Stats, nil
}

// loadCache makes the on-disk cache current if it is complete, matches the
// configured embedder and is at least as new as every tracked file
func (p *ProjectIndex) loadCache(ctx context.Context) (*snapshot, error) {
	freshness, err := indexer.Freshness(p.root, p.indexer.Policy())
	if err != nil {
		return nil, err
	}
	p.diskMu.Lock()
	defer p.diskMu.Unlock()
	s, err := loadSnapshot(ctx, p.cacheDir, p.root, p.expectation(freshness))
	if err != nil {
		return nil, err
	}
	p.current.Store(s)
	return s, nil
}

func (p *ProjectIndex) expectation(freshness time.Time) expectation {
	return expectation{
		provider:  p.embedder.Provider(),
		model:     p.embedder.Model(),
		dimension: p.embedder.Dimension(),
		freshness: freshness,
	}
}

// stale reports whether a tracked file changed after s was built
func (p *ProjectIndex) stale(s *snapshot) (bool, error) {
	freshness, err := indexer.Freshness(p.root, p.indexer.Policy())
	if err != nil {
		return false, err
	}
	return unixNano(s.freshness) < unixNano(freshness), nil
}

// clear drops the in-memory snapshot and deletes the cache directory
func (p *ProjectIndex) clear() error {
	p.epoch.Add(1)
	p.current.Store(nil)

	p.diskMu.Lock()
	defer p.diskMu.Unlock()
	p.current.Store(nil)
	if err := os.RemoveAll(p.cacheDir); err != nil {
		return fmt.Errorf("remove cache: %w", err)
	}
	return nil
}

// status reports on the loaded snapshot, or on the disk cache when nothing
// is loaded
func (p *ProjectIndex) status(ctx context.Context) *Status {
	st := &Status{Root: p.root, CacheDir: p.cacheDir}
	_, err := os.Stat(filepath.Join(p.cacheDir, metadataFile))
	st.Cached = err == nil

	if s := p.current.Load(); s != nil {
		st.Loaded = true
		st.Fragments = len(s.fragments)
		st.Files = len(s.files)
		st.Languages = make(map[types.Language]int)
		for _, f := range s.files {
			st.Languages[f.Language]++
			st.SizeBytes += f.SizeBytes
		}
		st.Freshness = s.freshness
		st.BuiltAt = s.builtAt
		st.Provider = s.provider
		st.Model = s.model
		if stale, err := p.stale(s); err == nil {
			st.Stale = stale
		}
		return st
	}

	if !st.Cached {
		return st
	}
	p.diskMu.Lock()
	defer p.diskMu.Unlock()
	store, err := storage.OpenExisting(ctx, filepath.Join(p.cacheDir, fragmentsFile))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			p.logger.Debug("cache status unavailable", "root", p.root, "error", err)
		}
		return st
	}
	defer func() { _ = store.Close() }()
	if ds, err := store.GetStatus(ctx); err == nil {
		st.Fragments = ds.FragmentsCount
		st.Files = ds.FilesCount
		st.Languages = ds.Languages
		st.SizeBytes = ds.SizeBytes
	}
	return st
}
