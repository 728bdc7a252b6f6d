package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dshills/codecontext/internal/assembler"
	"github.com/dshills/codecontext/internal/embedder"
	"github.com/dshills/codecontext/internal/indexer"
	"github.com/dshills/codecontext/internal/searcher"
	"github.com/dshills/codecontext/pkg/types"
)

// Config configures a Manager
type Config struct {
	CacheDir  string // parent of the per-project cache directories
	Indexer   indexer.Config
	MaxTokens int // default context budget
	Logger    *slog.Logger
}

// Manager owns one ProjectIndex per project root. It is safe for
// concurrent use; rebuilds of the same root are collapsed into one.
type Manager struct {
	cacheDir  string
	embedder  embedder.Embedder
	indexer   *indexer.Indexer
	searcher  *searcher.Searcher
	assembler *assembler.Assembler
	logger    *slog.Logger

	mu       sync.Mutex
	projects map[string]*ProjectIndex
	flight   singleflight.Group
}

// IndexResult reports the outcome of Index
type IndexResult struct {
	Root      string              `json:"root"`
	Rebuilt   bool                `json:"rebuilt"`
	FromCache bool                `json:"from_cache"`
	Fragments int                 `json:"fragments"`
	Files     int                 `json:"files"`
	Stats     *indexer.Statistics `json:"stats,omitempty"`
	Duration  time.Duration       `json:"duration"`
}

// NewManager creates a Manager embedding with emb
func NewManager(emb embedder.Embedder, cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Indexer.Logger == nil {
		cfg.Indexer.Logger = cfg.Logger
	}
	s := searcher.NewSearcher(emb)
	return &Manager{
		cacheDir: cfg.CacheDir,
		embedder: emb,
		indexer:  indexer.New(emb, cfg.Indexer),
		searcher: s,
		assembler: assembler.New(s,
			assembler.WithLogger(cfg.Logger),
			assembler.WithMaxTokens(cfg.MaxTokens)),
		logger:   cfg.Logger,
		projects: make(map[string]*ProjectIndex),
	}
}

// Project returns the index of root, creating it on first use. Nothing is
// loaded or built until the index is queried.
func (m *Manager) Project(root string) (*ProjectIndex, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidRoot, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", types.ErrInvalidRoot, abs)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.projects[abs]; ok {
		return p, nil
	}
	p := &ProjectIndex{
		root:     abs,
		cacheDir: CacheDirFor(m.cacheDir, abs),
		indexer:  m.indexer,
		embedder: m.embedder,
		logger:   m.logger.With("root", abs),
	}
	m.projects[abs] = p
	return p, nil
}

// flightResult is shared by callers collapsed onto one load or build
type flightResult struct {
	snap    *snapshot
	stats   *indexer.Statistics
	rebuilt bool
}

// obtain returns a usable snapshot: the current one unless force or stale,
// else the disk cache if valid, else a fresh build
func (m *Manager) obtain(ctx context.Context, p *ProjectIndex, force, checkStale bool) (*flightResult, error) {
	key := p.root
	if force {
		key = "force\x00" + p.root
	}
	v, err, _ := m.flight.Do(key, func() (any, error) {
		if !force {
			if s := p.current.Load(); s != nil {
				if !checkStale {
					return &flightResult{snap: s}, nil
				}
				if stale, err := p.stale(s); err == nil && !stale {
					return &flightResult{snap: s}, nil
				}
			}
			s, err := p.loadCache(ctx)
			if err == nil {
				p.logger.Info("loaded index cache", "fragments", len(s.fragments))
				return &flightResult{snap: s}, nil
			}
			p.logger.Info("index cache unusable, rebuilding", "reason", err)
		}
		s, stats, err := p.rebuild(ctx)
		if err != nil {
			return nil, err
		}
		m.searcher.InvalidateCache()
		return &flightResult{snap: s, stats: stats, rebuilt: true}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*flightResult), nil
}

// Index makes sure root has an up to date index. With force the tree is
// always re-indexed; otherwise a fresh in-memory snapshot or disk cache is
// reused.
func (m *Manager) Index(ctx context.Context, root string, force bool) (*IndexResult, error) {
	start := time.Now()
	p, err := m.Project(root)
	if err != nil {
		return nil, err
	}
	res, err := m.obtain(ctx, p, force, true)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", p.root, err)
	}
	return &IndexResult{
		Root:      p.root,
		Rebuilt:   res.rebuilt,
		FromCache: !res.rebuilt,
		Fragments: len(res.snap.fragments),
		Files:     len(res.snap.files),
		Stats:     res.stats,
		Duration:  time.Since(start),
	}, nil
}

// snapshotFor returns the current snapshot, loading or building on first use
func (m *Manager) snapshotFor(ctx context.Context, root string) (*ProjectIndex, *snapshot, error) {
	p, err := m.Project(root)
	if err != nil {
		return nil, nil, err
	}
	if s := p.current.Load(); s != nil {
		return p, s, nil
	}
	res, err := m.obtain(ctx, p, false, false)
	if err != nil {
		return nil, nil, fmt.Errorf("index %s: %w", p.root, err)
	}
	return p, res.snap, nil
}

// Search returns up to k fragments of root ranked against query. k <= 0
// means searcher.DefaultLimit. currentFile may be absolute or relative to
// root.
func (m *Manager) Search(ctx context.Context, root, query string, k int, currentFile string) (*searcher.SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.ErrEmptyQuery
	}
	p, s, err := m.snapshotFor(ctx, root)
	if err != nil {
		return nil, err
	}
	return m.searcher.Search(ctx, s, searcher.SearchRequest{
		Query:       query,
		Limit:       k,
		CurrentFile: relativeTo(p.root, currentFile),
		UseCache:    true,
	})
}

// GetContext assembles a context bundle for query. maxTokens <= 0 uses the
// configured default.
func (m *Manager) GetContext(ctx context.Context, root, query, currentFile string, maxTokens int) (*types.ContextBundle, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.ErrEmptyQuery
	}
	p, s, err := m.snapshotFor(ctx, root)
	if err != nil {
		return nil, err
	}
	return m.assembler.Assemble(ctx, s, assembler.Request{
		Query:       query,
		CurrentFile: relativeTo(p.root, currentFile),
		MaxTokens:   maxTokens,
	})
}

// Invalidate forgets the index of root and deletes its cache, so the next
// query rebuilds
func (m *Manager) Invalidate(root string) error {
	p, err := m.Project(root)
	if err != nil {
		return err
	}
	if err := p.clear(); err != nil {
		return err
	}
	m.searcher.InvalidateCache()
	p.logger.Info("index invalidated")
	return nil
}

// Status reports on root's index without loading or building it
func (m *Manager) Status(ctx context.Context, root string) (*Status, error) {
	p, err := m.Project(root)
	if err != nil {
		return nil, err
	}
	return p.status(ctx), nil
}

// Policy returns the ignore policy used for every project
func (m *Manager) Policy() indexer.Policy {
	return m.indexer.Policy()
}

// Close releases the embedder
func (m *Manager) Close() error {
	return m.embedder.Close()
}

// relativeTo expresses file relative to root with forward slashes. Paths
// outside root are returned cleaned but otherwise unchanged.
func relativeTo(root, file string) string {
	if file == "" {
		return ""
	}
	if filepath.IsAbs(file) {
		rel, err := filepath.Rel(root, file)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return filepath.ToSlash(filepath.Clean(file))
		}
		file = rel
	}
	return filepath.ToSlash(filepath.Clean(file))
}
