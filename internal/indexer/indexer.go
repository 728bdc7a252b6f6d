package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/codecontext/internal/chunker"
	"github.com/dshills/codecontext/internal/embedder"
	"github.com/dshills/codecontext/internal/graph"
	"github.com/dshills/codecontext/internal/storage"
	"github.com/dshills/codecontext/internal/vectorindex"
	"github.com/dshills/codecontext/pkg/types"
)

// Indexer coordinates the indexing pipeline: scan -> chunk -> embed -> graph
type Indexer struct {
	chunker   *chunker.Chunker
	embedder  embedder.Embedder
	policy    Policy
	logger    *slog.Logger
	workers   int
	batchSize int
}

// Config contains configuration for the indexer
type Config struct {
	Workers   int // concurrent chunking workers (default: runtime.NumCPU())
	BatchSize int // texts per embedding request (default: embedder.DefaultBatchSize)
	Policy    Policy
	Logger    *slog.Logger
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	FilesScanned      int
	FilesIndexed      int
	FilesSkipped      int // empty after trimming whitespace
	FilesFailed       int
	FragmentsCreated  int
	FragmentsEmbedded int
	FragmentsDropped  int
	Duration          time.Duration
	ErrorMessages     []string
}

// Snapshot is everything one full indexing pass produces. Fragments[i]
// carries the vector stored at ordinal i of Vectors.
type Snapshot struct {
	Root      string
	Fragments []*types.Fragment
	Vectors   *vectorindex.Flat
	Graph     *graph.Graph
	Files     []storage.File
	Freshness time.Time
	BuiltAt   time.Time
	Provider  string
	Model     string
	Stats     Statistics
}

// New creates a new Indexer instance
func New(emb embedder.Embedder, cfg Config) *Indexer {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > embedder.MaxBatchSize {
		cfg.BatchSize = embedder.DefaultBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Indexer{
		chunker:   chunker.New(),
		embedder:  emb,
		policy:    cfg.Policy,
		logger:    cfg.Logger,
		workers:   cfg.Workers,
		batchSize: cfg.BatchSize,
	}
}

// Policy returns the ignore policy the indexer scans with
func (idx *Indexer) Policy() Policy {
	return idx.policy
}

// IndexProject runs a full indexing pass over root
func (idx *Indexer) IndexProject(ctx context.Context, root string) (*Snapshot, error) {
	startTime := time.Now()

	scan, err := ScanProject(root, idx.policy)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	stats := Statistics{FilesScanned: len(scan.Files)}
	perFile, err := idx.chunkFiles(ctx, scan.Files, &stats)
	if err != nil {
		return nil, err
	}

	var fragments []*types.Fragment
	for _, frags := range perFile {
		fragments = append(fragments, frags...)
	}
	stats.FragmentsCreated = len(fragments)

	embedded, vectors, err := idx.embedFragments(ctx, fragments, &stats)
	if err != nil {
		return nil, err
	}

	var goModule string
	if info, err := parseGoMod(filepath.Join(root, "go.mod")); err == nil {
		goModule = info.Module
	}

	snap := &Snapshot{
		Root:      root,
		Fragments: embedded,
		Vectors:   vectors,
		Graph:     graph.Build(embedded, graph.Options{GoModule: goModule}),
		Files:     fileRecords(scan.Files, embedded),
		Freshness: scan.Freshness,
		BuiltAt:   time.Now(),
		Provider:  idx.embedder.Provider(),
		Model:     idx.embedder.Model(),
	}
	stats.Duration = time.Since(startTime)
	snap.Stats = stats

	nodes, edges := snap.Graph.Stats()
	idx.logger.Info("project indexed",
		"root", root,
		"files", stats.FilesIndexed,
		"failed", stats.FilesFailed,
		"fragments", len(embedded),
		"dropped", stats.FragmentsDropped,
		"graph_nodes", nodes,
		"graph_edges", edges,
		"duration", stats.Duration)
	return snap, nil
}

// chunkFiles reads and chunks files concurrently. The result keeps scan
// order so fragment ordinals are deterministic.
func (idx *Indexer) chunkFiles(ctx context.Context, files []SourceFile, stats *Statistics) ([][]*types.Fragment, error) {
	slots := make([][]*types.Fragment, len(files))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			frags, skipped, err := idx.chunkFile(file)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				stats.FilesFailed++
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", file.Path, err))
				idx.logger.Warn("skipping file", "file", file.Path, "error", err)
			case skipped:
				stats.FilesSkipped++
			default:
				stats.FilesIndexed++
				slots[i] = frags
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slots, nil
}

// chunkFile turns one file into fragments. A panic while chunking is
// reported as an error for that file only.
func (idx *Indexer) chunkFile(file SourceFile) (frags []*types.Fragment, skipped bool, err error) {
	content, err := os.ReadFile(file.AbsPath)
	if err != nil {
		return nil, false, err
	}
	text := strings.ToValidUTF8(string(content), "")
	if strings.TrimSpace(text) == "" {
		return nil, true, nil
	}

	defer func() {
		if r := recover(); r != nil {
			frags, err = nil, fmt.Errorf("chunker panic: %v", r)
		}
	}()
	return idx.chunker.ChunkFile(file.Path, text), false, nil
}

// embedFragments embeds fragments in batches. A failed batch is retried
// one fragment at a time and fragments that still fail are dropped.
func (idx *Indexer) embedFragments(ctx context.Context, fragments []*types.Fragment, stats *Statistics) ([]*types.Fragment, *vectorindex.Flat, error) {
	out := make([]*types.Fragment, 0, len(fragments))
	var vectors *vectorindex.Flat

	keep := func(f *types.Fragment, vec []float32) {
		if vectors == nil {
			vectors = vectorindex.New(len(vec))
		}
		if err := vectors.Add(vec); err != nil {
			stats.FragmentsDropped++
			idx.logger.Warn("dropping fragment", "file", f.FilePath, "start", f.StartLine, "error", err)
			return
		}
		out = append(out, f.WithEmbedding(vec))
	}

	for start := 0; start < len(fragments); start += idx.batchSize {
		end := min(start+idx.batchSize, len(fragments))
		batch := fragments[start:end]

		texts := make([]string, len(batch))
		for i, f := range batch {
			texts[i] = f.EmbeddingText()
		}

		resp, err := idx.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
		if err == nil {
			for i, emb := range resp.Embeddings {
				keep(batch[i], emb.Vector)
			}
			continue
		}
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}

		idx.logger.Warn("embedding batch failed, retrying per fragment", "size", len(batch), "error", err)
		for i, f := range batch {
			emb, err := idx.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: texts[i]})
			if err != nil {
				if ctx.Err() != nil {
					return nil, nil, ctx.Err()
				}
				stats.FragmentsDropped++
				idx.logger.Warn("dropping fragment", "file", f.FilePath, "start", f.StartLine, "error", err)
				continue
			}
			keep(f, emb.Vector)
		}
	}

	if vectors == nil {
		vectors = vectorindex.New(idx.embedder.Dimension())
	}
	stats.FragmentsEmbedded = len(out)
	return out, vectors, nil
}

// fileRecords describes the scanned files that kept at least one fragment
func fileRecords(files []SourceFile, fragments []*types.Fragment) []storage.File {
	counts := make(map[string]int)
	langs := make(map[string]types.Language)
	for _, f := range fragments {
		counts[f.FilePath]++
		langs[f.FilePath] = f.Language
	}

	var records []storage.File
	for _, file := range files {
		n := counts[file.Path]
		if n == 0 {
			continue
		}
		records = append(records, storage.File{
			Path:          file.Path,
			Language:      langs[file.Path],
			SizeBytes:     file.Size,
			ModTime:       file.ModTime,
			FragmentCount: n,
		})
	}
	return records
}
