package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/codecontext/internal/graph"
	"github.com/dshills/codecontext/internal/storage"
	"github.com/dshills/codecontext/internal/vectorindex"
)

const (
	metadataFormat = 1

	fragmentsFile = "fragments.db"
	vectorsFile   = "vectors.idx"
	graphFile     = "graph.json"
	metadataFile  = "metadata.json"
)

var (
	// ErrStaleCache means a file changed after the cache was written
	ErrStaleCache = errors.New("index cache is stale")
	// ErrCacheMismatch means the cache files disagree with each other or
	// with the configured embedding model
	ErrCacheMismatch = errors.New("index cache is inconsistent")
)

// CacheDirFor returns the cache directory of the project at root
func CacheDirFor(base, root string) string {
	sum := sha256.Sum256([]byte(root))
	return filepath.Join(base, hex.EncodeToString(sum[:])[:16])
}

// metadata is written last; its presence marks a complete cache
type metadata struct {
	FormatVersion     int       `json:"format_version"`
	Root              string    `json:"root"`
	FreshnessUnixNano int64     `json:"freshness_unix_nano"`
	Freshness         string    `json:"freshness"`
	CreatedAt         time.Time `json:"created_at"`
	Provider          string    `json:"embedding_provider"`
	Model             string    `json:"embedding_model"`
	Dimension         int       `json:"embedding_dimension"`
	FragmentIDs       []string  `json:"fragment_ids"`
}

// expectation is what a cache must match to be reused
type expectation struct {
	provider  string
	model     string
	dimension int // 0 when the embedder has not reported one yet
	freshness time.Time
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

// saveSnapshot writes the four cache files of s into dir
func saveSnapshot(ctx context.Context, dir string, s *snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	// a crash from here on leaves no metadata, so the cache reads as absent
	if err := os.Remove(filepath.Join(dir, metadataFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("retire metadata: %w", err)
	}

	if err := storage.WriteSnapshot(ctx, filepath.Join(dir, fragmentsFile), s.fragments, s.files); err != nil {
		return fmt.Errorf("write fragments: %w", err)
	}
	err := writeAtomic(filepath.Join(dir, vectorsFile), func(w io.Writer) error {
		_, err := s.vectors.WriteTo(w)
		return err
	})
	if err != nil {
		return fmt.Errorf("write vectors: %w", err)
	}

	graphData, err := json.Marshal(s.graph)
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	if err := writeBytes(filepath.Join(dir, graphFile), graphData); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}

	meta := metadata{
		FormatVersion:     metadataFormat,
		Root:              s.root,
		FreshnessUnixNano: unixNano(s.freshness),
		Freshness:         s.freshness.UTC().Format(time.RFC3339Nano),
		CreatedAt:         s.builtAt.UTC(),
		Provider:          s.provider,
		Model:             s.model,
		Dimension:         s.vectors.Dimension(),
		FragmentIDs:       s.ids(),
	}
	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := writeBytes(filepath.Join(dir, metadataFile), metaData); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// loadSnapshot reads the cache in dir. Any missing, unreadable or
// inconsistent file is an error; callers rebuild on error.
func loadSnapshot(ctx context.Context, dir, root string, want expectation) (*snapshot, error) {
	metaData, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, err
	}
	var meta metadata
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrCacheMismatch, err)
	}
	switch {
	case meta.FormatVersion != metadataFormat:
		return nil, fmt.Errorf("%w: format version %d", ErrCacheMismatch, meta.FormatVersion)
	case meta.Root != root:
		return nil, fmt.Errorf("%w: built for %s", ErrCacheMismatch, meta.Root)
	case meta.Provider != want.provider || meta.Model != want.model:
		return nil, fmt.Errorf("%w: embedded with %s/%s", ErrCacheMismatch, meta.Provider, meta.Model)
	case want.dimension > 0 && len(meta.FragmentIDs) > 0 && meta.Dimension != want.dimension:
		return nil, fmt.Errorf("%w: dimension %d, embedder has %d", ErrCacheMismatch, meta.Dimension, want.dimension)
	case meta.FreshnessUnixNano < unixNano(want.freshness):
		return nil, ErrStaleCache
	}

	store, err := storage.OpenExisting(ctx, filepath.Join(dir, fragmentsFile))
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	fragments, err := store.LoadFragments(ctx)
	if err != nil {
		return nil, err
	}
	files, err := store.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	if len(fragments) != len(meta.FragmentIDs) {
		return nil, fmt.Errorf("%w: %d fragments, %d ids", ErrCacheMismatch, len(fragments), len(meta.FragmentIDs))
	}
	for i, f := range fragments {
		if f.ID != meta.FragmentIDs[i] {
			return nil, fmt.Errorf("%w: fragment %d is %s, expected %s", ErrCacheMismatch, i, f.ID, meta.FragmentIDs[i])
		}
	}

	vectors, err := readVectors(filepath.Join(dir, vectorsFile))
	if err != nil {
		return nil, err
	}
	if vectors.Len() != len(fragments) || vectors.Dimension() != meta.Dimension {
		return nil, fmt.Errorf("%w: %d vectors of dimension %d", ErrCacheMismatch, vectors.Len(), vectors.Dimension())
	}

	graphData, err := os.ReadFile(filepath.Join(dir, graphFile))
	if err != nil {
		return nil, err
	}
	var g graph.Graph
	if err := json.Unmarshal(graphData, &g); err != nil {
		return nil, fmt.Errorf("%w: graph: %v", ErrCacheMismatch, err)
	}

	for i, f := range fragments {
		fragments[i] = f.WithEmbedding(vectors.Vector(i))
	}
	s := newSnapshot(root, fragments, vectors, &g, files)
	s.freshness = time.Unix(0, meta.FreshnessUnixNano)
	if meta.FreshnessUnixNano == 0 {
		s.freshness = time.Time{}
	}
	s.builtAt = meta.CreatedAt
	s.provider = meta.Provider
	s.model = meta.Model
	return s, nil
}

func readVectors(path string) (*vectorindex.Flat, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return vectorindex.Read(f)
}

func writeBytes(path string, data []byte) error {
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// writeAtomic writes through a temp file in the same directory and
// renames it over path
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		cleanup()
		return err
	}
	return nil
}
