package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/codecontext/internal/embedder"
	"github.com/dshills/codecontext/internal/vectorindex"
	"github.com/dshills/codecontext/pkg/types"
)

const (
	// DefaultLimit is used when a request asks for k <= 0
	DefaultLimit = 10
	// OverFetchFactor scales k for the first nearest-neighbour pass
	OverFetchFactor = 3
	// PerFileCap bounds how many fragments of one file survive the first pass
	PerFileCap = 3
	// CurrentFileBoost rewards fragments of the caller's current file
	CurrentFileBoost = 1.5

	defaultCacheSize = 1000
	defaultCacheTTL  = time.Hour
)

// Corpus is a read-only indexed snapshot. Fragment(i) owns vector i.
type Corpus interface {
	// Generation changes whenever the snapshot is replaced
	Generation() uint64
	Len() int
	Fragment(ordinal int) *types.Fragment
	Nearest(query []float32, n int) ([]vectorindex.Hit, error)
	Score(query []float32, ordinal int) float64
	// FileOrdinals lists the ordinals of one file's fragments
	FileOrdinals(file string) []int
}

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query       string
	Limit       int
	CurrentFile string // relative path; its fragments get the boost
	UseCache    bool
	CacheTTL    time.Duration
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results     []types.SearchResult
	QueryVector []float32
	Candidates  int // size of the over-fetched pool
	Duration    time.Duration
	CacheHit    bool
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher ranks corpus fragments against natural-language queries
type Searcher struct {
	embedder embedder.Embedder
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// NewSearcher creates a new Searcher instance
func NewSearcher(emb embedder.Embedder) *Searcher {
	cache, err := lru.New[[32]byte, *cacheEntry](defaultCacheSize)
	if err != nil {
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	return &Searcher{
		embedder: emb,
		cache:    cache,
	}
}

// Search returns at most Limit fragments. The per-file cap is applied
// while walking the over-fetched pool in similarity order, before the
// current-file boost reorders the survivors.
func (s *Searcher) Search(ctx context.Context, corpus Corpus, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if corpus == nil || corpus.Len() == 0 {
		return &SearchResponse{Results: []types.SearchResult{}, Duration: time.Since(startTime)}, nil
	}

	key := computeQueryHash(req, corpus.Generation())
	if req.UseCache {
		if cached := s.checkCache(key); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	query, err := s.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	hits, err := corpus.Nearest(query, min(OverFetchFactor*req.Limit, corpus.Len()))
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	response := &SearchResponse{
		Results:     rank(corpus, hits, req.Limit, req.CurrentFile),
		QueryVector: query,
		Candidates:  len(hits),
		Duration:    time.Since(startTime),
	}

	if req.UseCache {
		s.storeInCache(key, req.CacheTTL, response)
	}
	return response, nil
}

// rank applies the per-file cap and current-file boost to hits, which
// arrive in descending similarity order
func rank(corpus Corpus, hits []vectorindex.Hit, limit int, currentFile string) []types.SearchResult {
	perFile := make(map[string]int)
	results := make([]types.SearchResult, 0, limit)

	for _, hit := range hits {
		f := corpus.Fragment(hit.Ordinal)
		if perFile[f.FilePath] >= PerFileCap {
			continue
		}
		perFile[f.FilePath]++

		score := hit.Score
		if currentFile != "" && f.FilePath == currentFile {
			score = Boost(score)
		}
		results = append(results, types.SearchResult{Fragment: f, Score: score, RawScore: hit.Score})
		if len(results) == limit {
			break
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

// Boost raises a similarity score by CurrentFileBoost. Negative scores
// move toward zero so a boosted fragment never ranks lower.
func Boost(score float64) float64 {
	if score >= 0 {
		return score * CurrentFileBoost
	}
	return score / CurrentFileBoost
}

// EmbedQuery turns a query into a unit vector
func (s *Searcher) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not initialized")
	}
	if strings.TrimSpace(query) == "" {
		return nil, types.ErrEmptyQuery
	}
	emb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return emb.Vector, nil
}

// BestInFile returns the fragment of file most similar to query
func BestInFile(corpus Corpus, query []float32, file string) (types.SearchResult, bool) {
	best := types.SearchResult{Score: -2}
	found := false
	for _, ord := range corpus.FileOrdinals(file) {
		score := corpus.Score(query, ord)
		if !found || score > best.Score {
			best = types.SearchResult{Fragment: corpus.Fragment(ord), Rank: 1, Score: score, RawScore: score}
			found = true
		}
	}
	return best, found
}

// validateRequest ensures search request is valid
func validateRequest(req *SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return types.ErrEmptyQuery
	}
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.CacheTTL == 0 {
		req.CacheTTL = defaultCacheTTL
	}
	return nil
}

// checkCache looks up cached search results
func (s *Searcher) checkCache(key [32]byte) *SearchResponse {
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(key)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}
	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		return nil
	}
	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()
	return response
}

// storeInCache saves search results to cache
func (s *Searcher) storeInCache(key [32]byte, ttl time.Duration, response *SearchResponse) {
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(ttl),
	}
	s.cacheMu.Lock()
	s.cache.Add(key, entry)
	s.cacheMu.Unlock()
}

// copySearchResponse copies the result slice. Fragments are immutable
// once indexed and are shared.
func copySearchResponse(src *SearchResponse) *SearchResponse {
	dst := *src
	dst.Results = append([]types.SearchResult(nil), src.Results...)
	return &dst
}

// computeQueryHash keys a request to the snapshot it ran against
func computeQueryHash(req SearchRequest, generation uint64) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	fmt.Fprintf(&data, "%d|%d|", req.Limit, generation)
	data.WriteString(req.CurrentFile)
	return sha256.Sum256([]byte(data.String()))
}

// InvalidateCache drops every cached response
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheSize returns the number of cached responses
func (s *Searcher) CacheSize() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}
