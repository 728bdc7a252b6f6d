package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"unicode"
)

var identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// LocalProvider embeds text offline by feature hashing its identifiers.
// Each identifier contributes its whole lowercase form and, when it is
// a compound, each camelCase or snake_case part at half weight. Buckets
// are signed so collisions cancel rather than accumulate. Equal input
// always yields an equal vector.
type LocalProvider struct {
	model     string
	dimension int
	cache     *Cache
}

// NewLocalProvider creates the offline embedder
func NewLocalProvider(cfg Config, cache *Cache) *LocalProvider {
	cfg.Provider = ProviderLocal
	return &LocalProvider{
		model:     ModelFor(cfg),
		dimension: LocalDimension,
		cache:     cache,
	}
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return single(ctx, l, req)
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings, err := embedCached(ctx, l.cache, ProviderLocal, l.model, req.Texts, func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			vectors[i] = l.vector(text)
		}
		return vectors, nil
	})
	if err != nil {
		return nil, err
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

func (l *LocalProvider) vector(text string) []float32 {
	counts := make(map[string]float64)
	for _, ident := range identifierRe.FindAllString(text, -1) {
		whole := strings.ToLower(strings.Trim(ident, "_"))
		if len(whole) < 2 {
			continue
		}
		counts[whole]++
		parts := splitIdentifier(ident)
		if len(parts) < 2 {
			continue
		}
		for _, part := range parts {
			if len(part) >= 2 && part != whole {
				counts[part] += 0.5
			}
		}
	}

	vec := make([]float32, l.dimension)
	for term, tf := range counts {
		h := fnv.New64a()
		_, _ = h.Write([]byte(term))
		sum := h.Sum64()
		bucket := int(sum % uint64(l.dimension))
		weight := 1 + math.Log(tf)
		if tf < 1 {
			weight = tf
		}
		if sum>>63 == 1 {
			weight = -weight
		}
		vec[bucket] += float32(weight)
	}
	return vec
}

// splitIdentifier breaks snake_case and camelCase into lowercase parts.
// Acronym runs stay together: parseHTTPConfig gives parse, http, config.
func splitIdentifier(ident string) []string {
	var parts []string
	for _, piece := range strings.Split(ident, "_") {
		runes := []rune(piece)
		start := 0
		for i := 1; i < len(runes); i++ {
			prev, cur := runes[i-1], runes[i]
			boundary := unicode.IsLower(prev) && unicode.IsUpper(cur) ||
				unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) ||
				unicode.IsLetter(prev) && unicode.IsDigit(cur) ||
				unicode.IsDigit(prev) && unicode.IsLetter(cur)
			if boundary {
				parts = append(parts, strings.ToLower(string(runes[start:i])))
				start = i
			}
		}
		if start < len(runes) {
			parts = append(parts, strings.ToLower(string(runes[start:])))
		}
	}
	return parts
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}
