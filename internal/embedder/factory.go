package embedder

import (
	"fmt"
	"strings"
)

// Provider configuration
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultLocalModel  = "feature-hash-v1"

	// Default endpoints
	DefaultJinaBaseURL = "https://api.jina.ai/v1"

	// Dimensions
	JinaDimension  = 1024
	LocalDimension = 384

	// Batch limits
	DefaultBatchSize = 50
	MaxBatchSize     = 100

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// Config selects and configures a provider
type Config struct {
	Provider  string // jina, openai or local; empty means local
	Model     string // empty selects the provider default
	APIKey    string
	BaseURL   string // OpenAI-compatible or Jina endpoint override
	CacheSize int    // 0 disables the embedding cache
}

// New creates an embedder from cfg
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderJina:
		return NewJinaProvider(cfg, cache)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg, cache)
	case ProviderLocal, "":
		return NewLocalProvider(cfg, cache), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// ModelFor returns the model a provider uses when cfg names none
func ModelFor(cfg Config) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	switch strings.ToLower(cfg.Provider) {
	case ProviderJina:
		return DefaultJinaModel
	case ProviderOpenAI:
		return DefaultOpenAIModel
	default:
		return DefaultLocalModel
	}
}
