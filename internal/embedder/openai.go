package embedder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// openAIDimensions lists vector sizes of the hosted models
var openAIDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIProvider implements Embedder with the OpenAI embeddings API.
// Setting BaseURL points it at any OpenAI-compatible server, in which
// case the API key may be empty.
type OpenAIProvider struct {
	client     *openai.Client
	httpClient *http.Client
	model      string
	cache      *Cache
	retry      RetryConfig
	dimension  atomic.Int64
}

// NewOpenAIProvider creates an OpenAI embedder
func NewOpenAIProvider(cfg Config, cache *Cache) (*OpenAIProvider, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: openai requires an API key or a base URL", ErrNoProviderEnabled)
	}
	cfg.Provider = ProviderOpenAI

	httpClient := &http.Client{Timeout: 30 * time.Second}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = httpClient

	p := &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientCfg),
		httpClient: httpClient,
		model:      ModelFor(cfg),
		cache:      cache,
		retry:      DefaultRetryConfig(),
	}
	p.dimension.Store(int64(openAIDimensions[p.model]))
	return p, nil
}

func (o *OpenAIProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return single(ctx, o, req)
}

func (o *OpenAIProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings, err := embedCached(ctx, o.cache, ProviderOpenAI, o.model, req.Texts, func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors, attempts, err := retryWithBackoff(ctx, o.retry, func() ([][]float32, error) {
			return o.callAPI(ctx, texts)
		})
		if err != nil {
			return nil, fmt.Errorf("%w after %d attempts: %v", ErrProviderFailed, attempts, err)
		}
		return vectors, nil
	})
	if err != nil {
		return nil, err
	}
	if len(embeddings) > 0 {
		o.dimension.Store(int64(embeddings[0].Dimension))
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderOpenAI,
		Model:      o.model,
	}, nil
}

func (o *OpenAIProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(o.model),
	})
	if err != nil {
		if status := statusOf(err); status != 0 && !isRetryableStatus(status) {
			return nil, permanent(err)
		}
		return nil, err
	}

	data := resp.Data
	sort.SliceStable(data, func(a, b int) bool { return data[a].Index < data[b].Index })
	vectors := make([][]float32, len(data))
	for i, d := range data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// statusOf extracts the HTTP status from a go-openai error, or 0
func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// Dimension is known up front for hosted models and learned from the
// first response otherwise
func (o *OpenAIProvider) Dimension() int {
	return int(o.dimension.Load())
}

func (o *OpenAIProvider) Provider() string {
	return ProviderOpenAI
}

func (o *OpenAIProvider) Model() string {
	return o.model
}

func (o *OpenAIProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}
