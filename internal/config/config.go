package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dshills/codecontext/internal/embedder"
	"github.com/dshills/codecontext/internal/indexer"
)

// EnvConfigPath names the config file when --config is not given
const EnvConfigPath = "CODECONTEXT_CONFIG"

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete runtime configuration
type Config struct {
	CacheDir  string          `toml:"cache_dir" yaml:"cache_dir"`
	LogLevel  string          `toml:"log_level" yaml:"log_level"`
	Watch     bool            `toml:"watch" yaml:"watch"`
	Embedding EmbeddingConfig `toml:"embedding" yaml:"embedding"`
	Index     IndexConfig     `toml:"index" yaml:"index"`
	Context   ContextConfig   `toml:"context" yaml:"context"`
}

// EmbeddingConfig selects the embedding provider
type EmbeddingConfig struct {
	// Provider is local, openai or jina. Empty picks jina or openai when
	// their API key is set, else local.
	Provider  string `toml:"provider" yaml:"provider"`
	Model     string `toml:"model" yaml:"model"`
	APIKey    string `toml:"api_key" yaml:"api_key"`
	BaseURL   string `toml:"base_url" yaml:"base_url"`
	CacheSize int    `toml:"cache_size" yaml:"cache_size"`
}

// IndexConfig tunes indexing
type IndexConfig struct {
	Workers         int      `toml:"workers" yaml:"workers"`
	MaxFileSize     int64    `toml:"max_file_size" yaml:"max_file_size"`
	ExtraIgnoreDirs []string `toml:"extra_ignore_dirs" yaml:"extra_ignore_dirs"`
}

// ContextConfig tunes context assembly
type ContextConfig struct {
	MaxTokens int `toml:"max_tokens" yaml:"max_tokens"`
}

// Default returns the compiled-in configuration
func Default() *Config {
	cacheDir := filepath.Join(os.TempDir(), "codecontext")
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, "codecontext")
	}
	return &Config{
		CacheDir: cacheDir,
		LogLevel: "info",
		Embedding: EmbeddingConfig{
			CacheSize: 10000,
		},
		Index: IndexConfig{
			MaxFileSize: indexer.DefaultMaxFileSize,
		},
		Context: ContextConfig{
			MaxTokens: 20000,
		},
	}
}

// Load builds the configuration: defaults, then the config file at path
// (or $CODECONTEXT_CONFIG), then .env in the working directory, then the
// environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := LoadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes a TOML or YAML file over cfg, chosen by extension
func LoadFile(cfg *Config, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
		}
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}
	return nil
}

// ApplyEnvOverrides overlays environment variables on cfg
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv("CODECONTEXT_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("CODECONTEXT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CODECONTEXT_EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("CODECONTEXT_EMBEDDING_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("CODECONTEXT_EMBEDDING_BASE_URL"); v != "" {
		c.Embedding.BaseURL = v
	}
	if v := os.Getenv("CODECONTEXT_WATCH"); v != "" {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: CODECONTEXT_WATCH=%q", ErrInvalidConfig, v)
		}
		c.Watch = watch
	}
	if v := os.Getenv("CODECONTEXT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: CODECONTEXT_WORKERS=%q", ErrInvalidConfig, v)
		}
		c.Index.Workers = n
	}
	if v := os.Getenv("CODECONTEXT_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: CODECONTEXT_MAX_TOKENS=%q", ErrInvalidConfig, v)
		}
		c.Context.MaxTokens = n
	}
	return nil
}

// SetDefaults resolves the provider and its API key
func (c *Config) SetDefaults() {
	c.Embedding.Provider = strings.ToLower(strings.TrimSpace(c.Embedding.Provider))
	jinaKey := os.Getenv("JINA_API_KEY")
	openaiKey := os.Getenv("OPENAI_API_KEY")

	if c.Embedding.Provider == "" {
		switch {
		case jinaKey != "":
			c.Embedding.Provider = embedder.ProviderJina
		case openaiKey != "":
			c.Embedding.Provider = embedder.ProviderOpenAI
		default:
			c.Embedding.Provider = embedder.ProviderLocal
		}
	}
	if c.Embedding.APIKey == "" {
		switch c.Embedding.Provider {
		case embedder.ProviderJina:
			c.Embedding.APIKey = jinaKey
		case embedder.ProviderOpenAI:
			c.Embedding.APIKey = openaiKey
		}
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
}

// Validate rejects settings that cannot work
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case embedder.ProviderLocal, embedder.ProviderOpenAI, embedder.ProviderJina:
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, c.Embedding.Provider)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.Index.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	if c.Index.MaxFileSize < 0 {
		return fmt.Errorf("%w: max_file_size must not be negative", ErrInvalidConfig)
	}
	if c.Context.MaxTokens < 0 {
		return fmt.Errorf("%w: max_tokens must not be negative", ErrInvalidConfig)
	}
	if c.Embedding.CacheSize < 0 {
		return fmt.Errorf("%w: embedding cache_size must not be negative", ErrInvalidConfig)
	}
	if c.CacheDir == "" {
		return fmt.Errorf("%w: cache_dir is required", ErrInvalidConfig)
	}
	return nil
}

// EmbedderConfig returns the embedder settings
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:  c.Embedding.Provider,
		Model:     c.Embedding.Model,
		APIKey:    c.Embedding.APIKey,
		BaseURL:   c.Embedding.BaseURL,
		CacheSize: c.Embedding.CacheSize,
	}
}

// IndexerConfig returns the indexer settings
func (c *Config) IndexerConfig() indexer.Config {
	return indexer.Config{
		Workers: c.Index.Workers,
		Policy: indexer.Policy{
			ExtraIgnoreDirs: c.Index.ExtraIgnoreDirs,
			MaxFileSize:     c.Index.MaxFileSize,
		},
	}
}
