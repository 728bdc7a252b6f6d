package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codecontext/internal/embedder"
)

// isolate clears every variable Load reads and runs in an empty directory
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		EnvConfigPath, "CODECONTEXT_CACHE_DIR", "CODECONTEXT_LOG_LEVEL",
		"CODECONTEXT_EMBEDDING_PROVIDER", "CODECONTEXT_EMBEDDING_MODEL",
		"CODECONTEXT_EMBEDDING_BASE_URL", "CODECONTEXT_WATCH", "CODECONTEXT_WORKERS",
		"CODECONTEXT_MAX_TOKENS", "OPENAI_API_KEY", "JINA_API_KEY",
	} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, embedder.ProviderLocal, cfg.Embedding.Provider)
	assert.Equal(t, 20000, cfg.Context.MaxTokens)
	assert.Equal(t, int64(1<<20), cfg.Index.MaxFileSize)
	assert.Equal(t, "codecontext", filepath.Base(cfg.CacheDir))
	assert.False(t, cfg.Watch)
}

func TestLoadYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "codecontext.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cache_dir: /var/cache/cc
log_level: debug
embedding:
  provider: openai
  model: nomic-embed-text
  base_url: http://localhost:11434/v1
index:
  workers: 4
  extra_ignore_dirs: [generated, fixtures]
context:
  max_tokens: 8000
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/cache/cc", cfg.CacheDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, embedder.ProviderOpenAI, cfg.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, 4, cfg.Index.Workers)
	assert.Equal(t, []string{"generated", "fixtures"}, cfg.Index.ExtraIgnoreDirs)
	assert.Equal(t, 8000, cfg.Context.MaxTokens)
	assert.Equal(t, 10000, cfg.Embedding.CacheSize, "unset keys keep defaults")

	ic := cfg.IndexerConfig()
	assert.Equal(t, 4, ic.Workers)
	assert.True(t, ic.Policy.IgnoreDir("fixtures"))
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbedderConfig().BaseURL)
}

func TestLoadTOML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "codecontext.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "warn"
watch = true

[embedding]
provider = "jina"
api_key = "from-file"

[context]
max_tokens = 1000
`), 0o644))

	t.Setenv(EnvConfigPath, path)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.Watch)
	assert.Equal(t, embedder.ProviderJina, cfg.Embedding.Provider)
	assert.Equal(t, "from-file", cfg.Embedding.APIKey)
	assert.Equal(t, 1000, cfg.Context.MaxTokens)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\ncontext:\n  max_tokens: 10\n"), 0o644))

	t.Setenv("CODECONTEXT_LOG_LEVEL", "ERROR")
	t.Setenv("CODECONTEXT_MAX_TOKENS", "500")
	t.Setenv("CODECONTEXT_WATCH", "true")
	t.Setenv("CODECONTEXT_CACHE_DIR", "/tmp/cc")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 500, cfg.Context.MaxTokens)
	assert.True(t, cfg.Watch)
	assert.Equal(t, "/tmp/cc", cfg.CacheDir)
}

func TestDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("OPENAI_API_KEY=sk-dotenv\nCODECONTEXT_WORKERS=3\n"), 0o644))
	t.Cleanup(func() {
		_ = os.Unsetenv("OPENAI_API_KEY")
		_ = os.Unsetenv("CODECONTEXT_WORKERS")
	})
	// godotenv never overrides variables that are already set, and
	// t.Setenv("", ...) counts as set, so drop them first
	require.NoError(t, os.Unsetenv("OPENAI_API_KEY"))
	require.NoError(t, os.Unsetenv("CODECONTEXT_WORKERS"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, embedder.ProviderOpenAI, cfg.Embedding.Provider)
	assert.Equal(t, "sk-dotenv", cfg.Embedding.APIKey)
	assert.Equal(t, 3, cfg.Index.Workers)
}

func TestProviderAutoDetect(t *testing.T) {
	tests := []struct {
		name     string
		jina     string
		openai   string
		explicit string
		want     string
		wantKey  string
	}{
		{"nothing set", "", "", "", embedder.ProviderLocal, ""},
		{"openai key", "", "sk-1", "", embedder.ProviderOpenAI, "sk-1"},
		{"jina wins", "jina-1", "sk-1", "", embedder.ProviderJina, "jina-1"},
		{"explicit local", "jina-1", "sk-1", "local", embedder.ProviderLocal, ""},
		{"explicit openai", "jina-1", "sk-1", "OpenAI", embedder.ProviderOpenAI, "sk-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv("JINA_API_KEY", tt.jina)
			t.Setenv("OPENAI_API_KEY", tt.openai)
			t.Setenv("CODECONTEXT_EMBEDDING_PROVIDER", tt.explicit)

			cfg, err := Load("")
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Embedding.Provider)
			assert.Equal(t, tt.wantKey, cfg.Embedding.APIKey)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"provider", func(c *Config) { c.Embedding.Provider = "cohere" }},
		{"log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"workers", func(c *Config) { c.Index.Workers = -1 }},
		{"file size", func(c *Config) { c.Index.MaxFileSize = -1 }},
		{"cache size", func(c *Config) { c.Embedding.CacheSize = -5 }},
		{"max tokens", func(c *Config) { c.Context.MaxTokens = -1 }},
		{"cache dir", func(c *Config) { c.CacheDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Embedding.Provider = embedder.ProviderLocal
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestBadInputs(t *testing.T) {
	dir := isolate(t)

	t.Setenv("CODECONTEXT_WORKERS", "many")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	t.Setenv("CODECONTEXT_WORKERS", "")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("CODECONTEXT_MAX_TOKENS", "-100")
	_, err = Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	t.Setenv("CODECONTEXT_MAX_TOKENS", "")

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("log_level = "), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}
