package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codecontext/internal/embedder"
	"github.com/dshills/codecontext/internal/indexer"
	"github.com/dshills/codecontext/pkg/types"
)

const twoFunctions = `def load_config(path):
    with open(path) as f:
        return f.read()


def save_config(path, data):
    with open(path, "w") as f:
        f.write(data)
`

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newManager(t *testing.T, cacheDir string) *Manager {
	t.Helper()
	m := NewManager(embedder.NewLocalProvider(embedder.Config{}, nil), Config{
		CacheDir: cacheDir,
		Indexer:  indexer.Config{Workers: 2},
	})
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func project(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "config.py", twoFunctions)
	writeFile(t, root, "web/app.js", "import { load } from './util'\nexport function start() { return load() }\n")
	writeFile(t, root, "web/util.js", "export function load() {\n  return 1\n}\n")
	return root
}

func ids(results []types.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Fragment.ID
	}
	return out
}

func TestCacheDirFor(t *testing.T) {
	a := CacheDirFor("/cache", "/src/shop")
	assert.Equal(t, a, CacheDirFor("/cache", "/src/shop"))
	assert.NotEqual(t, a, CacheDirFor("/cache", "/src/blog"))
	assert.Len(t, filepath.Base(a), 16)
	assert.Equal(t, "/cache", filepath.Dir(a))
}

func TestTwoFunctionScenario(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.py", twoFunctions)
	m := newManager(t, t.TempDir())
	ctx := context.Background()

	res, err := m.Index(ctx, root, false)
	require.NoError(t, err)
	assert.True(t, res.Rebuilt)

	p, s, err := m.snapshotFor(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, p.root, s.root)
	functions := 0
	for _, f := range s.fragments {
		if f.Kind == types.KindFunction {
			functions++
		} else {
			assert.Equal(t, types.KindModule, f.Kind)
		}
	}
	assert.Equal(t, 2, functions)

	for _, name := range []string{"load_config", "save_config"} {
		resp, err := m.Search(ctx, root, name, 5, "")
		require.NoError(t, err)
		require.NotEmpty(t, resp.Results)
		assert.Equal(t, []string{name}, resp.Results[0].Fragment.Functions)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	root := project(t)
	cacheDir := t.TempDir()
	ctx := context.Background()

	first := newManager(t, cacheDir)
	res, err := first.Index(ctx, root, false)
	require.NoError(t, err)
	assert.True(t, res.Rebuilt)
	before, err := first.Search(ctx, root, "load the configuration", 5, "")
	require.NoError(t, err)

	p, _ := first.Project(root)
	for _, name := range []string{fragmentsFile, vectorsFile, graphFile, metadataFile} {
		assert.FileExists(t, filepath.Join(p.CacheDir(), name))
	}

	second := newManager(t, cacheDir)
	res, err = second.Index(ctx, root, false)
	require.NoError(t, err)
	assert.False(t, res.Rebuilt)
	assert.True(t, res.FromCache)

	after, err := second.Search(ctx, root, "load the configuration", 5, "")
	require.NoError(t, err)
	assert.Equal(t, ids(before.Results), ids(after.Results))
	for i := range before.Results {
		assert.InDelta(t, before.Results[i].Score, after.Results[i].Score, 1e-6)
	}

	_, s, err := second.snapshotFor(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, []string{"web/util.js"}, s.graph.Dependencies("web/app.js"))
	assert.Equal(t, s.vectors.Len(), len(s.fragments))
}

func TestTouchedFileForcesRebuild(t *testing.T) {
	root := project(t)
	cacheDir := t.TempDir()
	ctx := context.Background()

	_, err := newManager(t, cacheDir).Index(ctx, root, false)
	require.NoError(t, err)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "web", "util.js"), later, later))

	res, err := newManager(t, cacheDir).Index(ctx, root, false)
	require.NoError(t, err)
	assert.True(t, res.Rebuilt)
}

func TestIgnoredFileDoesNotInvalidate(t *testing.T) {
	root := project(t)
	cacheDir := t.TempDir()
	ctx := context.Background()

	_, err := newManager(t, cacheDir).Index(ctx, root, false)
	require.NoError(t, err)

	dep := writeFile(t, root, "node_modules/lib/index.js", "module.exports = 1\n")
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(dep, later, later))

	res, err := newManager(t, cacheDir).Index(ctx, root, false)
	require.NoError(t, err)
	assert.False(t, res.Rebuilt)
}

func TestCorruptCacheRebuilds(t *testing.T) {
	root := project(t)
	cacheDir := t.TempDir()
	ctx := context.Background()

	m := newManager(t, cacheDir)
	_, err := m.Index(ctx, root, false)
	require.NoError(t, err)
	p, _ := m.Project(root)

	tests := []struct {
		name   string
		damage func()
	}{
		{"truncated vectors", func() {
			require.NoError(t, os.Truncate(filepath.Join(p.CacheDir(), vectorsFile), 20))
		}},
		{"missing graph", func() {
			require.NoError(t, os.Remove(filepath.Join(p.CacheDir(), graphFile)))
		}},
		{"garbled metadata", func() {
			require.NoError(t, os.WriteFile(filepath.Join(p.CacheDir(), metadataFile), []byte("{"), 0o644))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.damage()
			res, err := newManager(t, cacheDir).Index(ctx, root, false)
			require.NoError(t, err)
			assert.True(t, res.Rebuilt)
		})
	}
}

func TestLoadRejectsOtherModel(t *testing.T) {
	root := project(t)
	m := newManager(t, t.TempDir())
	ctx := context.Background()
	_, err := m.Index(ctx, root, false)
	require.NoError(t, err)
	p, _ := m.Project(root)

	want := p.expectation(time.Time{})
	want.model = "another-model"
	_, err = loadSnapshot(ctx, p.CacheDir(), p.Root(), want)
	assert.ErrorIs(t, err, ErrCacheMismatch)

	want = p.expectation(time.Now().Add(time.Hour))
	_, err = loadSnapshot(ctx, p.CacheDir(), p.Root(), want)
	assert.ErrorIs(t, err, ErrStaleCache)
}

func TestInvalidate(t *testing.T) {
	root := project(t)
	m := newManager(t, t.TempDir())
	ctx := context.Background()

	_, err := m.Search(ctx, root, "load", 3, "")
	require.NoError(t, err)
	st, err := m.Status(ctx, root)
	require.NoError(t, err)
	assert.True(t, st.Loaded)
	assert.True(t, st.Cached)
	assert.Equal(t, 3, st.Files)

	require.NoError(t, m.Invalidate(root))
	st, err = m.Status(ctx, root)
	require.NoError(t, err)
	assert.False(t, st.Loaded)
	assert.False(t, st.Cached)
	assert.NoDirExists(t, st.CacheDir)

	resp, err := m.Search(ctx, root, "load", 3, "")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Results)
	assert.False(t, resp.CacheHit)
}

func TestStatusFromDiskCache(t *testing.T) {
	root := project(t)
	cacheDir := t.TempDir()
	ctx := context.Background()
	_, err := newManager(t, cacheDir).Index(ctx, root, false)
	require.NoError(t, err)

	st, err := newManager(t, cacheDir).Status(ctx, root)
	require.NoError(t, err)
	assert.False(t, st.Loaded)
	assert.True(t, st.Cached)
	assert.Equal(t, 3, st.Files)
	assert.Equal(t, 2, st.Languages[types.LangJavaScript])
}

func TestOutline(t *testing.T) {
	root := project(t)
	cacheDir := t.TempDir()
	ctx := context.Background()

	m := newManager(t, cacheDir)
	_, err := m.Outline(ctx, root, "config.py")
	assert.ErrorIs(t, err, ErrNotIndexed)

	_, err = m.Index(ctx, root, false)
	require.NoError(t, err)

	cfg, err := m.Outline(ctx, root, filepath.Join(root, "config.py"))
	require.NoError(t, err)
	assert.Equal(t, "config.py", cfg.Path)
	assert.Equal(t, types.LangPython, cfg.Language)
	require.NotEmpty(t, cfg.Fragments)
	total := 0
	for i, f := range cfg.Fragments {
		if i > 0 {
			assert.GreaterOrEqual(t, f.StartLine, cfg.Fragments[i-1].StartLine)
		}
		total += f.Tokens
	}
	assert.Equal(t, total, cfg.Tokens)
	assert.Greater(t, cfg.Tokens, 0)

	app, err := m.Outline(ctx, root, "web/app.js")
	require.NoError(t, err)
	require.Len(t, app.Dependencies, 1)
	assert.Equal(t, "web/util.js", app.Dependencies[0].File)
	assert.Equal(t, []string{"load"}, app.Dependencies[0].Symbols)

	util, err := m.Outline(ctx, root, "web/util.js")
	require.NoError(t, err)
	assert.Contains(t, util.Exports, "load")
	assert.Equal(t, []string{"web/app.js"}, util.Dependents)

	_, err = m.Outline(ctx, root, "web/missing.js")
	assert.ErrorIs(t, err, types.ErrFileNotFound)

	// a fresh manager answers from the disk cache without loading it
	cold := newManager(t, cacheDir)
	fromDisk, err := cold.Outline(ctx, root, "web/app.js")
	require.NoError(t, err)
	assert.Equal(t, app, fromDisk)
	p, err := cold.Project(root)
	require.NoError(t, err)
	assert.False(t, p.Loaded())

	fromDisk, err = cold.Outline(ctx, root, "config.py")
	require.NoError(t, err)
	assert.Equal(t, cfg, fromDisk)
}

func TestSearchArguments(t *testing.T) {
	root := project(t)
	m := newManager(t, t.TempDir())
	ctx := context.Background()

	_, err := m.Search(ctx, root, " ", 3, "")
	assert.ErrorIs(t, err, types.ErrEmptyQuery)

	_, err = m.Search(ctx, filepath.Join(root, "missing"), "load", 3, "")
	assert.ErrorIs(t, err, types.ErrInvalidRoot)

	_, err = m.Search(ctx, filepath.Join(root, "config.py"), "load", 3, "")
	assert.ErrorIs(t, err, types.ErrInvalidRoot)

	abs, err := m.Search(ctx, root, "load", 3, filepath.Join(root, "web", "util.js"))
	require.NoError(t, err)
	rel, err := m.Search(ctx, root, "load", 3, "web/util.js")
	require.NoError(t, err)
	assert.Equal(t, ids(rel.Results), ids(abs.Results))
	assert.True(t, rel.CacheHit, "absolute and relative current files share a cache entry")
}

func TestEmptyProject(t *testing.T) {
	root := t.TempDir()
	m := newManager(t, t.TempDir())
	ctx := context.Background()

	resp, err := m.Search(ctx, root, "anything", 0, "")
	require.NoError(t, err)
	assert.Empty(t, resp.Results)

	bundle, err := m.GetContext(ctx, root, "fix anything", "", 0)
	require.NoError(t, err)
	assert.Empty(t, bundle.FilePaths)
}

func TestGetContext(t *testing.T) {
	root := project(t)
	m := newManager(t, t.TempDir())

	bundle, err := m.GetContext(context.Background(), root, "fix the load function", "web/app.js", 5000)
	require.NoError(t, err)
	assert.NotEmpty(t, bundle.Metadata.FullFiles)
	assert.LessOrEqual(t, bundle.TotalChars(), 5000*types.CharsPerToken)
}

func TestConcurrentQueriesDuringRebuild(t *testing.T) {
	root := project(t)
	m := newManager(t, t.TempDir())
	ctx := context.Background()
	_, err := m.Index(ctx, root, false)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := m.Search(ctx, root, "load", 3, "")
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := m.Index(ctx, root, true)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module example.com/x\n")
	file := writeFile(t, root, "internal/pkg/x.go", "package pkg\n")

	got, err := FindProjectRoot(file)
	require.NoError(t, err)
	assert.Equal(t, root, got)

	got, err = FindProjectRoot(filepath.Join(root, "internal"))
	require.NoError(t, err)
	assert.Equal(t, root, got)

	_, err = FindProjectRoot(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestRelativeTo(t *testing.T) {
	root := filepath.FromSlash("/src/shop")
	assert.Equal(t, "", relativeTo(root, ""))
	assert.Equal(t, "web/app.js", relativeTo(root, filepath.FromSlash("/src/shop/web/app.js")))
	assert.Equal(t, "web/app.js", relativeTo(root, "web/./app.js"))
	assert.Equal(t, "/elsewhere/x.py", relativeTo(root, filepath.FromSlash("/elsewhere/x.py")))
}
