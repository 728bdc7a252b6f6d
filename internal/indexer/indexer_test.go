package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codecontext/internal/embedder"
	"github.com/dshills/codecontext/pkg/types"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func localEmbedder() embedder.Embedder {
	return embedder.NewLocalProvider(embedder.Config{}, nil)
}

const twoFunctions = `def load_config(path):
    with open(path) as f:
        return f.read()


def save_config(path, data):
    with open(path, "w") as f:
        f.write(data)
`

func TestPolicy(t *testing.T) {
	p := Policy{ExtraIgnoreDirs: []string{"generated"}, MaxFileSize: 10}

	assert.True(t, p.IgnoreDir("node_modules"))
	assert.True(t, p.IgnoreDir(".cache"))
	assert.True(t, p.IgnoreDir("generated"))
	assert.False(t, p.IgnoreDir("src"))

	assert.True(t, p.IgnoreFile("app.min.js", 1))
	assert.True(t, p.IgnoreFile("bundle.js.map", 1))
	assert.True(t, p.IgnoreFile("go.sum", 1))
	assert.True(t, p.IgnoreFile(".env.local", 1))
	assert.True(t, p.IgnoreFile("big.py", 11))
	assert.False(t, p.IgnoreFile("small.py", 10))

	assert.True(t, p.IgnorePath("web/node_modules/react/index.js", -1))
	assert.True(t, p.IgnorePath("generated/x.py", -1))
	assert.False(t, p.IgnorePath("src/app.py", -1))

	assert.True(t, Supported("a/B.TSX"))
	assert.False(t, Supported("Makefile"))
}

func TestScanProject(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)

	touch(t, writeFile(t, root, "app.py", "x = 1\n"), base)
	touch(t, writeFile(t, root, "web/index.html", "<html></html>\n"), base)
	makefile := writeFile(t, root, "Makefile", "all:\n")
	touch(t, makefile, base.Add(time.Minute))
	touch(t, writeFile(t, root, "node_modules/lib/index.js", "x"), base.Add(time.Hour))
	touch(t, writeFile(t, root, ".git/HEAD", "ref"), base.Add(time.Hour))

	scan, err := ScanProject(root, Policy{})
	require.NoError(t, err)

	var paths []string
	for _, f := range scan.Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"app.py", "web/index.html"}, paths)
	assert.True(t, scan.Freshness.Equal(base.Add(time.Minute)), "unsupported files count, ignored ones do not")

	_, err = ScanProject(filepath.Join(root, "missing"), Policy{})
	assert.Error(t, err)
}

func TestIndexProject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.py", twoFunctions)
	writeFile(t, root, "empty.py", "  \n\n")
	writeFile(t, root, "web/app.js", "import { load } from './util'\nexport function start() { return load() }\n")
	writeFile(t, root, "web/util.js", "export function load() {\n  return 1\n}\n")

	idx := New(localEmbedder(), Config{Workers: 2})
	snap, err := idx.IndexProject(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 4, snap.Stats.FilesScanned)
	assert.Equal(t, 3, snap.Stats.FilesIndexed)
	assert.Equal(t, 1, snap.Stats.FilesSkipped)
	assert.Equal(t, snap.Vectors.Len(), len(snap.Fragments))
	assert.Equal(t, embedder.ProviderLocal, snap.Provider)

	var functions []*types.Fragment
	for i, f := range snap.Fragments {
		require.NotNil(t, f.Embedding)
		assert.Equal(t, snap.Vectors.Vector(i), f.Embedding)
		if f.FilePath == "config.py" && f.Kind == types.KindFunction {
			functions = append(functions, f)
		}
	}
	require.Len(t, functions, 2)
	assert.Equal(t, []string{"load_config"}, functions[0].Functions)
	assert.Equal(t, []string{"save_config"}, functions[1].Functions)

	assert.Equal(t, []string{"web/util.js"}, snap.Graph.Dependencies("web/app.js"))

	require.Len(t, snap.Files, 3)
	assert.Equal(t, "config.py", snap.Files[0].Path)
	assert.Equal(t, types.LangPython, snap.Files[0].Language)

	again, err := idx.IndexProject(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, len(snap.Fragments), len(again.Fragments))
	for i := range snap.Fragments {
		assert.Equal(t, snap.Fragments[i].ID, again.Fragments[i].ID)
	}
}

func TestIndexProjectEmptyTree(t *testing.T) {
	snap, err := New(localEmbedder(), Config{}).IndexProject(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, snap.Fragments)
	assert.Equal(t, 0, snap.Vectors.Len())
	assert.Equal(t, embedder.LocalDimension, snap.Vectors.Dimension())
}

// flakyEmbedder rejects every multi-text batch and any text containing
// "poison"
type flakyEmbedder struct {
	embedder.Embedder
}

func (f flakyEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	if len(req.Texts) > 1 {
		return nil, errors.New("batch rejected")
	}
	return f.Embedder.GenerateBatch(ctx, req)
}

func (f flakyEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	if strings.Contains(req.Text, "poison") {
		return nil, errors.New("rejected")
	}
	return f.Embedder.GenerateEmbedding(ctx, req)
}

func TestEmbeddingFailuresDropFragments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def good():\n    return 1\n")
	writeFile(t, root, "b.py", "def poison():\n    return 2\n")

	idx := New(flakyEmbedder{localEmbedder()}, Config{BatchSize: 10})
	snap, err := idx.IndexProject(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, snap.Fragments, 1)
	assert.Equal(t, "a.py", snap.Fragments[0].FilePath)
	assert.Equal(t, 1, snap.Vectors.Len())
	assert.Equal(t, 1, snap.Stats.FragmentsDropped)
	require.Len(t, snap.Files, 1, "files without fragments are not recorded")
}

func TestIndexProjectCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", twoFunctions)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(localEmbedder(), Config{}).IndexProject(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseGoMod(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "go.mod", "// shop service\nmodule \"example.com/shop\"\n\ngo 1.22\n")

	info, err := parseGoMod(path)
	require.NoError(t, err)
	assert.Equal(t, "example.com/shop", info.Module)

	_, err = parseGoMod(filepath.Join(root, "missing.mod"))
	assert.Error(t, err)
}
