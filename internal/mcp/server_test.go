package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codecontext/internal/embedder"
	"github.com/dshills/codecontext/internal/index"
	"github.com/dshills/codecontext/internal/indexer"
	"github.com/dshills/codecontext/internal/watcher"
)

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	m := index.NewManager(embedder.NewLocalProvider(embedder.Config{}, nil), index.Config{
		CacheDir: t.TempDir(),
		Indexer:  indexer.Config{Workers: 2},
	})
	s := NewServer(m, opts...)
	t.Cleanup(func() {
		_ = s.Close()
		_ = m.Close()
	})
	return s
}

func testProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"config.py":          "def load_config(path):\n    with open(path) as f:\n        return f.read()\n",
		"src/Button.jsx":     "import './Button.css'\nexport function Button() {\n  return <button className=\"btn\">Go</button>\n}\n",
		"src/Button.css":     ".btn {\n  color: red;\n}\n",
		"src/util/format.js": "export function formatDate(d) {\n  return d.toISOString()\n}\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func call(t *testing.T, h handler, args interface{}) (*mcp.CallToolResult, map[string]interface{}) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err, "failures are reported as tool results")
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)

	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &body))
	return res, body
}

func errorCode(t *testing.T, body map[string]interface{}) int {
	t.Helper()
	e, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "error payload expected: %v", body)
	return int(e["code"].(float64))
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t)
	assert.NotNil(t, s.mcp)
	assert.NotNil(t, s.manager)
	assert.False(t, s.watch)
	assert.NoError(t, s.Close())
}

func TestIndexProject(t *testing.T) {
	s := newTestServer(t)
	root := testProject(t)

	res, body := call(t, s.handleIndexProject, map[string]interface{}{"path": root})
	assert.False(t, res.IsError)
	assert.Equal(t, true, body["rebuilt"])
	assert.Equal(t, float64(4), body["files"])
	assert.Greater(t, body["fragments"].(float64), float64(0))
	stats := body["statistics"].(map[string]interface{})
	assert.Equal(t, float64(4), stats["files_indexed"])

	_, body = call(t, s.handleIndexProject, map[string]interface{}{"path": root})
	assert.Equal(t, false, body["rebuilt"], "fresh index is reused")

	_, body = call(t, s.handleIndexProject, map[string]interface{}{"path": root, "force": true})
	assert.Equal(t, true, body["rebuilt"])
}

func TestSearchCode(t *testing.T) {
	s := newTestServer(t)
	root := testProject(t)

	res, body := call(t, s.handleSearchCode, map[string]interface{}{
		"path":         root,
		"query":        "load configuration file",
		"limit":        float64(2),
		"current_file": filepath.Join(root, "config.py"),
	})
	assert.False(t, res.IsError)
	results := body["results"].([]interface{})
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 2)

	first := results[0].(map[string]interface{})
	assert.Equal(t, float64(1), first["rank"])
	assert.Equal(t, "config.py", first["file"], "current file fragments are boosted")
	assert.Contains(t, first["content"], "load_config")
}

func TestGetContext(t *testing.T) {
	s := newTestServer(t)
	root := testProject(t)

	res, body := call(t, s.handleGetContext, map[string]interface{}{
		"path":         root,
		"query":        "refactor the Button component",
		"current_file": "src/Button.jsx",
		"max_tokens":   float64(4000),
	})
	assert.False(t, res.IsError)
	paths := body["file_paths"].([]interface{})
	assert.Contains(t, paths, "src/Button.jsx")
	contents := body["file_contents"].(map[string]interface{})
	assert.Contains(t, contents, "src/Button.jsx")

	meta := body["metadata"].(map[string]interface{})
	assert.Equal(t, true, meta["is_ui_query"])
	assert.Equal(t, "smart_multi_file", meta["retrieval_strategy"])
	assert.LessOrEqual(t, meta["estimated_tokens"].(float64), float64(4000))
}

func TestInvalidateAndStatus(t *testing.T) {
	s := newTestServer(t)
	root := testProject(t)

	_, body := call(t, s.handleGetStatus, map[string]interface{}{"path": root})
	assert.Equal(t, false, body["indexed"])
	assert.NotEmpty(t, body["message"])

	call(t, s.handleIndexProject, map[string]interface{}{"path": root})
	_, body = call(t, s.handleGetStatus, map[string]interface{}{"path": root})
	assert.Equal(t, true, body["indexed"])
	assert.Equal(t, true, body["loaded"])
	assert.Equal(t, false, body["stale"])
	assert.Equal(t, float64(4), body["files"])
	assert.Equal(t, false, body["watching"])

	res, body := call(t, s.handleInvalidateIndex, map[string]interface{}{"path": root})
	assert.False(t, res.IsError)
	assert.Equal(t, true, body["invalidated"])

	_, body = call(t, s.handleGetStatus, map[string]interface{}{"path": root})
	assert.Equal(t, false, body["indexed"])
}

func TestArgumentErrors(t *testing.T) {
	s := newTestServer(t)
	root := testProject(t)
	missing := filepath.Join(root, "does-not-exist")

	tests := []struct {
		name string
		h    handler
		args interface{}
		code int
	}{
		{"arguments not an object", s.handleIndexProject, "oops", ErrorCodeInvalidParams},
		{"missing path", s.handleIndexProject, map[string]interface{}{}, ErrorCodeInvalidParams},
		{"blank path", s.handleGetStatus, map[string]interface{}{"path": "  "}, ErrorCodeInvalidParams},
		{"missing directory", s.handleIndexProject, map[string]interface{}{"path": missing}, ErrorCodeProjectNotFound},
		{"status of missing directory", s.handleGetStatus, map[string]interface{}{"path": missing}, ErrorCodeProjectNotFound},
		{"empty query", s.handleSearchCode, map[string]interface{}{"path": root, "query": " "}, ErrorCodeEmptyQuery},
		{"missing query", s.handleGetContext, map[string]interface{}{"path": root}, ErrorCodeEmptyQuery},
		{"limit too large", s.handleSearchCode, map[string]interface{}{"path": root, "query": "x", "limit": float64(500)}, ErrorCodeInvalidParams},
		{"negative limit", s.handleSearchCode, map[string]interface{}{"path": root, "query": "x", "limit": float64(-1)}, ErrorCodeInvalidParams},
		{"negative budget", s.handleGetContext, map[string]interface{}{"path": root, "query": "x", "max_tokens": float64(-5)}, ErrorCodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, body := call(t, tt.h, tt.args)
			assert.True(t, res.IsError)
			assert.Equal(t, tt.code, errorCode(t, body))
		})
	}
}

func TestStatusFileOutline(t *testing.T) {
	s := newTestServer(t)
	root := testProject(t)

	res, body := call(t, s.handleGetStatus, map[string]interface{}{"path": root, "file": "src/Button.jsx"})
	assert.True(t, res.IsError)
	assert.Equal(t, ErrorCodeNotIndexed, errorCode(t, body))

	call(t, s.handleIndexProject, map[string]interface{}{"path": root})

	res, body = call(t, s.handleGetStatus, map[string]interface{}{"path": root, "file": filepath.Join(root, "src", "Button.jsx")})
	assert.False(t, res.IsError)
	assert.Equal(t, true, body["indexed"])
	file := body["file"].(map[string]interface{})
	assert.Equal(t, "src/Button.jsx", file["path"])
	assert.NotEmpty(t, file["fragments"])
	deps := file["dependencies"].([]interface{})
	require.Len(t, deps, 1)
	assert.Equal(t, "src/Button.css", deps[0].(map[string]interface{})["file"])

	_, body = call(t, s.handleGetStatus, map[string]interface{}{"path": root, "file": "src/Button.css"})
	assert.Equal(t, []interface{}{"src/Button.jsx"}, body["file"].(map[string]interface{})["dependents"])

	res, body = call(t, s.handleGetStatus, map[string]interface{}{"path": root, "file": "src/Missing.jsx"})
	assert.True(t, res.IsError)
	assert.Equal(t, ErrorCodeFileNotFound, errorCode(t, body))
}

func TestSearchLimitMessage(t *testing.T) {
	s := newTestServer(t)
	root := testProject(t)

	_, body := call(t, s.handleSearchCode, map[string]interface{}{"path": root, "query": "x", "limit": float64(101)})
	e := body["error"].(map[string]interface{})
	assert.Equal(t, "limit must be between 0 and 100; 0 means 10", e["message"])

	res, body := call(t, s.handleSearchCode, map[string]interface{}{"path": root, "query": "load config", "limit": float64(0)})
	assert.False(t, res.IsError, "zero selects the default limit")
	assert.NotEmpty(t, body["results"])
}

func TestWatchInvalidatesOnChange(t *testing.T) {
	s := newTestServer(t, WithWatch(true))
	root := testProject(t)

	call(t, s.handleIndexProject, map[string]interface{}{"path": root})
	require.True(t, s.watching(root))

	// shorten the debounce of the live watcher for the test
	s.mu.Lock()
	require.NoError(t, s.watchers[root].Close())
	w, err := watcher.New(root, s.manager.Policy(), func() { _ = s.manager.Invalidate(root) },
		watcher.WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start())
	s.watchers[root] = w
	s.mu.Unlock()

	require.NoError(t, os.WriteFile(filepath.Join(root, "config.py"), []byte("def changed():\n    pass\n"), 0o644))

	assert.Eventually(t, func() bool {
		_, body := call(t, s.handleGetStatus, map[string]interface{}{"path": root})
		return body["indexed"] == false
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, s.Close())
	assert.False(t, s.watching(root))
}
