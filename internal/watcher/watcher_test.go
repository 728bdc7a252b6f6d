package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codecontext/internal/indexer"
)

const testDebounce = 50 * time.Millisecond

func start(t *testing.T, root string) *atomic.Int32 {
	t.Helper()
	var calls atomic.Int32
	w, err := New(root, indexer.Policy{}, func() { calls.Add(1) }, WithDebounce(testDebounce))
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Close() })
	return &calls
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBurstCollapsesToOneCall(t *testing.T) {
	root := t.TempDir()
	calls := start(t, root)

	for i := 0; i < 5; i++ {
		write(t, filepath.Join(root, "app.py"), "x = "+string(rune('0'+i))+"\n")
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(4 * testDebounce)
	assert.Equal(t, int32(1), calls.Load())
}

func TestIgnoredPathsAreSilent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "lib"), 0o755))
	calls := start(t, root)

	write(t, filepath.Join(root, "node_modules", "lib", "index.js"), "x")
	write(t, filepath.Join(root, "debug.log"), "x")
	write(t, filepath.Join(root, ".hidden"), "x")

	time.Sleep(6 * testDebounce)
	assert.Equal(t, int32(0), calls.Load())
}

func TestNewDirectoriesAreWatched(t *testing.T) {
	root := t.TempDir()
	calls := start(t, root)

	dir := filepath.Join(root, "pkg")
	require.NoError(t, os.Mkdir(dir, 0o755))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	write(t, filepath.Join(dir, "mod.py"), "y = 1\n")
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestRemovalCounts(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "gone.py")
	write(t, path, "z = 1\n")
	calls := start(t, root)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestCloseIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), indexer.Policy{}, func() {})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
