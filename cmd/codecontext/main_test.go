package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestRootCommands(t *testing.T) {
	root := rootCmd()
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "index", "search", "context", "invalidate", "status"} {
		assert.True(t, names[want], want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))

	search, _, err := root.Find([]string{"search"})
	require.NoError(t, err)
	assert.Equal(t, "k", search.Flags().Lookup("limit").Shorthand)

	status, _, err := root.Find([]string{"status"})
	require.NoError(t, err)
	assert.NotNil(t, status.Flags().Lookup("file"))
	assert.NotNil(t, status.Flags().Lookup("json"))
}

func TestVersionFlag(t *testing.T) {
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "codecontext "+version)
	assert.Contains(t, out.String(), "SQLite Driver:")
}

func TestArgumentValidation(t *testing.T) {
	root := rootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"search", "."})
	assert.Error(t, root.Execute(), "search needs a query")
}
