package tools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestGlobFilesRecursive(t *testing.T) {
	root := makeTree(t, map[string]string{
		"main.go":               "package main",
		"pkg/util/util.go":      "package util",
		"pkg/util/util_test.go": "package util",
		"README.md":             "# readme",
	})
	tool := &GlobFilesTool{maxResults: 100}

	result := tool.Execute(t.Context(), map[string]interface{}{
		"pattern": "**/*.go",
		"path":    root,
	})
	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Output, "Found 3 files")
	assert.Contains(t, result.Output, "main.go")
	assert.Contains(t, result.Output, filepath.Join("pkg", "util", "util.go"))
	assert.NotContains(t, result.Output, "README.md")
}

func TestGlobFilesSortedAndCapped(t *testing.T) {
	root := makeTree(t, map[string]string{
		"b.txt": "", "a.txt": "", "c.txt": "",
	})
	tool := &GlobFilesTool{maxResults: 2}

	result := tool.Execute(t.Context(), map[string]interface{}{
		"pattern": "*.txt",
		"path":    root,
	})
	require.True(t, result.Success, result.Error)
	// Lexicographic order, capped with a marker.
	assert.Less(t, strings.Index(result.Output, "a.txt"), strings.Index(result.Output, "b.txt"))
	assert.NotContains(t, result.Output, "c.txt")
	assert.Contains(t, result.Output, "[truncated at 2 results]")
}

func TestGlobFilesSkipsExcludedDirs(t *testing.T) {
	root := makeTree(t, map[string]string{
		"src/app.go":              "package app",
		"node_modules/x/index.js": "x",
		".git/config":             "x",
		"vendor/dep/dep.go":       "package dep",
	})
	tool := &GlobFilesTool{maxResults: 100}

	result := tool.Execute(t.Context(), map[string]interface{}{
		"pattern": "**/*",
		"path":    root,
	})
	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Output, filepath.Join("src", "app.go"))
	assert.NotContains(t, result.Output, "node_modules")
	assert.NotContains(t, result.Output, "vendor")
	assert.NotContains(t, result.Output, ".git")
}

func TestGlobFilesNoMatches(t *testing.T) {
	tool := &GlobFilesTool{maxResults: 100}
	result := tool.Execute(t.Context(), map[string]interface{}{
		"pattern": "*.zig",
		"path":    t.TempDir(),
	})
	require.True(t, result.Success)
	assert.Contains(t, result.Output, "no files matching")
}

func TestSearchContentGroupsByFile(t *testing.T) {
	root := makeTree(t, map[string]string{
		"b.go": "package b\n// TODO: fix this\nvar x = 1 // TODO later\n",
		"a.go": "package a\n// TODO: document\n",
		"c.go": "package c\n",
	})
	tool := &SearchContentTool{maxResults: 50}

	result := tool.Execute(t.Context(), map[string]interface{}{
		"pattern": "TODO",
		"path":    root,
	})
	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Output, "Found matches in 2 files")
	// Files in lexicographic order.
	assert.Less(t, strings.Index(result.Output, "a.go"), strings.Index(result.Output, "b.go"))
	assert.Contains(t, result.Output, "2: // TODO: document")
	assert.NotContains(t, result.Output, "c.go")
}

func TestSearchContentFilePattern(t *testing.T) {
	root := makeTree(t, map[string]string{
		"app.go":  "magic\n",
		"app.py":  "magic\n",
		"data.md": "magic\n",
	})
	tool := &SearchContentTool{maxResults: 50}

	result := tool.Execute(t.Context(), map[string]interface{}{
		"pattern":      "magic",
		"path":         root,
		"file_pattern": "*.go",
	})
	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Output, "app.go")
	assert.NotContains(t, result.Output, "app.py")
	assert.NotContains(t, result.Output, "data.md")
}

func TestSearchContentSkipsBinary(t *testing.T) {
	root := makeTree(t, map[string]string{
		"blob.bin": "needle\x00needle",
		"text.txt": "needle\n",
	})
	tool := &SearchContentTool{maxResults: 50}

	result := tool.Execute(t.Context(), map[string]interface{}{
		"pattern": "needle",
		"path":    root,
	})
	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Output, "text.txt")
	assert.NotContains(t, result.Output, "blob.bin")
}

func TestSearchContentCappedWithMarker(t *testing.T) {
	root := makeTree(t, map[string]string{
		"a.txt": "needle\n",
		"b.txt": "needle\n",
		"c.txt": "needle\n",
	})
	tool := &SearchContentTool{maxResults: 2}

	result := tool.Execute(t.Context(), map[string]interface{}{
		"pattern": "needle",
		"path":    root,
	})
	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Output, "Found matches in 2 files")
	assert.NotContains(t, result.Output, "c.txt")
	assert.Contains(t, result.Output, "[truncated at 2 files]")
}

func TestSearchContentInvalidPattern(t *testing.T) {
	tool := &SearchContentTool{maxResults: 50}
	result := tool.Execute(t.Context(), map[string]interface{}{
		"pattern": "[unclosed",
		"path":    t.TempDir(),
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid regular expression")
}

func TestSearchContentNoMatches(t *testing.T) {
	root := makeTree(t, map[string]string{"a.txt": "nothing here\n"})
	tool := &SearchContentTool{maxResults: 50}
	result := tool.Execute(t.Context(), map[string]interface{}{
		"pattern": "absent_term",
		"path":    root,
	})
	require.True(t, result.Success)
	assert.Contains(t, result.Output, "no matches")
}
