package internal

import (
	"go/token"
	"os"
	"path/filepath"
	"testing"
	"time"

	tt "github.com/gnolang/symex/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(createTempDir(t, "cache-test"), "cache")
	cache, err := NewCache(dir)
	require.NoError(t, err)

	issues := []tt.Issue{{
		Rule:     "nil-dereference",
		Category: "symex",
		Filename: "test.go",
		Function: "main.f",
		Message:  "nil dereference: p is nil here",
		Start:    token.Position{Filename: "test.go", Offset: 40, Line: 4, Column: 9},
		End:      token.Position{Filename: "test.go", Offset: 43, Line: 4, Column: 12},
		Severity: tt.SeverityWarning,
	}}
	sum := digest("settings", []byte("package main"))

	t.Run("NotFound", func(t *testing.T) {
		_, found := cache.Get("nonexistent.go", sum)
		assert.False(t, found)
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		require.NoError(t, cache.Set("test.go", sum, issues))
		got, found := cache.Get("test.go", sum)
		require.True(t, found)
		assert.Equal(t, issues, got)

		reloaded, err := NewCache(dir)
		require.NoError(t, err)
		got, found = reloaded.Get("test.go", sum)
		require.True(t, found)
		assert.Equal(t, issues, got)
	})

	t.Run("DigestChanged", func(t *testing.T) {
		require.NoError(t, cache.Set("changed.go", sum, issues))
		_, found := cache.Get("changed.go", digest("settings", []byte("package main // edited")))
		assert.False(t, found)
		_, found = cache.Get("changed.go", sum)
		assert.False(t, found, "a stale entry is dropped")
	})

	t.Run("InvalidateAll", func(t *testing.T) {
		require.NoError(t, cache.Set("a.go", sum, issues))
		require.NoError(t, cache.InvalidateAll())
		assert.Zero(t, cache.Len())
		_, err := os.Stat(filepath.Join(dir, cacheFile))
		assert.NoError(t, err)
	})
}

func TestCacheMaxAge(t *testing.T) {
	t.Parallel()
	cache, err := NewCache(createTempDir(t, "cache-age"))
	require.NoError(t, err)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	cache.SetMaxAge(time.Hour)

	require.NoError(t, cache.Set("a.go", "d", nil))
	now = now.Add(30 * time.Minute)
	_, found := cache.Get("a.go", "d")
	assert.True(t, found)

	now = now.Add(time.Hour)
	_, found = cache.Get("a.go", "d")
	assert.False(t, found)
}

func TestCacheCorruptFile(t *testing.T) {
	t.Parallel()
	dir := createTempDir(t, "cache-corrupt")
	require.NoError(t, os.WriteFile(filepath.Join(dir, cacheFile), []byte("not gob"), 0o644))
	_, err := NewCache(dir)
	assert.Error(t, err)
}

func TestDigest(t *testing.T) {
	t.Parallel()
	assert.Equal(t, digest("s", []byte("a"), []byte("b")), digest("s", []byte("a"), []byte("b")))
	assert.NotEqual(t, digest("s", []byte("ab")), digest("s", []byte("a"), []byte("b")))
	assert.NotEqual(t, digest("s", []byte("a")), digest("t", []byte("a")))
}
