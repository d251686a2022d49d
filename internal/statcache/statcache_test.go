package statcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutRefusesOverwrite(t *testing.T) {
	c := New("/src")
	assert.True(t, c.Put("/src/a.cram", Record{ModTime: time.Unix(100, 0), Size: 10}))
	assert.False(t, c.Put("/src/a.cram", Record{ModTime: time.Unix(200, 0), Size: 20}))

	rec, ok := c.Get("/src/a.cram")
	require.True(t, ok)
	assert.Equal(t, int64(10), rec.Size)
}

func TestResolveSize(t *testing.T) {
	mtime := time.Unix(1000, 0)

	// No cache entry: placeholder.
	assert.Equal(t, int64(999), ResolveSize(mtime, Record{}, false, 999))

	// Zero-sized cache entry: placeholder.
	assert.Equal(t, int64(999), ResolveSize(mtime, Record{ModTime: mtime, Size: 0}, true, 999))

	// Stale cache entry (cram touched after cache was warmed): placeholder.
	stale := Record{ModTime: mtime.Add(-time.Hour), Size: 123}
	assert.Equal(t, int64(999), ResolveSize(mtime, stale, true, 999))

	// Fresh cache entry: cached size.
	fresh := Record{ModTime: mtime.Add(time.Hour), Size: 123}
	assert.Equal(t, int64(123), ResolveSize(mtime, fresh, true, 999))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache")

	c := New("/src")
	c.Put("/src/a.cram", Record{ModTime: time.Unix(1370220400, 0), Size: 12345})
	c.Put("/src/b.cram", Record{ModTime: time.Unix(1413154800, 0), Size: 987654})

	n, err := c.Save(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	c2 := New("/src")
	admitted, err := c2.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, admitted)

	rec, ok := c2.Get("/src/a.cram")
	require.True(t, ok)
	assert.Equal(t, int64(12345), rec.Size)
	assert.Equal(t, int64(1370220400), rec.ModTime.Unix())
}

func TestLoadMissingFileIsNotFatal(t *testing.T) {
	c := New("/src")
	n, err := c.Load(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLoadToleratesMalformedAndCommentLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache")
	content := "# /src\n" +
		"\n" +
		"# a plain comment\n" +
		"/src/bad-record-missing-fields\n" +
		"/src/bad-mtime:notanumber:123\n" +
		"/src/good.cram:1000:2000:extra:fields:tolerated\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c := New("/src")
	n, err := c.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, ok := c.Get("/src/good.cram")
	require.True(t, ok)
	assert.Equal(t, int64(2000), rec.Size)
}

func TestFilePathDeterministic(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CRAMP_CACHE", dir)

	p1, err := FilePath("/some/source")
	require.NoError(t, err)
	p2, err := FilePath("/some/source")
	require.NoError(t, err)
	assert.Equal(t, p1, p2)

	p3, err := FilePath("/some/other")
	require.NoError(t, err)
	assert.NotEqual(t, p1, p3)
}
