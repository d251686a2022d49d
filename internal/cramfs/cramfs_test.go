package cramfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtsi-hgi/cramfuse/internal/cfg"
	"github.com/wtsi-hgi/cramfuse/internal/metrics"
)

func TestNewFileSystemSeedsRootInode(t *testing.T) {
	dir := t.TempDir()
	cacheFile := filepath.Join(t.TempDir(), "stat.cache")

	impl, err := NewFileSystem(cfg.Config{Source: dir, CacheFile: cacheFile, PlaceholderSize: 1 << 20}, metrics.New())
	require.NoError(t, err)

	fs := impl.(*fileSystem)
	root, ok := fs.inodes[fuseops.RootInodeID]
	require.True(t, ok)
	assert.Equal(t, kindDir, root.kind)
	assert.Equal(t, "", root.relPath)
}

func TestDestroyWritesCacheFile(t *testing.T) {
	dir := t.TempDir()
	cacheFile := filepath.Join(t.TempDir(), "nested", "stat.cache")

	impl, err := NewFileSystem(cfg.Config{Source: dir, CacheFile: cacheFile, PlaceholderSize: 1 << 20}, metrics.New())
	require.NoError(t, err)

	impl.Destroy()
	_, err = os.Stat(cacheFile)
	assert.NoError(t, err)
}

func TestStatFSReportsBlockSize(t *testing.T) {
	dir := t.TempDir()
	fs := newTestFileSystem(t, dir)

	op := &fuseops.StatFSOp{}
	require.NoError(t, fs.StatFS(context.Background(), op))
	assert.Equal(t, uint32(4096), op.BlockSize)
}
