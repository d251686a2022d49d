package cramfs

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addRealFileInode(fs *fileSystem, relPath string) fuseops.InodeID {
	id := fs.nextInodeID
	fs.nextInodeID++
	fs.inodes[id] = &inodeRecord{id: id, relPath: relPath, kind: kindRealFile}
	fs.pathToInode[relPath] = id
	return id
}

// TestOpenReadReleasePassthroughFile covers C5's plain passthrough session:
// open, an offset read, and release all go straight through to
// the underlying *os.File.
func TestOpenReadReleasePassthroughFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.txt"), []byte("hello, cramfuse"), 0o644))

	fs := newTestFileSystem(t, dir)
	inode := addRealFileInode(fs, "plain.txt")

	openOp := &fuseops.OpenFileOp{Inode: inode}
	require.NoError(t, fs.OpenFile(context.Background(), openOp))
	assert.True(t, openOp.KeepPageCache)

	dst := make([]byte, 5)
	readOp := &fuseops.ReadFileOp{Handle: openOp.Handle, Offset: 7, Dst: dst}
	require.NoError(t, fs.ReadFile(context.Background(), readOp))
	assert.Equal(t, 5, readOp.BytesRead)
	assert.Equal(t, "cramf", string(dst))

	require.NoError(t, fs.ReleaseFileHandle(context.Background(), &fuseops.ReleaseFileHandleOp{Handle: openOp.Handle}))
}

// TestReadFilePastEndReturnsPartialRead covers the EOF-is-not-an-error rule:
// reading past the end of a passthrough file yields whatever bytes remain,
// not an error.
func TestReadFilePastEndReturnsPartialRead(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "short.txt"), []byte("abc"), 0o644))

	fs := newTestFileSystem(t, dir)
	inode := addRealFileInode(fs, "short.txt")

	openOp := &fuseops.OpenFileOp{Inode: inode}
	require.NoError(t, fs.OpenFile(context.Background(), openOp))

	dst := make([]byte, 10)
	readOp := &fuseops.ReadFileOp{Handle: openOp.Handle, Offset: 1, Dst: dst}
	require.NoError(t, fs.ReadFile(context.Background(), readOp))
	assert.Equal(t, 2, readOp.BytesRead)
	assert.Equal(t, "bc", string(dst[:readOp.BytesRead]))
}

func TestOpenFileUnknownInodeReturnsENOENT(t *testing.T) {
	dir := t.TempDir()
	fs := newTestFileSystem(t, dir)

	err := fs.OpenFile(context.Background(), &fuseops.OpenFileOp{Inode: 999})
	assert.Equal(t, syscall.ENOENT, err)
}

func TestReadSymlinkResolvesTarget(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Symlink("plain.txt", filepath.Join(dir, "link")))

	fs := newTestFileSystem(t, dir)
	id := fs.nextInodeID
	fs.nextInodeID++
	fs.inodes[id] = &inodeRecord{id: id, relPath: "link", kind: kindSymlink}

	op := &fuseops.ReadSymlinkOp{Inode: id}
	require.NoError(t, fs.ReadSymlink(context.Background(), op))
	assert.Equal(t, "plain.txt", op.Target)
}
