package cramfs

import (
	"context"
	"sync"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
)

// serialized wraps a fuseutil.FileSystem so every dispatched op runs under
// a single mutex, the cramfuse-side implementation of the --single-threaded
// flag (spec.md §6): no fuse.MountConfig field or fuseutil helper in
// jacobsa/fuse offers this, so it is implemented here as a decorator
// rather than threaded through the mount config.
type serialized struct {
	mu sync.Mutex
	fs fuseutil.FileSystem
}

// Serialize returns a fuseutil.FileSystem that forwards every operation to
// fs, but never lets two run concurrently.
func Serialize(fs fuseutil.FileSystem) fuseutil.FileSystem {
	return &serialized{fs: fs}
}

func (s *serialized) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fs.Destroy()
}

func (s *serialized) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.StatFS(ctx, op)
}

func (s *serialized) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.LookUpInode(ctx, op)
}

func (s *serialized) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.GetInodeAttributes(ctx, op)
}

func (s *serialized) SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.SetInodeAttributes(ctx, op)
}

func (s *serialized) ForgetInode(ctx context.Context, op *fuseops.ForgetInodeOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.ForgetInode(ctx, op)
}

func (s *serialized) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.OpenDir(ctx, op)
}

func (s *serialized) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.ReadDir(ctx, op)
}

func (s *serialized) ReleaseDirHandle(ctx context.Context, op *fuseops.ReleaseDirHandleOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.ReleaseDirHandle(ctx, op)
}

func (s *serialized) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.OpenFile(ctx, op)
}

func (s *serialized) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.ReadFile(ctx, op)
}

func (s *serialized) ReleaseFileHandle(ctx context.Context, op *fuseops.ReleaseFileHandleOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.ReleaseFileHandle(ctx, op)
}

func (s *serialized) ReadSymlink(ctx context.Context, op *fuseops.ReadSymlinkOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.ReadSymlink(ctx, op)
}

func (s *serialized) MkDir(ctx context.Context, op *fuseops.MkDirOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.MkDir(ctx, op)
}

func (s *serialized) MkNode(ctx context.Context, op *fuseops.MkNodeOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.MkNode(ctx, op)
}

func (s *serialized) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.CreateFile(ctx, op)
}

func (s *serialized) CreateLink(ctx context.Context, op *fuseops.CreateLinkOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.CreateLink(ctx, op)
}

func (s *serialized) CreateSymlink(ctx context.Context, op *fuseops.CreateSymlinkOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.CreateSymlink(ctx, op)
}

func (s *serialized) Rename(ctx context.Context, op *fuseops.RenameOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.Rename(ctx, op)
}

func (s *serialized) RmDir(ctx context.Context, op *fuseops.RmDirOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.RmDir(ctx, op)
}

func (s *serialized) Unlink(ctx context.Context, op *fuseops.UnlinkOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.Unlink(ctx, op)
}

func (s *serialized) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.WriteFile(ctx, op)
}

func (s *serialized) SyncFile(ctx context.Context, op *fuseops.SyncFileOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.SyncFile(ctx, op)
}

func (s *serialized) FlushFile(ctx context.Context, op *fuseops.FlushFileOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.FlushFile(ctx, op)
}

func (s *serialized) RemoveXattr(ctx context.Context, op *fuseops.RemoveXattrOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.RemoveXattr(ctx, op)
}

func (s *serialized) GetXattr(ctx context.Context, op *fuseops.GetXattrOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.GetXattr(ctx, op)
}

func (s *serialized) ListXattr(ctx context.Context, op *fuseops.ListXattrOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.ListXattr(ctx, op)
}

func (s *serialized) SetXattr(ctx context.Context, op *fuseops.SetXattrOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.SetXattr(ctx, op)
}

func (s *serialized) Fallocate(ctx context.Context, op *fuseops.FallocateOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.Fallocate(ctx, op)
}
