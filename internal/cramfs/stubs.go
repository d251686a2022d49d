package cramfs

import (
	"context"
	"syscall"

	"github.com/jacobsa/fuse/fuseops"
)

// The operations below complete fuseutil.FileSystem's interface but have
// no meaning for a read-only projection (spec.md's Non-goals rule out
// writes entirely). Every write-class operation returns EROFS, matching the
// mount being set up with fuse.MountConfig.ReadOnly in cmd/mount.go;
// SyncFile and FlushFile succeed as no-ops, and GetXattr/ListXattr return
// ENOSYS.

func (fs *fileSystem) MkDir(ctx context.Context, op *fuseops.MkDirOp) error {
	return syscall.EROFS
}

func (fs *fileSystem) MkNode(ctx context.Context, op *fuseops.MkNodeOp) error {
	return syscall.EROFS
}

func (fs *fileSystem) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	return syscall.EROFS
}

func (fs *fileSystem) CreateLink(ctx context.Context, op *fuseops.CreateLinkOp) error {
	return syscall.EROFS
}

func (fs *fileSystem) CreateSymlink(ctx context.Context, op *fuseops.CreateSymlinkOp) error {
	return syscall.EROFS
}

func (fs *fileSystem) Rename(ctx context.Context, op *fuseops.RenameOp) error {
	return syscall.EROFS
}

func (fs *fileSystem) RmDir(ctx context.Context, op *fuseops.RmDirOp) error {
	return syscall.EROFS
}

func (fs *fileSystem) Unlink(ctx context.Context, op *fuseops.UnlinkOp) error {
	return syscall.EROFS
}

func (fs *fileSystem) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	return syscall.EROFS
}

func (fs *fileSystem) SyncFile(ctx context.Context, op *fuseops.SyncFileOp) error {
	return nil
}

func (fs *fileSystem) FlushFile(ctx context.Context, op *fuseops.FlushFileOp) error {
	return nil
}

func (fs *fileSystem) RemoveXattr(ctx context.Context, op *fuseops.RemoveXattrOp) error {
	return syscall.EROFS
}

func (fs *fileSystem) GetXattr(ctx context.Context, op *fuseops.GetXattrOp) error {
	return syscall.ENOSYS
}

func (fs *fileSystem) ListXattr(ctx context.Context, op *fuseops.ListXattrOp) error {
	return syscall.ENOSYS
}

func (fs *fileSystem) SetXattr(ctx context.Context, op *fuseops.SetXattrOp) error {
	return syscall.EROFS
}

func (fs *fileSystem) Fallocate(ctx context.Context, op *fuseops.FallocateOp) error {
	return syscall.EROFS
}
