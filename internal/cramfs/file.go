package cramfs

import (
	"context"
	"errors"
	"io"
	"os"
	"syscall"

	"github.com/jacobsa/fuse/fuseops"

	"github.com/wtsi-hgi/cramfuse/internal/statcache"
	"github.com/wtsi-hgi/cramfuse/internal/transcode"
)

// fileHandleKind tags an open file session, the Go shape of spec.md §3's
// "tagged union of passthrough fd vs CRAM-backed virtual BAM".
type fileHandleKind int

const (
	handlePassthrough fileHandleKind = iota
	handleCRAMBacked
)

// fileHandle is C5's per-open-file state.
type fileHandle struct {
	kind fileHandleKind

	// handlePassthrough
	f *os.File

	// handleCRAMBacked
	cramSourcePath string
}

func (fs *fileSystem) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	fs.mu.Lock()
	rec, ok := fs.inodes[op.Inode]
	fs.mu.Unlock()
	if !ok {
		return syscall.ENOENT
	}

	var h *fileHandle
	switch rec.kind {
	case kindRealFile:
		f, err := os.Open(fs.mapper.SourcePath(rec.relPath))
		if err != nil {
			return translateOpenError(err)
		}
		h = &fileHandle{kind: handlePassthrough, f: f}

	case kindVirtualBAM:
		h = &fileHandle{
			kind:           handleCRAMBacked,
			cramSourcePath: fs.mapper.SourcePath(rec.cramRelPath),
		}

	default:
		return syscall.EINVAL
	}

	fs.mu.Lock()
	handleID := fs.nextHandleID
	fs.nextHandleID++
	fs.handles[handleID] = h
	fs.mu.Unlock()

	op.Handle = handleID
	op.KeepPageCache = true
	return nil
}

func translateOpenError(err error) error {
	if os.IsNotExist(err) {
		return syscall.ENOENT
	}
	if os.IsPermission(err) {
		return syscall.EACCES
	}
	return err
}

func (fs *fileSystem) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	fs.mu.Lock()
	h, ok := fs.handles[op.Handle].(*fileHandle)
	fs.mu.Unlock()
	if !ok {
		return syscall.EBADF
	}

	switch h.kind {
	case handlePassthrough:
		n, err := h.f.ReadAt(op.Dst, op.Offset)
		op.BytesRead = n
		if err != nil {
			if isEOF(err) {
				return nil
			}
			return err
		}
		return nil

	case handleCRAMBacked:
		// Per spec.md's explicit non-performance-goal caveat: every read
		// re-transcodes the whole CRAM from the start, because the virtual
		// BAM offset has no linear relationship to a CRAM offset. The
		// RangeSink confines the cost of that decision to this one call.
		sink := transcode.NewRangeSink(op.Offset, int64(len(op.Dst)))
		if err := transcode.Run(h.cramSourcePath, fs.cfg.ReferencePath, sink); err != nil {
			fs.metrics.TranscodeFailed()
			return err
		}
		fs.metrics.TranscodeSucceeded(int64(len(sink.Bytes())))
		fs.warmCache(h.cramSourcePath, sink.TotalBytes())

		n := copy(op.Dst, sink.Bytes())
		op.BytesRead = n
		return nil

	default:
		return syscall.EINVAL
	}
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

// warmCache records a CRAM's transcoded-BAM length once a read has actually
// produced it, the only place spec.md §3 says stat-cache entries are
// created. Put refuses to overwrite an existing record (spec.md §4.2), so
// this only ever fills a cold entry; a CRAM whose mtime has since moved on
// stays stale until the cache is dropped, per the documented semantics.
func (fs *fileSystem) warmCache(cramSourcePath string, size int64) {
	info, err := os.Stat(cramSourcePath)
	if err != nil {
		return
	}
	fs.cache.Put(cramSourcePath, statcache.Record{ModTime: info.ModTime(), Size: size})
}

func (fs *fileSystem) ReleaseFileHandle(ctx context.Context, op *fuseops.ReleaseFileHandleOp) error {
	fs.mu.Lock()
	h, ok := fs.handles[op.Handle].(*fileHandle)
	delete(fs.handles, op.Handle)
	fs.mu.Unlock()
	if !ok {
		return nil
	}
	if h.kind == handlePassthrough && h.f != nil {
		return h.f.Close()
	}
	return nil
}

func (fs *fileSystem) ReadSymlink(ctx context.Context, op *fuseops.ReadSymlinkOp) error {
	fs.mu.Lock()
	rec, ok := fs.inodes[op.Inode]
	fs.mu.Unlock()
	if !ok || rec.kind != kindSymlink {
		return syscall.EINVAL
	}

	target, err := os.Readlink(fs.mapper.SourcePath(rec.relPath))
	if err != nil {
		return err
	}
	op.Target = target
	return nil
}

