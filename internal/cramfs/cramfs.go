// Package cramfs implements cramfuse's FUSE filesystem: a read-only
// projection of a source directory that synthesizes a virtual ".bam" file
// beside every ".cram" file it contains, transcoding on read through
// internal/htscodec.
//
// The filesystem is built against fuseutil.FileSystem's inode-numbered
// low-level operations, generalizing the teacher's object-backed inode
// table (fs.fileSystem.inodes, keyed by fuseops.InodeID) to mirrored
// source-directory paths instead of GCS objects.
package cramfs

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/wtsi-hgi/cramfuse/internal/cfg"
	"github.com/wtsi-hgi/cramfuse/internal/logger"
	"github.com/wtsi-hgi/cramfuse/internal/metrics"
	"github.com/wtsi-hgi/cramfuse/internal/pathmap"
	"github.com/wtsi-hgi/cramfuse/internal/statcache"
)

// entryKind tags what an inode stands for.
type entryKind int

const (
	kindDir entryKind = iota
	kindRealFile
	kindSymlink
	kindVirtualBAM
)

// inodeRecord is the per-inode bookkeeping cramfuse keeps, the analogue of
// the teacher's inode.Inode implementations generalized to a single struct
// since every cramfuse inode is backed by the same kind of thing (a path
// under the source directory) rather than by distinct GCS object/implicit
// directory/symlink types.
type inodeRecord struct {
	id     fuseops.InodeID
	relPath string // mount-relative path; "" for the root
	kind   entryKind

	// For kindVirtualBAM, the mount-relative path of the underlying CRAM
	// this inode was synthesized from.
	cramRelPath string

	lookupCount uint64
}

// fileSystem is cramfuse's fuseutil.FileSystem implementation.
type fileSystem struct {
	mu sync.Mutex

	mapper *pathmap.Mapper
	cfg    cfg.Config
	clock  func() time.Time

	cache     *statcache.Cache
	cachePath string

	uid, gid uint32

	// GUARDED_BY(mu)
	inodes map[fuseops.InodeID]*inodeRecord
	// GUARDED_BY(mu)
	pathToInode map[string]fuseops.InodeID
	// GUARDED_BY(mu)
	nextInodeID fuseops.InodeID

	// GUARDED_BY(mu)
	handles map[fuseops.HandleID]interface{}
	// GUARDED_BY(mu)
	nextHandleID fuseops.HandleID

	metrics *metrics.Collector
}

// NewFileSystem constructs cramfuse's filesystem, the Go analogue of
// spec.md §4.6's `init`: it resolves the canonical source directory,
// reads the on-disk stat cache (a missing file is logged but not fatal),
// and logs the effective configuration.
func NewFileSystem(c cfg.Config, m *metrics.Collector) (fuseutil.FileSystem, error) {
	mapper, err := pathmap.NewMapper(c.Source)
	if err != nil {
		return nil, err
	}

	cachePath := c.CacheFile
	if cachePath == "" {
		cachePath, err = statcache.FilePath(mapper.Source())
		if err != nil {
			return nil, err
		}
	}

	cache := statcache.New(mapper.Source())
	if _, err := cache.Load(cachePath); err != nil {
		logger.Warnf("Failed to load stat cache %q: %v", cachePath, err)
	}

	logger.Infof("cramfuse starting: source=%q cache=%q placeholder-size=%d ref=%q",
		mapper.Source(), cachePath, c.PlaceholderSize, c.ReferencePath)

	fs := &fileSystem{
		mapper:      mapper,
		cfg:         c,
		clock:       time.Now,
		cache:       cache,
		cachePath:   cachePath,
		uid:         uint32(os.Getuid()),
		gid:         uint32(os.Getgid()),
		inodes:      make(map[fuseops.InodeID]*inodeRecord),
		pathToInode: make(map[string]fuseops.InodeID),
		handles:     make(map[fuseops.HandleID]interface{}),
		nextInodeID: fuseops.RootInodeID + 1,
		metrics:     m,
	}

	root := &inodeRecord{
		id:          fuseops.RootInodeID,
		relPath:     "",
		kind:        kindDir,
		lookupCount: 1,
	}
	fs.inodes[fuseops.RootInodeID] = root
	fs.pathToInode[""] = fuseops.RootInodeID

	if c.SingleThreaded {
		return Serialize(fs), nil
	}
	return fs, nil
}

// Destroy flushes the stat cache to disk and releases in-memory state,
// the analogue of spec.md §4.6's `destroy`. fuse.MountedFileSystem.Join
// guarantees this runs exactly once, after the kernel has finished
// unmounting.
func (fs *fileSystem) Destroy() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if n, err := fs.cache.Save(fs.cachePath); err != nil {
		logger.Errorf("Failed to write stat cache %q: %v", fs.cachePath, err)
	} else {
		logger.Infof("Wrote %d stat cache entries to %q", n, fs.cachePath)
	}
	statcache.Close(fs.cache)
}

// StatFS reports made-up but plausible filesystem-wide statistics; cramfuse
// has no notion of free space distinct from the underlying source
// filesystem's, so it reports zero free space rather than guessing.
func (fs *fileSystem) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	op.BlockSize = 4096
	op.IoSize = 1 << 20
	return nil
}
