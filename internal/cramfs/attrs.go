package cramfs

import (
	"os"
	"syscall"

	"github.com/jacobsa/fuse/fuseops"

	"github.com/wtsi-hgi/cramfuse/internal/statcache"
)

// readOnlyMask clears all three write bits (owner, group, other) from a
// mode value, per spec.md §4.4's "single bitmask ... AND-ed into every
// mode value the overlay ever reports".
const readOnlyMask = ^os.FileMode(0o222)

func maskReadOnly(mode os.FileMode) os.FileMode {
	return mode & readOnlyMask
}

// attrsFromFileInfo builds the attributes cramfuse reports for a real
// (non-virtual) entry, applying the read-only mask.
func (fs *fileSystem) attrsFromFileInfo(info os.FileInfo) fuseops.InodeAttributes {
	stat := info.Sys()
	nlink := uint32(1)
	if sys, ok := stat.(*syscall.Stat_t); ok {
		nlink = uint32(sys.Nlink)
	}

	return fuseops.InodeAttributes{
		Size:  uint64(info.Size()),
		Nlink: nlink,
		Mode:  maskReadOnly(info.Mode()),
		Atime: info.ModTime(),
		Mtime: info.ModTime(),
		Ctime: info.ModTime(),
		Uid:   fs.uid,
		Gid:   fs.gid,
	}
}

// virtualBAMAttrs clones a CRAM's attributes for its synthesized BAM
// sibling, overriding size per the stat cache (or the configured
// placeholder when the cache is cold), per spec.md's getattr rule 2 and
// resolve_size.
func (fs *fileSystem) virtualBAMAttrs(cramInfo os.FileInfo, cramSourcePath string) fuseops.InodeAttributes {
	attrs := fs.attrsFromFileInfo(cramInfo)

	rec, ok := fs.cache.Get(cramSourcePath)
	attrs.Size = uint64(statcache.ResolveSize(cramInfo.ModTime(), rec, ok, fs.cfg.PlaceholderSize))
	if ok && rec.Size != 0 && !rec.ModTime.Before(cramInfo.ModTime()) {
		fs.metrics.CacheHit()
	} else {
		fs.metrics.CacheMiss()
	}
	return attrs
}
