package cramfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/wtsi-hgi/cramfuse/internal/pathmap"
)

// dirEntryInfo is one accumulator entry built while listing a directory,
// the Go shape of spec.md §3's "directory listing accumulator": mapping
// from entry name to {attributes, is-virtual}.
type dirEntryInfo struct {
	name        string
	kind        entryKind
	attrs       fuseops.InodeAttributes
	direntType  fuseutil.DirentType
	cramRelPath string // set only for kindVirtualBAM
}

func direntTypeFor(mode os.FileMode) fuseutil.DirentType {
	switch {
	case mode&os.ModeDir != 0:
		return fuseutil.DT_Directory
	case mode&os.ModeSymlink != 0:
		return fuseutil.DT_Link
	default:
		return fuseutil.DT_File
	}
}

// listDir builds the ordered accumulator for the directory at relDir,
// implementing spec.md §4.4's readdir algorithm: iterate the underlying
// directory; on a name clash (a previously-injected virtual entry sharing
// a name with a just-discovered real one) the virtual entry is deleted
// before the real one is inserted; after each real ".cram" entry, inject
// its virtual ".bam" sibling unless that name is already taken.
//
// LookUpInode reuses this so a single name resolves identically whether
// reached via readdir or a direct lookup, which is what makes the mask
// law (spec.md invariant 3) hold for both.
func (fs *fileSystem) listDir(relDir string) ([]dirEntryInfo, error) {
	absDir := fs.mapper.SourcePath(relDir)
	if relDir == "" {
		absDir = fs.mapper.Source()
	}

	osEntries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, err
	}

	var order []dirEntryInfo
	index := make(map[string]int)

	for _, e := range osEntries {
		name := e.Name()

		if i, exists := index[name]; exists {
			// A real name can only collide with a previously-injected
			// virtual one: source directory listings never contain
			// duplicate names themselves.
			order[i] = dirEntryInfo{} // tombstone
			delete(index, name)
		}

		info, err := e.Info()
		if err != nil {
			continue // vanished between ReadDir and Info; skip silently
		}

		kind := kindRealFile
		if info.IsDir() {
			kind = kindDir
		} else if info.Mode()&os.ModeSymlink != 0 {
			kind = kindSymlink
		}

		real := dirEntryInfo{
			name:       name,
			kind:       kind,
			attrs:      fs.attrsFromFileInfo(info),
			direntType: direntTypeFor(info.Mode()),
		}
		order = append(order, real)
		index[name] = len(order) - 1

		if kind == kindDir {
			continue
		}
		if !pathmap.HasExtension(name, ".cram") {
			continue
		}

		bamName := pathmap.SubExtension(name, ".bam")
		if _, taken := index[bamName]; taken {
			continue
		}

		cramSourcePath := filepath.Join(absDir, name)
		if !pathmap.IsCRAM(cramSourcePath) {
			continue
		}

		cramRel := name
		if relDir != "" {
			cramRel = relDir + "/" + name
		}

		virtual := dirEntryInfo{
			name:        bamName,
			kind:        kindVirtualBAM,
			attrs:       fs.virtualBAMAttrs(info, cramSourcePath),
			direntType:  fuseutil.DT_File,
			cramRelPath: cramRel,
		}
		order = append(order, virtual)
		index[bamName] = len(order) - 1
	}

	// Compact tombstones, preserving the order in which each name's final
	// incarnation was inserted.
	listing := make([]dirEntryInfo, 0, len(index))
	for _, e := range order {
		if e.name == "" {
			continue
		}
		listing = append(listing, e)
	}
	return listing, nil
}

// findEntry resolves a single name within relDir using the same algorithm
// as a full listing, so LookUpInode and ReadDir never disagree about
// whether a name is real, virtual, or absent.
func (fs *fileSystem) findEntry(relDir, name string) (*dirEntryInfo, error) {
	entries, err := fs.listDir(relDir)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].name == name {
			return &entries[i], nil
		}
	}
	return nil, os.ErrNotExist
}

func join(relDir, name string) string {
	if relDir == "" {
		return name
	}
	return relDir + "/" + name
}

// dirHandle is the per-open-directory session: the listing is built once,
// buffered, and served back in fixed order across however many ReadDir
// calls the kernel issues against this handle (it may call ReadDir
// several times for one opendir/readdir loop).
type dirHandle struct {
	entries []dirEntryInfo
}

func (fs *fileSystem) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, ok := fs.inodes[op.Parent]
	if !ok || parent.kind != kindDir {
		return syscall.ENOENT
	}

	entry, err := fs.findEntry(parent.relPath, op.Name)
	if err != nil {
		return syscall.ENOENT
	}

	rec := fs.mintOrReuseInode(join(parent.relPath, op.Name), entry.kind, entry.cramRelPath)
	op.Entry.Child = rec.id
	op.Entry.Attributes = entry.attrs
	return nil
}

func (fs *fileSystem) mintOrReuseInode(relPath string, kind entryKind, cramRelPath string) *inodeRecord {
	if id, ok := fs.pathToInode[relPath]; ok {
		rec := fs.inodes[id]
		rec.lookupCount++
		return rec
	}

	id := fs.nextInodeID
	fs.nextInodeID++

	rec := &inodeRecord{
		id:          id,
		relPath:     relPath,
		kind:        kind,
		cramRelPath: cramRelPath,
		lookupCount: 1,
	}
	fs.inodes[id] = rec
	fs.pathToInode[relPath] = id
	return rec
}

func (fs *fileSystem) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	fs.mu.Lock()
	rec, ok := fs.inodes[op.Inode]
	fs.mu.Unlock()
	if !ok {
		return syscall.ENOENT
	}

	if rec.relPath == "" {
		info, err := os.Stat(fs.mapper.Source())
		if err != nil {
			return err
		}
		op.Attributes = fs.attrsFromFileInfo(info)
		return nil
	}

	parentRel, name := filepath.Split(rec.relPath)
	parentRel = strings.TrimSuffix(parentRel, "/")

	entry, err := fs.findEntry(parentRel, name)
	if err != nil {
		return syscall.ENOENT
	}
	op.Attributes = entry.attrs
	return nil
}

func (fs *fileSystem) SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) error {
	// cramfuse is read-only; nothing may change an inode's attributes.
	return syscall.EROFS
}

func (fs *fileSystem) ForgetInode(ctx context.Context, op *fuseops.ForgetInodeOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	rec, ok := fs.inodes[op.Inode]
	if !ok {
		return nil
	}
	if op.N >= rec.lookupCount {
		delete(fs.inodes, op.Inode)
		delete(fs.pathToInode, rec.relPath)
	} else {
		rec.lookupCount -= op.N
	}
	return nil
}

func (fs *fileSystem) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	rec, ok := fs.inodes[op.Inode]
	if !ok || rec.kind != kindDir {
		return syscall.ENOTDIR
	}

	entries, err := fs.listDir(rec.relPath)
	if err != nil {
		return err
	}

	handleID := fs.nextHandleID
	fs.nextHandleID++
	fs.handles[handleID] = &dirHandle{entries: entries}
	op.Handle = handleID
	return nil
}

func (fs *fileSystem) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	fs.mu.Lock()
	h, ok := fs.handles[op.Handle].(*dirHandle)
	fs.mu.Unlock()
	if !ok {
		return fmt.Errorf("cramfs: unknown directory handle %d", op.Handle)
	}

	offset := int(op.Offset)
	n := 0
	for i := offset; i < len(h.entries); i++ {
		e := h.entries[i]
		// The kernel re-resolves each name via LookUpInode before use, so
		// the dirent's inode number only needs to be non-aliasing within
		// a single readdir response, not globally stable.
		d := fuseutil.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  fuseops.RootInodeID + 1 + fuseops.InodeID(i),
			Name:   e.name,
			Type:   e.direntType,
		}
		written := fuseutil.WriteDirent(op.Dst[n:], d)
		if written == 0 {
			break
		}
		n += written
	}
	op.BytesRead = n
	return nil
}

func (fs *fileSystem) ReleaseDirHandle(ctx context.Context, op *fuseops.ReleaseDirHandleOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.handles, op.Handle)
	return nil
}
