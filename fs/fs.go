// Package fs is the file engine of one mounted image: path resolution,
// namespace operations, and byte-granularity file I/O through open handles.
//
// An FS is not safe for concurrent use; see package mount.
package fs

import (
	"fmt"
	"strings"

	"github.com/mit-pdos/go-sfs/alloc"
	"github.com/mit-pdos/go-sfs/bcache"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/dir"
	"github.com/mit-pdos/go-sfs/disk"
	"github.com/mit-pdos/go-sfs/inode"
	"github.com/mit-pdos/go-sfs/super"
	"github.com/mit-pdos/go-sfs/util"
)

type FS struct {
	d      disk.Disk
	super  *super.FsSuper
	store  *lossStore
	cache  *bcache.Cache // nil when mounted without a cache
	balloc *alloc.Alloc
	inodes *inode.Table
	dirs   *dir.Dirs
	files  map[Fd]*OpenFile
	nextFd Fd
}

// Mount attaches an FS to d, formatting it if it carries no superblock.
func Mount(d disk.Disk, opts ...Option) (*FS, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	sb, err := super.Load(d, o.nblocks, o.ninodes)
	if err != nil {
		return nil, err
	}
	fs := &FS{
		d:      d,
		super:  sb,
		balloc: alloc.MkReservedAlloc(sb.NBlocks, uint64(sb.DataStart())),
		files:  make(map[Fd]*OpenFile),
		nextFd: FirstFd,
	}
	var store bcache.Store
	if o.cache {
		fs.cache = bcache.MkCache(d, o.capacity)
		store = fs.cache
	} else {
		store = bcache.MkDirect(d)
	}
	fs.store = &lossStore{Store: store}
	fs.inodes = inode.MkTable(sb, fs.store)
	fs.dirs = dir.MkDirs(fs.inodes, fs.store, fs.balloc)
	if o.recover {
		if err := fs.inodes.Recover(fs.balloc); err != nil {
			return nil, fmt.Errorf("recover bitmaps: %w", err)
		}
	}
	if err := fs.inodes.Init(fs.balloc); err != nil {
		return nil, err
	}
	if err := fs.store.take(); err != nil {
		return nil, err
	}
	util.DPrintf(1, "fs.Mount: %d blocks %d inodes cache=%v\n", sb.NBlocks, sb.NInodes, o.cache)
	return fs, nil
}

// MountImage opens (creating if needed) the image file at path and mounts
// it. A new image gets WithGeometry's block count, or DefaultBlocks; an
// existing one keeps its size.
func MountImage(path string, opts ...Option) (*FS, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	d, err := openImage(path, o.nblocks)
	if err != nil {
		return nil, err
	}
	fs, err := Mount(d, opts...)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("mount %s: %w", path, err)
	}
	return fs, nil
}

// openImage opens the image at path. An existing image that carries a
// superblock is opened at its current size, so a mount that fails the
// geometry check leaves the file untouched; anything else is extended to
// nblocks.
func openImage(path string, nblocks uint64) (disk.Disk, error) {
	have, err := disk.ImageBlocks(path)
	if err != nil {
		return nil, err
	}
	if have > 0 {
		d, err := disk.NewFileDisk(path, have)
		if err != nil {
			return nil, err
		}
		blk, err := d.Read(super.SUPERBNUM)
		if err != nil {
			d.Close()
			return nil, err
		}
		if _, ok, _ := super.Decode(blk); ok || nblocks <= have {
			return d, nil
		}
		d.Close()
	}
	return disk.NewFileDisk(path, nblocks)
}

func splitPath(path string) []string {
	var names []string
	for _, n := range strings.Split(path, "/") {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}

func (fs *FS) walk(names []string) (common.Inum, error) {
	inum := common.ROOTINUM
	for _, name := range names {
		next, err := fs.dirs.Lookup(inum, name)
		if err != nil {
			return common.NULLINUM, err
		}
		inum = next
	}
	return inum, nil
}

// Resolve maps an absolute or relative path to an inode number. Empty
// components are skipped, so "", "/" and "//" all name the root.
func (fs *FS) Resolve(path string) (inum common.Inum, err error) {
	defer fs.reportLoss(&err)
	return fs.resolve(path)
}

func (fs *FS) resolve(path string) (common.Inum, error) {
	inum, err := fs.walk(splitPath(path))
	if err != nil {
		return common.NULLINUM, fmt.Errorf("%s: %w", path, err)
	}
	return inum, nil
}

// resolveParent returns the directory holding the last component of path
// and that component's name. The root has no parent.
func (fs *FS) resolveParent(path string) (common.Inum, string, error) {
	names := splitPath(path)
	if len(names) == 0 {
		return common.NULLINUM, "", nil
	}
	parent, err := fs.walk(names[:len(names)-1])
	if err != nil {
		return common.NULLINUM, "", fmt.Errorf("%s: %w", path, err)
	}
	return parent, names[len(names)-1], nil
}

func (fs *FS) create(path string, mode uint64) (common.Inum, error) {
	parent, name, err := fs.resolveParent(path)
	if err != nil {
		return common.NULLINUM, err
	}
	if parent == common.NULLINUM {
		return common.NULLINUM, fmt.Errorf("%s: %w", path, ErrExists)
	}
	if err := dir.CheckName(name); err != nil {
		return common.NULLINUM, err
	}
	if _, err := fs.dirs.Lookup(parent, name); err == nil {
		return common.NULLINUM, fmt.Errorf("%s: %w", path, ErrExists)
	} else if !isNotFound(err) {
		return common.NULLINUM, err
	}

	inum, err := fs.inodes.Alloc()
	if err != nil {
		return common.NULLINUM, err
	}
	ip := inode.MkInode(mode)
	if ip.IsDir() {
		if _, err := ip.Bmap(fs.store, fs.balloc, 0, true); err != nil {
			fs.inodes.Release(inum)
			return common.NULLINUM, err
		}
		ip.Size = common.BlockSize
	}
	if err := fs.inodes.Write(inum, ip); err != nil {
		fs.undoCreate(inum, ip)
		return common.NULLINUM, err
	}
	if err := fs.dirs.Add(parent, name, inum); err != nil {
		fs.undoCreate(inum, ip)
		return common.NULLINUM, err
	}
	util.DPrintf(3, "fs.create %s -> %d (mode %o)\n", path, inum, mode)
	return inum, nil
}

func (fs *FS) undoCreate(inum common.Inum, ip *inode.Inode) {
	if err := ip.Truncate(fs.store, fs.balloc); err != nil {
		util.DPrintf(1, "fs.undoCreate %d: %v\n", inum, err)
	}
	if err := fs.inodes.Free(inum); err != nil {
		fs.inodes.Release(inum)
	}
}

// Create makes an empty regular file. Its first data block is allocated on
// the first write.
func (fs *FS) Create(path string) (inum common.Inum, err error) {
	defer fs.reportLoss(&err)
	return fs.create(path, common.ModeFile)
}

// Mkdir makes an empty directory with one zero-filled data block.
func (fs *FS) Mkdir(path string) (inum common.Inum, err error) {
	defer fs.reportLoss(&err)
	return fs.create(path, common.ModeDir)
}

// Remove unlinks path and frees its inode and every block it owns. Open
// handles on the removed file are closed.
func (fs *FS) Remove(path string) (err error) {
	defer fs.reportLoss(&err)
	parent, name, err := fs.resolveParent(path)
	if err != nil {
		return err
	}
	if parent == common.NULLINUM {
		return ErrRootDir
	}
	inum, err := fs.dirs.Lookup(parent, name)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	ip, err := fs.inodes.Read(inum)
	if err != nil {
		return err
	}
	if ip.IsDir() {
		empty, err := fs.dirs.IsEmpty(inum)
		if err != nil {
			return err
		}
		if !empty {
			return fmt.Errorf("%s: %w", path, ErrNotEmpty)
		}
	}
	if err := fs.dirs.Remove(parent, name); err != nil {
		return err
	}
	if err := ip.Truncate(fs.store, fs.balloc); err != nil {
		return err
	}
	if err := fs.inodes.Free(inum); err != nil {
		return err
	}
	for fd, of := range fs.files {
		if of.Inum == inum {
			delete(fs.files, fd)
		}
	}
	util.DPrintf(3, "fs.Remove %s (%d)\n", path, inum)
	return nil
}

// Listdir returns the entry names of the directory at path in slot order.
func (fs *FS) Listdir(path string) (names []string, err error) {
	defer fs.reportLoss(&err)
	inum, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	names, err = fs.dirs.List(inum)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return names, nil
}

type Stat struct {
	Inum    common.Inum
	Mode    uint64
	Size    uint64
	NBlocks uint64 // including the indirect block
	IsDir   bool
}

func (fs *FS) Stat(path string) (st Stat, err error) {
	defer fs.reportLoss(&err)
	inum, err := fs.resolve(path)
	if err != nil {
		return Stat{}, err
	}
	ip, err := fs.inodes.Read(inum)
	if err != nil {
		return Stat{}, err
	}
	blocks, err := ip.Blocks(fs.store)
	if err != nil {
		return Stat{}, err
	}
	return Stat{
		Inum:    inum,
		Mode:    ip.Mode,
		Size:    ip.Size,
		NBlocks: uint64(len(blocks)),
		IsDir:   ip.IsDir(),
	}, nil
}

type Geometry struct {
	NBlocks    uint64
	NInodes    uint64
	DataStart  common.Bnum
	FreeBlocks uint64
	FreeInodes uint64
}

func (fs *FS) Geometry() Geometry {
	return Geometry{
		NBlocks:    fs.super.NBlocks,
		NInodes:    fs.super.NInodes,
		DataStart:  fs.super.DataStart(),
		FreeBlocks: fs.balloc.NumFree(),
		FreeInodes: fs.inodes.NumFree(),
	}
}

// CacheStats reports the block cache counters, or false when the FS is
// mounted without a cache.
func (fs *FS) CacheStats() (bcache.Stats, bool) {
	if fs.cache == nil {
		return bcache.Stats{}, false
	}
	return fs.cache.Stats(), true
}

// Flush writes every dirty cached block to the device and waits for it to
// be durable.
func (fs *FS) Flush() (err error) {
	defer fs.reportLoss(&err)
	if err := fs.store.Flush(); err != nil {
		return err
	}
	return fs.d.Barrier()
}

// Unmount flushes and closes the device. The FS must not be used after.
func (fs *FS) Unmount() error {
	err := fs.Flush()
	if cerr := fs.d.Close(); err == nil {
		err = cerr
	}
	fs.files = nil
	util.DPrintf(1, "fs.Unmount: %v\n", err)
	return err
}
