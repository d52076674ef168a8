package inode

import (
	"errors"
	"fmt"

	"github.com/mit-pdos/go-sfs/alloc"
	"github.com/mit-pdos/go-sfs/bcache"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/super"
	"github.com/mit-pdos/go-sfs/util"
)

var (
	ErrOutOfRange = errors.New("inode number out of range")
	ErrNoInodes   = errors.New("out of inodes")
)

// Table reads and writes inode records through a block store and owns the
// inode bitmap of one mount.
type Table struct {
	super  *super.FsSuper
	store  bcache.Store
	ialloc *alloc.Alloc
}

// MkTable creates a table with only inode 0 reserved; call Init to set up the
// root directory.
func MkTable(sb *super.FsSuper, store bcache.Store) *Table {
	return &Table{
		super:  sb,
		store:  store,
		ialloc: alloc.MkReservedAlloc(sb.NInodes, 1),
	}
}

func (t *Table) checkInum(inum common.Inum) error {
	if inum == common.NULLINUM || uint64(inum) >= t.super.NInodes {
		return fmt.Errorf("inode %d: %w", inum, ErrOutOfRange)
	}
	return nil
}

func (t *Table) Read(inum common.Inum) (*Inode, error) {
	if err := t.checkInum(inum); err != nil {
		return nil, err
	}
	a := t.super.Inum2Addr(inum)
	blk, err := t.store.Read(a.Blkno)
	if err != nil {
		return nil, fmt.Errorf("read inode %d: %w", inum, err)
	}
	return Decode(blk[a.Off : a.Off+common.INODESZ]), nil
}

func (t *Table) Write(inum common.Inum, ip *Inode) error {
	if err := t.checkInum(inum); err != nil {
		return err
	}
	a := t.super.Inum2Addr(inum)
	blk, err := t.store.Read(a.Blkno)
	if err != nil {
		return fmt.Errorf("write inode %d: %w", inum, err)
	}
	copy(blk[a.Off:a.Off+common.INODESZ], ip.Encode())
	if err := t.store.Write(a.Blkno, blk); err != nil {
		return fmt.Errorf("write inode %d: %w", inum, err)
	}
	util.DPrintf(10, "inode.Write %d: %v\n", inum, ip)
	return nil
}

// Alloc reserves the lowest free inode number. The record itself is not
// touched; the caller initializes it with Write.
func (t *Table) Alloc() (common.Inum, error) {
	n, ok := t.ialloc.AllocNum()
	if !ok {
		return common.NULLINUM, ErrNoInodes
	}
	return common.Inum(n), nil
}

// Free zeroes the record of inum and returns the number to the bitmap.
func (t *Table) Free(inum common.Inum) error {
	if err := t.Write(inum, &Inode{}); err != nil {
		return err
	}
	t.ialloc.FreeNum(uint64(inum))
	return nil
}

// Release returns inum to the bitmap without touching its record, for
// undoing an Alloc whose inode was never written.
func (t *Table) Release(inum common.Inum) {
	t.ialloc.FreeNum(uint64(inum))
}

func (t *Table) NumFree() uint64 {
	return t.ialloc.NumFree()
}

func (t *Table) NInodes() uint64 {
	return t.super.NInodes
}

// Init marks the root inode and its blocks in use and, if its record is
// still zero, materializes it as an empty directory with one zero-filled
// data block.
func (t *Table) Init(balloc *alloc.Alloc) error {
	t.ialloc.MarkUsed(uint64(common.ROOTINUM))
	root, err := t.Read(common.ROOTINUM)
	if err != nil {
		return err
	}
	if !root.IsFree() {
		blocks, err := root.Blocks(t.store)
		if err != nil {
			return err
		}
		for _, bn := range blocks {
			balloc.MarkUsed(bn)
		}
		return nil
	}
	root = MkInode(common.ModeDir)
	if _, err := root.Bmap(t.store, balloc, 0, true); err != nil {
		return fmt.Errorf("root directory: %w", err)
	}
	root.Size = common.BlockSize
	util.DPrintf(1, "inode.Init: new root %v\n", root)
	return t.Write(common.ROOTINUM, root)
}

// Recover rebuilds the inode bitmap and balloc from the inode table: every
// inode with a non-zero mode is in use, as is every block it points to.
func (t *Table) Recover(balloc *alloc.Alloc) error {
	for inum := common.ROOTINUM; uint64(inum) < t.super.NInodes; inum++ {
		ip, err := t.Read(inum)
		if err != nil {
			return err
		}
		if ip.IsFree() {
			continue
		}
		t.ialloc.MarkUsed(uint64(inum))
		blocks, err := ip.Blocks(t.store)
		if err != nil {
			return err
		}
		for _, bn := range blocks {
			balloc.MarkUsed(bn)
		}
	}
	util.DPrintf(1, "inode.Recover: %d inodes %d blocks free\n", t.ialloc.NumFree(), balloc.NumFree())
	return nil
}
