// Package dir implements directories as arrays of fixed-size entries packed
// into the directory inode's data blocks. Every operation is a linear scan
// over the direct blocks and then the indirect-addressed blocks.
package dir

import (
	"errors"
	"fmt"

	"github.com/mit-pdos/go-sfs/alloc"
	"github.com/mit-pdos/go-sfs/bcache"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/inode"
	"github.com/mit-pdos/go-sfs/util"
)

var (
	ErrNotFound = errors.New("no such file or directory")
	ErrNotDir   = errors.New("not a directory")
	ErrDirFull  = errors.New("directory full")
)

type Dirs struct {
	tbl    *inode.Table
	store  bcache.Store
	balloc *alloc.Alloc
}

func MkDirs(tbl *inode.Table, store bcache.Store, balloc *alloc.Alloc) *Dirs {
	return &Dirs{tbl: tbl, store: store, balloc: balloc}
}

func (d *Dirs) readDir(dinum common.Inum) (*inode.Inode, error) {
	ip, err := d.tbl.Read(dinum)
	if err != nil {
		return nil, err
	}
	if !ip.IsDir() {
		return nil, fmt.Errorf("inode %d: %w", dinum, ErrNotDir)
	}
	return ip, nil
}

// find returns the block and slot of the first entry named name.
func (d *Dirs) find(ip *inode.Inode, name string) (common.Bnum, uint64, *DirEnt, error) {
	blocks, err := ip.DataBlocks(d.store)
	if err != nil {
		return 0, 0, nil, err
	}
	for _, bn := range blocks {
		blk, err := d.store.Read(bn)
		if err != nil {
			return 0, 0, nil, err
		}
		for slot := uint64(0); slot < common.DIRENTBLK; slot++ {
			de := entAt(blk, slot)
			if !de.IsFree() && de.Name == name {
				return bn, slot, de, nil
			}
		}
	}
	return 0, 0, nil, ErrNotFound
}

// Lookup returns the inode number of the first entry named name in
// directory dinum.
func (d *Dirs) Lookup(dinum common.Inum, name string) (common.Inum, error) {
	ip, err := d.readDir(dinum)
	if err != nil {
		return common.NULLINUM, err
	}
	_, _, de, err := d.find(ip, name)
	if err != nil {
		return common.NULLINUM, err
	}
	return de.Inum, nil
}

// Add stores (name, inum) in the first free slot of directory dinum,
// allocating zero-filled blocks when every allocated block is full.
//
// Add does not check whether name is already present.
func (d *Dirs) Add(dinum common.Inum, name string, inum common.Inum) error {
	if err := CheckName(name); err != nil {
		return err
	}
	if inum == common.NULLINUM {
		panic("dir.Add: null inum")
	}
	ip, err := d.readDir(dinum)
	if err != nil {
		return err
	}
	for lbn := uint64(0); lbn < common.MaxFileBlocks; lbn++ {
		bn, err := ip.Bmap(d.store, d.balloc, lbn, false)
		if err != nil {
			return err
		}
		if bn == common.NULLBNUM {
			bn, err = ip.Bmap(d.store, d.balloc, lbn, true)
			if err != nil {
				return err
			}
			ip.Size = util.Max(ip.Size, (lbn+1)*common.BlockSize)
			if err := d.tbl.Write(dinum, ip); err != nil {
				return err
			}
			util.DPrintf(5, "dir.Add: dir %d grows to block %d (%d)\n", dinum, lbn, bn)
		}
		blk, err := d.store.Read(bn)
		if err != nil {
			return err
		}
		for slot := uint64(0); slot < common.DIRENTBLK; slot++ {
			if entAt(blk, slot).IsFree() {
				putEntAt(blk, slot, &DirEnt{Inum: inum, Name: name})
				return d.store.Write(bn, blk)
			}
		}
	}
	return ErrDirFull
}

// List returns the names of every entry in directory dinum, in slot order.
func (d *Dirs) List(dinum common.Inum) ([]string, error) {
	ip, err := d.readDir(dinum)
	if err != nil {
		return nil, err
	}
	blocks, err := ip.DataBlocks(d.store)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0)
	for _, bn := range blocks {
		blk, err := d.store.Read(bn)
		if err != nil {
			return nil, err
		}
		for slot := uint64(0); slot < common.DIRENTBLK; slot++ {
			if de := entAt(blk, slot); !de.IsFree() {
				names = append(names, de.Name)
			}
		}
	}
	return names, nil
}

// Remove clears the first entry named name in place. The directory never
// shrinks.
func (d *Dirs) Remove(dinum common.Inum, name string) error {
	ip, err := d.readDir(dinum)
	if err != nil {
		return err
	}
	bn, slot, _, err := d.find(ip, name)
	if err != nil {
		return err
	}
	blk, err := d.store.Read(bn)
	if err != nil {
		return err
	}
	putEntAt(blk, slot, &DirEnt{})
	return d.store.Write(bn, blk)
}

func (d *Dirs) IsEmpty(dinum common.Inum) (bool, error) {
	names, err := d.List(dinum)
	if err != nil {
		return false, err
	}
	return len(names) == 0, nil
}
