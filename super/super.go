// Package super describes the layout of a disk image: the superblock in
// block 0, the inode table right after it, and the data blocks after that.
package super

import (
	"errors"
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-sfs/addr"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
	"github.com/mit-pdos/go-sfs/util"
)

const Magic uint64 = 0x5346535f494d4731 // "SFS_IMG1"

const SUPERBNUM common.Bnum = 0

var ErrGeometry = errors.New("image geometry does not match")

type FsSuper struct {
	NBlocks   uint64
	NInodes   uint64
	nInodeBlk uint64
}

func MkFsSuper(nblocks uint64, ninodes uint64) (*FsSuper, error) {
	if ninodes < 2 {
		return nil, fmt.Errorf("%w: need at least 2 inodes, have %d", ErrGeometry, ninodes)
	}
	fs := &FsSuper{
		NBlocks:   nblocks,
		NInodes:   ninodes,
		nInodeBlk: util.RoundUp(ninodes, common.INODEBLK),
	}
	// the root directory needs one data block
	if fs.DataStart() >= nblocks {
		return nil, fmt.Errorf("%w: %d blocks cannot hold %d inodes", ErrGeometry, nblocks, ninodes)
	}
	return fs, nil
}

func (fs *FsSuper) InodeStart() common.Bnum {
	return SUPERBNUM + 1
}

func (fs *FsSuper) NInodeBlocks() uint64 {
	return fs.nInodeBlk
}

// DataStart is the first data block; everything below it is reserved.
func (fs *FsSuper) DataStart() common.Bnum {
	return fs.InodeStart() + common.Bnum(fs.nInodeBlk)
}

func (fs *FsSuper) Inum2Addr(inum common.Inum) addr.Addr {
	return addr.MkRecordAddr(fs.InodeStart(), uint64(inum), common.INODESZ)
}

func (fs *FsSuper) Encode() disk.Block {
	enc := marshal.NewEnc(common.BlockSize)
	enc.PutInt(Magic)
	enc.PutInt(fs.NBlocks)
	enc.PutInt(fs.NInodes)
	return enc.Finish()
}

// Decode parses a superblock. ok is false if blk does not hold one (for
// example, a freshly zeroed image).
func Decode(blk disk.Block) (*FsSuper, bool, error) {
	dec := marshal.NewDec(blk)
	if dec.GetInt() != Magic {
		return nil, false, nil
	}
	nblocks := dec.GetInt()
	ninodes := dec.GetInt()
	fs, err := MkFsSuper(nblocks, ninodes)
	if err != nil {
		return nil, true, err
	}
	return fs, true, nil
}

// Load reads the superblock of d, writing a new one describing
// (nblocks, ninodes) if d has none. An existing superblock must agree with
// the requested geometry unless nblocks and ninodes are both zero.
func Load(d disk.Disk, nblocks uint64, ninodes uint64) (*FsSuper, error) {
	blk, err := d.Read(SUPERBNUM)
	if err != nil {
		return nil, fmt.Errorf("read superblock: %w", err)
	}
	fs, ok, err := Decode(blk)
	if err != nil {
		return nil, err
	}
	if ok {
		if (nblocks != 0 && nblocks != fs.NBlocks) || (ninodes != 0 && ninodes != fs.NInodes) {
			return nil, fmt.Errorf("%w: image has %d blocks/%d inodes, want %d/%d",
				ErrGeometry, fs.NBlocks, fs.NInodes, nblocks, ninodes)
		}
		if fs.NBlocks > d.Size() {
			return nil, fmt.Errorf("%w: image has %d blocks, disk only %d",
				ErrGeometry, fs.NBlocks, d.Size())
		}
		util.DPrintf(1, "super.Load: existing image %d blocks %d inodes\n", fs.NBlocks, fs.NInodes)
		return fs, nil
	}
	if nblocks == 0 {
		nblocks = d.Size()
	}
	if ninodes == 0 {
		ninodes = common.DefaultInodes
	}
	if nblocks > d.Size() {
		return nil, fmt.Errorf("%w: want %d blocks, disk only %d", ErrGeometry, nblocks, d.Size())
	}
	fs, err = MkFsSuper(nblocks, ninodes)
	if err != nil {
		return nil, err
	}
	if err := d.Write(SUPERBNUM, fs.Encode()); err != nil {
		return nil, fmt.Errorf("write superblock: %w", err)
	}
	util.DPrintf(1, "super.Load: new image %d blocks %d inodes\n", nblocks, ninodes)
	return fs, nil
}
