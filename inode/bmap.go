package inode

import (
	"errors"
	"fmt"

	"github.com/mit-pdos/go-sfs/alloc"
	"github.com/mit-pdos/go-sfs/bcache"
	"github.com/mit-pdos/go-sfs/buf"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
)

var (
	ErrNoSpace    = errors.New("out of data blocks")
	ErrFileTooBig = errors.New("file too big")
)

// allocZeroed allocates a data block and fills it with zeros, so that blocks
// recycled from removed files never leak old contents.
func allocZeroed(store bcache.Store, balloc *alloc.Alloc) (common.Bnum, error) {
	bn, ok := balloc.AllocNum()
	if !ok {
		return common.NULLBNUM, ErrNoSpace
	}
	if err := store.Write(bn, make(disk.Block, common.BlockSize)); err != nil {
		balloc.FreeNum(bn)
		return common.NULLBNUM, err
	}
	return bn, nil
}

// Bmap returns the disk block holding logical block lbn of ip. If the block
// is not allocated, Bmap returns NULLBNUM, unless grow is set, in which
// case it allocates a zero-filled block (and the indirect block, if needed)
// and records it in ip. The caller is responsible for writing ip back.
//
// If allocation fails partway, blocks allocated by this call are released and
// ip is left as it was.
func (ip *Inode) Bmap(store bcache.Store, balloc *alloc.Alloc, lbn uint64, grow bool) (common.Bnum, error) {
	if lbn >= common.MaxFileBlocks {
		return common.NULLBNUM, fmt.Errorf("block %d: %w", lbn, ErrFileTooBig)
	}
	if lbn < common.NDIRECT {
		if ip.Direct[lbn] == common.NULLBNUM && grow {
			bn, err := allocZeroed(store, balloc)
			if err != nil {
				return common.NULLBNUM, err
			}
			ip.Direct[lbn] = bn
		}
		return ip.Direct[lbn], nil
	}

	if ip.Indirect == common.NULLBNUM {
		if !grow {
			return common.NULLBNUM, nil
		}
		bn, err := allocZeroed(store, balloc)
		if err != nil {
			return common.NULLBNUM, err
		}
		ip.Indirect = bn
		b, err := bmapIndirect(store, balloc, ip.Indirect, lbn-common.NDIRECT, grow)
		if err != nil {
			balloc.FreeNum(ip.Indirect)
			ip.Indirect = common.NULLBNUM
			return common.NULLBNUM, err
		}
		return b, nil
	}
	return bmapIndirect(store, balloc, ip.Indirect, lbn-common.NDIRECT, grow)
}

func bmapIndirect(store bcache.Store, balloc *alloc.Alloc, ind common.Bnum, i uint64, grow bool) (common.Bnum, error) {
	blk, err := store.Read(ind)
	if err != nil {
		return common.NULLBNUM, err
	}
	bn := buf.BnumGet(blk, i)
	if bn != common.NULLBNUM || !grow {
		return bn, nil
	}
	bn, err = allocZeroed(store, balloc)
	if err != nil {
		return common.NULLBNUM, err
	}
	buf.BnumPut(blk, i, bn)
	if err := store.Write(ind, blk); err != nil {
		balloc.FreeNum(bn)
		return common.NULLBNUM, err
	}
	return bn, nil
}

// DataBlocks lists the allocated data blocks of ip in logical order: direct
// blocks first, then the blocks named by the indirect block.
func (ip *Inode) DataBlocks(store bcache.Store) ([]common.Bnum, error) {
	var blocks []common.Bnum
	for _, bn := range ip.Direct {
		if bn != common.NULLBNUM {
			blocks = append(blocks, bn)
		}
	}
	if ip.Indirect == common.NULLBNUM {
		return blocks, nil
	}
	blk, err := store.Read(ip.Indirect)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < common.NINDIRECT; i++ {
		if bn := buf.BnumGet(blk, i); bn != common.NULLBNUM {
			blocks = append(blocks, bn)
		}
	}
	return blocks, nil
}

// Blocks lists every block owned by ip: its data blocks and the indirect
// block itself.
func (ip *Inode) Blocks(store bcache.Store) ([]common.Bnum, error) {
	blocks, err := ip.DataBlocks(store)
	if err != nil {
		return nil, err
	}
	if ip.Indirect != common.NULLBNUM {
		blocks = append(blocks, ip.Indirect)
	}
	return blocks, nil
}

// Truncate frees every block owned by ip and resets it to an empty file of
// the same mode.
func (ip *Inode) Truncate(store bcache.Store, balloc *alloc.Alloc) error {
	blocks, err := ip.Blocks(store)
	if err != nil {
		return err
	}
	for _, bn := range blocks {
		balloc.FreeNum(bn)
	}
	*ip = Inode{Mode: ip.Mode}
	return nil
}
