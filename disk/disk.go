package disk

import (
	"errors"

	gdisk "github.com/tchajed/goose/machine/disk"
)

// Block is a BlockSize-byte buffer
type Block = gdisk.Block

const BlockSize uint64 = gdisk.BlockSize

var (
	ErrOutOfRange = errors.New("block number out of range")
	ErrBlockSize  = errors.New("buffer is not block-sized")
)

// Disk provides access to a logical block-based disk.
//
// Unlike the goose disk, out-of-range addresses and badly sized buffers are
// reported as errors rather than panics; a failed call leaves the disk
// unchanged.
type Disk interface {
	// Read reads a disk block by address
	Read(a uint64) (Block, error)

	// ReadTo reads the disk block at a and stores the result in b
	ReadTo(a uint64, b Block) error

	// Write updates a disk block by address
	Write(a uint64, v Block) error

	// Size reports how big the disk is, in blocks
	Size() uint64

	// Barrier ensures data is persisted.
	//
	// When it returns, all outstanding writes are guaranteed to be durably on
	// disk
	Barrier() error

	// Close releases any resources used by the disk and makes it unusable.
	Close() error
}

func checkAccess(a uint64, nblocks uint64, b Block) error {
	if a >= nblocks {
		return ErrOutOfRange
	}
	if uint64(len(b)) != BlockSize {
		return ErrBlockSize
	}
	return nil
}
