package fs

import (
	"fmt"

	"github.com/mit-pdos/go-sfs/common"
)

type options struct {
	cache    bool
	capacity int
	nblocks  uint64
	ninodes  uint64
	recover  bool
}

func defaultOptions() *options {
	return &options{
		cache:    true,
		capacity: common.DefaultCacheBlocks,
	}
}

// Option is a functional option for Mount and MountImage.
type Option func(*options) error

// WithCache selects the write-back block cache with room for capacity
// blocks, or direct device access when enabled is false. A capacity <= 0
// selects DefaultCacheBlocks.
func WithCache(enabled bool, capacity int) Option {
	return func(o *options) error {
		o.cache = enabled
		o.capacity = capacity
		return nil
	}
}

// WithGeometry sets the size of a fresh image. An existing image must match
// any non-zero value.
func WithGeometry(nblocks uint64, ninodes uint64) Option {
	return func(o *options) error {
		if ninodes != 0 && ninodes < 2 {
			return fmt.Errorf("need at least 2 inodes, got %d", ninodes)
		}
		o.nblocks = nblocks
		o.ninodes = ninodes
		return nil
	}
}

// WithRecoverBitmaps rebuilds the block and inode bitmaps from the inode
// table at mount time. Without it a remounted image starts with every data
// block free.
func WithRecoverBitmaps(enabled bool) Option {
	return func(o *options) error {
		o.recover = enabled
		return nil
	}
}
