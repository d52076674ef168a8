// Package bcache provides block storage for a mounted file system: either
// straight to the disk, or through a write-back cache.
package bcache

import (
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
)

// Store is how the file system reads and writes whole blocks.
type Store interface {
	// Read returns a copy of block bn that the caller may modify.
	Read(bn common.Bnum) (disk.Block, error)

	// Write replaces block bn with b.
	Write(bn common.Bnum, b disk.Block) error

	// Flush makes every write so far reach the disk.
	Flush() error
}

var (
	_ Store = (*Direct)(nil)
	_ Store = (*Cache)(nil)
)

// Direct passes every block access through to the disk.
type Direct struct {
	d disk.Disk
}

func MkDirect(d disk.Disk) *Direct {
	return &Direct{d: d}
}

func (s *Direct) Read(bn common.Bnum) (disk.Block, error) {
	return s.d.Read(bn)
}

func (s *Direct) Write(bn common.Bnum, b disk.Block) error {
	return s.d.Write(bn, b)
}

func (s *Direct) Flush() error {
	return nil
}
