package fs

import (
	"errors"

	"github.com/mit-pdos/go-sfs/bcache"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
)

// lossStore wraps the mount's store so that a failed write-back of some
// other evicted block does not abort the access that triggered it. The
// access itself succeeded; the loss is kept and reported once the current
// FS operation returns.
type lossStore struct {
	bcache.Store
	lost error
}

func (s *lossStore) filter(err error) error {
	if errors.Is(err, bcache.ErrWriteback) {
		if s.lost == nil {
			s.lost = err
		}
		return nil
	}
	return err
}

func (s *lossStore) Read(bn common.Bnum) (disk.Block, error) {
	blk, err := s.Store.Read(bn)
	if blk == nil {
		return nil, err
	}
	return blk, s.filter(err)
}

func (s *lossStore) Write(bn common.Bnum, b disk.Block) error {
	return s.filter(s.Store.Write(bn, b))
}

func (s *lossStore) take() error {
	err := s.lost
	s.lost = nil
	return err
}

// reportLoss sets *err to a pending write-back failure if the operation
// otherwise succeeded.
func (fs *FS) reportLoss(err *error) {
	if lost := fs.store.take(); lost != nil && *err == nil {
		*err = lost
	}
}
