package addr

import (
	"fmt"

	"github.com/mit-pdos/go-sfs/common"
)

// Addr identifies the start of a fixed-size record on disk, such as an inode
// in the inode table.
//
// Blkno is the block number containing the record, and Off is the location of
// the record within the block, in bytes. The size of the record is determined
// by the context in which Addr is used.
type Addr struct {
	Blkno common.Bnum
	Off   uint64
}

func (a Addr) Flatid() uint64 {
	return uint64(a.Blkno)*common.BlockSize + a.Off
}

func (a Addr) String() string {
	return fmt.Sprintf("%d+%d", a.Blkno, a.Off)
}

func MkAddr(blkno common.Bnum, off uint64) Addr {
	return Addr{Blkno: blkno, Off: off}
}

// MkRecordAddr returns the address of the n-th record of size sz in a region
// of consecutive blocks starting at start.
func MkRecordAddr(start common.Bnum, n uint64, sz uint64) Addr {
	perBlock := common.BlockSize / sz
	return MkAddr(start+common.Bnum(n/perBlock), (n%perBlock)*sz)
}
