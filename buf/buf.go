// Package buf holds block-sized buffers and the fixed-width pointer codec used
// for indirect blocks.
package buf

import (
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
)

// A Buf is the in-memory copy of one disk block
type Buf struct {
	Blkno common.Bnum
	Data  disk.Block
	dirty bool // has this block been written to?
}

func MkBuf(blkno common.Bnum, data disk.Block) *Buf {
	if uint64(len(data)) != common.BlockSize {
		panic("MkBuf: data is not block-sized")
	}
	b := &Buf{
		Blkno: blkno,
		Data:  data,
		dirty: false,
	}
	return b
}

func (buf *Buf) IsDirty() bool {
	return buf.dirty
}

func (buf *Buf) SetDirty() {
	buf.dirty = true
}

// WriteDirect writes the buf to d and marks it clean.
func (buf *Buf) WriteDirect(d disk.Disk) error {
	if err := d.Write(buf.Blkno, buf.Data); err != nil {
		return err
	}
	buf.dirty = false
	return nil
}

// BnumGet returns the i-th block pointer of an indirect block.
func BnumGet(blk disk.Block, i uint64) common.Bnum {
	off := i * common.BNUMSZ
	dec := marshal.NewDec(blk[off : off+common.BNUMSZ])
	return common.Bnum(dec.GetInt())
}

// BnumPut stores v as the i-th block pointer of an indirect block.
func BnumPut(blk disk.Block, i uint64, v common.Bnum) {
	off := i * common.BNUMSZ
	enc := marshal.NewEnc(common.BNUMSZ)
	enc.PutInt(uint64(v))
	copy(blk[off:off+common.BNUMSZ], enc.Finish())
}
