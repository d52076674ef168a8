// Package inode stores fixed-size inode records in the inode table and maps
// a file's logical blocks to disk blocks.
package inode

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-sfs/common"
)

type Inode struct {
	Mode     uint64
	Size     uint64
	Direct   [common.NDIRECT]common.Bnum
	Indirect common.Bnum
}

func MkInode(mode uint64) *Inode {
	return &Inode{Mode: mode}
}

// Encode returns the INODESZ-byte on-disk form of ip.
func (ip *Inode) Encode() []byte {
	enc := marshal.NewEnc(common.INODESZ)
	enc.PutInt(ip.Mode)
	enc.PutInt(ip.Size)
	enc.PutInts(ip.Direct[:])
	enc.PutInt(ip.Indirect)
	return enc.Finish()
}

func Decode(data []byte) *Inode {
	if uint64(len(data)) < common.INODESZ {
		panic("inode.Decode: short record")
	}
	ip := &Inode{}
	dec := marshal.NewDec(data[:common.INODESZ])
	ip.Mode = dec.GetInt()
	ip.Size = dec.GetInt()
	copy(ip.Direct[:], dec.GetInts(common.NDIRECT))
	ip.Indirect = dec.GetInt()
	return ip
}

func (ip *Inode) IsFree() bool {
	return ip.Mode == 0
}

func (ip *Inode) IsDir() bool {
	return ip.Mode&common.S_IFMT == common.S_IFDIR
}

func (ip *Inode) IsFile() bool {
	return ip.Mode&common.S_IFMT == common.S_IFREG
}

func (ip *Inode) String() string {
	return fmt.Sprintf("mode %o size %d direct %v indirect %d",
		ip.Mode, ip.Size, ip.Direct, ip.Indirect)
}
