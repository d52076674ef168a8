package dir

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-sfs/common"
)

var (
	ErrNameTooLong = errors.New("file name too long")
	ErrInvalidName = errors.New("invalid file name")
)

// A DirEnt is one DIRENTSZ-byte slot of a directory block: an 8-byte inode
// number followed by the NUL-padded name. Inum 0 marks a free slot.
type DirEnt struct {
	Inum common.Inum
	Name string
}

func (de *DirEnt) Encode() []byte {
	enc := marshal.NewEnc(common.DIRENTSZ)
	enc.PutInt(uint64(de.Inum))
	data := enc.Finish()
	copy(data[8:], de.Name)
	return data
}

func DecodeDirEnt(data []byte) *DirEnt {
	dec := marshal.NewDec(data[:8])
	inum := common.Inum(dec.GetInt())
	name := data[8:common.DIRENTSZ]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return &DirEnt{Inum: inum, Name: string(name)}
}

func (de *DirEnt) IsFree() bool {
	return de.Inum == common.NULLINUM
}

func CheckName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	if uint64(len(name)) > common.MaxNameLen {
		return fmt.Errorf("%d bytes: %w", len(name), ErrNameTooLong)
	}
	return nil
}

func entAt(blk []byte, slot uint64) *DirEnt {
	off := slot * common.DIRENTSZ
	return DecodeDirEnt(blk[off : off+common.DIRENTSZ])
}

func putEntAt(blk []byte, slot uint64, de *DirEnt) {
	off := slot * common.DIRENTSZ
	copy(blk[off:off+common.DIRENTSZ], de.Encode())
}
