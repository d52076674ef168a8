package common

import (
	"github.com/tchajed/goose/machine/disk"
)

const BlockSize uint64 = disk.BlockSize

const (
	INODESZ  uint64 = 128 // on-disk size
	INODEBLK uint64 = BlockSize / INODESZ

	BNUMSZ    uint64 = 8 // a block pointer is one marshalled u64
	NDIRECT   uint64 = 12
	NINDIRECT uint64 = BlockSize / BNUMSZ

	DIRENTSZ   uint64 = 256
	DIRENTBLK  uint64 = BlockSize / DIRENTSZ
	MaxNameLen uint64 = DIRENTSZ - 8

	MaxFileBlocks uint64 = NDIRECT + NINDIRECT
	MaxFileSize   uint64 = MaxFileBlocks * BlockSize
)

// Defaults used when a mount does not override the geometry.
const (
	DefaultBlocks      uint64 = 10240
	DefaultInodes      uint64 = 128
	DefaultCacheBlocks int    = 1024
)

type Inum uint64
type Bnum = uint64

const (
	NULLINUM Inum = 0
	ROOTINUM Inum = 1
	NULLBNUM Bnum = 0
)

// Mode bits stored in an inode. Only the type bits are interpreted.
const (
	S_IFMT  uint64 = 0170000
	S_IFDIR uint64 = 0040000
	S_IFREG uint64 = 0100000

	ModeDir  uint64 = S_IFDIR | 0755
	ModeFile uint64 = S_IFREG | 0644
)
