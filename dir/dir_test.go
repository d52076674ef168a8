package dir

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mit-pdos/go-sfs/alloc"
	"github.com/mit-pdos/go-sfs/bcache"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
	"github.com/mit-pdos/go-sfs/inode"
	"github.com/mit-pdos/go-sfs/super"
)

func TestDirEntEncoding(t *testing.T) {
	de := &DirEnt{Inum: 42, Name: "hello.txt"}
	data := de.Encode()
	assert.Equal(t, common.DIRENTSZ, uint64(len(data)))
	assert.Equal(t, byte(0), data[8+len("hello.txt")], "name is NUL padded")
	assert.Equal(t, de, DecodeDirEnt(data))

	long := &DirEnt{Inum: 7, Name: strings.Repeat("x", int(common.MaxNameLen))}
	assert.Equal(t, long, DecodeDirEnt(long.Encode()))

	assert.True(t, DecodeDirEnt(make([]byte, common.DIRENTSZ)).IsFree())
}

func TestCheckName(t *testing.T) {
	assert.NoError(t, CheckName("a"))
	assert.NoError(t, CheckName(strings.Repeat("n", int(common.MaxNameLen))))
	for _, name := range []string{"", ".", "..", "a/b", "nul\x00"} {
		assert.True(t, errors.Is(CheckName(name), ErrInvalidName), "%q", name)
	}
	err := CheckName(strings.Repeat("n", int(common.MaxNameLen)+1))
	assert.True(t, errors.Is(err, ErrNameTooLong))
}

type DirSuite struct {
	suite.Suite
	store  bcache.Store
	balloc *alloc.Alloc
	tbl    *inode.Table
	dirs   *Dirs
}

func (suite *DirSuite) SetupTest() {
	const nblocks = 256
	d := disk.NewMemDisk(nblocks)
	sb, err := super.Load(d, nblocks, 64)
	suite.Require().NoError(err)
	suite.store = bcache.MkCache(d, 16)
	suite.balloc = alloc.MkReservedAlloc(nblocks, uint64(sb.DataStart()))
	suite.tbl = inode.MkTable(sb, suite.store)
	suite.Require().NoError(suite.tbl.Init(suite.balloc))
	suite.dirs = MkDirs(suite.tbl, suite.store, suite.balloc)
}

func TestDirSuite(t *testing.T) {
	suite.Run(t, new(DirSuite))
}

func (suite *DirSuite) TestEmptyRoot() {
	names, err := suite.dirs.List(common.ROOTINUM)
	suite.Require().NoError(err)
	suite.Empty(names)
	empty, err := suite.dirs.IsEmpty(common.ROOTINUM)
	suite.Require().NoError(err)
	suite.True(empty)
	_, err = suite.dirs.Lookup(common.ROOTINUM, "missing")
	suite.True(errors.Is(err, ErrNotFound))
}

func (suite *DirSuite) TestAddLookupList() {
	require := suite.Require()
	require.NoError(suite.dirs.Add(common.ROOTINUM, "a", 2))
	require.NoError(suite.dirs.Add(common.ROOTINUM, "b", 3))

	inum, err := suite.dirs.Lookup(common.ROOTINUM, "b")
	require.NoError(err)
	suite.Equal(common.Inum(3), inum)

	names, err := suite.dirs.List(common.ROOTINUM)
	require.NoError(err)
	suite.Equal([]string{"a", "b"}, names)

	empty, err := suite.dirs.IsEmpty(common.ROOTINUM)
	require.NoError(err)
	suite.False(empty)
}

func (suite *DirSuite) TestAddRejectsBadNames() {
	err := suite.dirs.Add(common.ROOTINUM, "x/y", 2)
	suite.True(errors.Is(err, ErrInvalidName))
	err = suite.dirs.Add(common.ROOTINUM, strings.Repeat("z", 300), 2)
	suite.True(errors.Is(err, ErrNameTooLong))
	names, _ := suite.dirs.List(common.ROOTINUM)
	suite.Empty(names)
}

func (suite *DirSuite) TestDuplicatesNotChecked() {
	suite.Require().NoError(suite.dirs.Add(common.ROOTINUM, "dup", 2))
	suite.Require().NoError(suite.dirs.Add(common.ROOTINUM, "dup", 3))
	inum, err := suite.dirs.Lookup(common.ROOTINUM, "dup")
	suite.Require().NoError(err)
	suite.Equal(common.Inum(2), inum, "lookup returns the first match")
}

func (suite *DirSuite) TestGrowsIntoNewBlocks() {
	require := suite.Require()
	n := int(common.DIRENTBLK) + 1
	for i := 0; i < n; i++ {
		require.NoError(suite.dirs.Add(common.ROOTINUM, fmt.Sprintf("f%d", i), 2))
	}
	root, err := suite.tbl.Read(common.ROOTINUM)
	require.NoError(err)
	suite.Equal(2*common.BlockSize, root.Size)
	suite.NotEqual(common.NULLBNUM, root.Direct[1])

	names, err := suite.dirs.List(common.ROOTINUM)
	require.NoError(err)
	suite.Len(names, n)
	suite.Equal(fmt.Sprintf("f%d", n-1), names[n-1])
}

func (suite *DirSuite) TestGrowsIntoIndirect() {
	require := suite.Require()
	n := int(common.NDIRECT*common.DIRENTBLK) + 3
	for i := 0; i < n; i++ {
		require.NoError(suite.dirs.Add(common.ROOTINUM, fmt.Sprintf("e%d", i), common.Inum(2+i%60)))
	}
	root, err := suite.tbl.Read(common.ROOTINUM)
	require.NoError(err)
	suite.NotEqual(common.NULLBNUM, root.Indirect)
	suite.Equal((common.NDIRECT+1)*common.BlockSize, root.Size)

	last := fmt.Sprintf("e%d", n-1)
	inum, err := suite.dirs.Lookup(common.ROOTINUM, last)
	require.NoError(err)
	suite.Equal(common.Inum(2+(n-1)%60), inum)

	names, err := suite.dirs.List(common.ROOTINUM)
	require.NoError(err)
	suite.Len(names, n)
}

func (suite *DirSuite) TestRemoveReusesSlot() {
	require := suite.Require()
	require.NoError(suite.dirs.Add(common.ROOTINUM, "a", 2))
	require.NoError(suite.dirs.Add(common.ROOTINUM, "b", 3))
	require.NoError(suite.dirs.Remove(common.ROOTINUM, "a"))

	_, err := suite.dirs.Lookup(common.ROOTINUM, "a")
	suite.True(errors.Is(err, ErrNotFound))
	err = suite.dirs.Remove(common.ROOTINUM, "a")
	suite.True(errors.Is(err, ErrNotFound))

	require.NoError(suite.dirs.Add(common.ROOTINUM, "c", 4))
	names, err := suite.dirs.List(common.ROOTINUM)
	require.NoError(err)
	suite.Equal([]string{"c", "b"}, names)

	root, err := suite.tbl.Read(common.ROOTINUM)
	require.NoError(err)
	suite.Equal(common.BlockSize, root.Size, "directories never shrink or grow needlessly")
}

func (suite *DirSuite) TestNotADirectory() {
	inum, err := suite.tbl.Alloc()
	suite.Require().NoError(err)
	suite.Require().NoError(suite.tbl.Write(inum, inode.MkInode(common.ModeFile)))

	_, err = suite.dirs.Lookup(inum, "x")
	suite.True(errors.Is(err, ErrNotDir))
	err = suite.dirs.Add(inum, "x", 2)
	suite.True(errors.Is(err, ErrNotDir))
	_, err = suite.dirs.List(inum)
	suite.True(errors.Is(err, ErrNotDir))
}

func TestAddOutOfSpace(t *testing.T) {
	const nblocks = 8
	d := disk.NewMemDisk(nblocks)
	sb, err := super.Load(d, nblocks, 32)
	require.NoError(t, err)
	store := bcache.MkDirect(d)
	balloc := alloc.MkReservedAlloc(nblocks, uint64(sb.DataStart()))
	tbl := inode.MkTable(sb, store)
	require.NoError(t, tbl.Init(balloc))
	dirs := MkDirs(tbl, store, balloc)

	var addErr error
	for i := 0; i < 200 && addErr == nil; i++ {
		addErr = dirs.Add(common.ROOTINUM, fmt.Sprintf("n%d", i), 2)
	}
	assert.True(t, errors.Is(addErr, inode.ErrNoSpace))
	assert.Equal(t, uint64(0), balloc.NumFree())
}
