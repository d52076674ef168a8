package super

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-sfs/addr"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
)

func TestLayout(t *testing.T) {
	assert := assert.New(t)
	fs, err := MkFsSuper(common.DefaultBlocks, common.DefaultInodes)
	require.NoError(t, err)
	assert.Equal(uint64(4), fs.NInodeBlocks(), "128 inodes of 128 bytes fill 4 blocks")
	assert.Equal(common.Bnum(1), fs.InodeStart())
	assert.Equal(common.Bnum(5), fs.DataStart())
	assert.Equal(addr.MkAddr(1, common.INODESZ), fs.Inum2Addr(common.ROOTINUM))
	assert.Equal(addr.MkAddr(4, 31*common.INODESZ), fs.Inum2Addr(127))
}

func TestLayoutTooSmall(t *testing.T) {
	_, err := MkFsSuper(3, 128)
	assert.True(t, errors.Is(err, ErrGeometry))
	_, err = MkFsSuper(100, 1)
	assert.True(t, errors.Is(err, ErrGeometry))
}

func TestLoadFormatsFreshDisk(t *testing.T) {
	d := disk.NewMemDisk(64)
	fs, err := Load(d, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(64), fs.NBlocks)
	assert.Equal(t, common.DefaultInodes, fs.NInodes)

	blk, err := d.Read(SUPERBNUM)
	require.NoError(t, err)
	fs2, ok, err := Decode(blk)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, fs.NBlocks, fs2.NBlocks)
	assert.Equal(t, fs.NInodes, fs2.NInodes)
}

func TestLoadGeometryMismatch(t *testing.T) {
	d := disk.NewMemDisk(64)
	_, err := Load(d, 64, 32)
	require.NoError(t, err)

	fs, err := Load(d, 0, 0)
	require.NoError(t, err, "zero geometry accepts whatever is on disk")
	assert.Equal(t, uint64(32), fs.NInodes)

	_, err = Load(d, 64, 64)
	assert.True(t, errors.Is(err, ErrGeometry))

	_, err = Load(disk.NewMemDisk(8), 16, 32)
	assert.True(t, errors.Is(err, ErrGeometry), "disk too small for the requested geometry")
}
