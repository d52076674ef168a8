package buf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
)

func TestBnumPutGet(t *testing.T) {
	assert := assert.New(t)
	blk := make(disk.Block, common.BlockSize)

	BnumPut(blk, 0, 42)
	BnumPut(blk, common.NINDIRECT-1, 1<<40)
	assert.Equal(common.Bnum(42), BnumGet(blk, 0))
	assert.Equal(common.Bnum(1<<40), BnumGet(blk, common.NINDIRECT-1))
	assert.Equal(common.Bnum(0), BnumGet(blk, 1), "neighbor should be untouched")
}

func TestWriteDirect(t *testing.T) {
	d := disk.NewMemDisk(4)
	data := make(disk.Block, common.BlockSize)
	data[17] = 3
	b := MkBuf(2, data)
	b.SetDirty()
	require.NoError(t, b.WriteDirect(d))
	assert.False(t, b.IsDirty())

	blk, err := d.Read(2)
	require.NoError(t, err)
	assert.Equal(t, byte(3), blk[17])

	b = MkBuf(9, data)
	b.SetDirty()
	assert.Error(t, b.WriteDirect(d))
	assert.True(t, b.IsDirty(), "failed write should leave the buf dirty")
}
