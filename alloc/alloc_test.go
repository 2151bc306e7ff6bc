package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-flatfs/blkdev"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/super"
)

func mkAlloc(t *testing.T, nblocks uint64) (*Alloc, blkdev.Device) {
	d := blkdev.NewMemDevice(nblocks)
	fs, err := super.MkFsSuper(d, 8)
	require.NoError(t, err)
	hdr := fs.InitHeader()
	for bn := uint64(0); bn < fs.HeaderBlocks(); bn++ {
		d.Write(bn, hdr[bn*common.BlockSize:(bn+1)*common.BlockSize])
	}
	return MkAlloc(fs), d
}

func TestAllocFirstFree(t *testing.T) {
	assert := assert.New(t)
	a, _ := mkAlloc(t, 16)

	bn, err := a.FindFree()
	require.NoError(t, err)
	assert.Equal(common.Bnum(2), bn, "header occupies blocks 0 and 1")

	a.MarkUsed(2)
	a.MarkUsed(4)
	bn, _ = a.FindFree()
	assert.Equal(common.Bnum(3), bn)
	a.MarkFree(2)
	bn, _ = a.FindFree()
	assert.Equal(common.Bnum(2), bn)
}

func TestAllocZeroes(t *testing.T) {
	a, d := mkAlloc(t, 16)
	junk := make([]byte, common.BlockSize)
	junk[10] = 1
	d.Write(2, junk)

	bn, err := a.AllocBlock()
	require.NoError(t, err)
	assert.Equal(t, common.Bnum(2), bn)
	assert.Equal(t, make([]byte, common.BlockSize), d.Read(2))
	assert.True(t, a.IsUsed(2))
}

func TestOutOfSpace(t *testing.T) {
	assert := assert.New(t)
	a, _ := mkAlloc(t, 5)
	assert.Equal(uint64(3), a.NFree())
	for i := 0; i < 3; i++ {
		_, err := a.AllocBlock()
		require.NoError(t, err)
	}
	_, err := a.AllocBlock()
	assert.ErrorIs(err, common.ErrOutOfSpace)
	assert.Equal(uint64(0), a.NFree())

	a.FreeBlock(3)
	assert.Equal(uint64(1), a.NFree())
	bn, err := a.AllocBlock()
	assert.NoError(err)
	assert.Equal(common.Bnum(3), bn)
}

func TestFreeBlockChecks(t *testing.T) {
	a, _ := mkAlloc(t, 16)
	a.FreeBlock(common.NULLBNUM)
	a.FreeBlock(common.ZEROBNUM)
	assert.Panics(t, func() { a.FreeBlock(1) }, "header block")
	assert.Panics(t, func() { a.FreeBlock(7) }, "free block")
}
