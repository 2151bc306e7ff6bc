package super

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-flatfs/blkdev"
	"github.com/mit-pdos/go-flatfs/common"
)

func TestHeaderBlocks(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(uint64(2), HeaderBlocks(1))
	assert.Equal(uint64(2), HeaderBlocks(32))
	assert.Equal(uint64(3), HeaderBlocks(33))
	assert.Equal(uint64(17), HeaderBlocks(500))
}

func TestDesc2Addr(t *testing.T) {
	fs := &FsSuper{NDesc: 100}
	bn, off := fs.Desc2Addr(0)
	assert.Equal(t, uint64(1), bn)
	assert.Equal(t, uint64(0), off)
	bn, off = fs.Desc2Addr(33)
	assert.Equal(t, uint64(2), bn)
	assert.Equal(t, uint64(8), off)
}

func TestBits(t *testing.T) {
	assert := assert.New(t)
	bitmap := make([]byte, 2)
	SetBit(bitmap, 0)
	SetBit(bitmap, 9)
	assert.Equal([]byte{0x80, 0x40}, bitmap)
	assert.True(TestBit(bitmap, 9))
	ClearBit(bitmap, 0)
	assert.False(TestBit(bitmap, 0))
	assert.Equal([]byte{0x00, 0x40}, bitmap)
}

func TestInitHeaderAndRead(t *testing.T) {
	d := blkdev.NewMemDevice(64)
	fs, err := MkFsSuper(d, 40)
	require.NoError(t, err)
	hdr := fs.InitHeader()
	require.Equal(t, 3*int(common.BlockSize), len(hdr))
	assert.Equal(t, byte(0xE0), hdr[0])
	assert.Equal(t, []byte{0, 0, 0, 40}, hdr[252:256])

	d.Write(0, hdr[:common.BlockSize])
	fs2, err := ReadFsSuper(d)
	require.NoError(t, err)
	assert.Equal(t, uint32(40), fs2.NDesc)
	assert.Equal(t, common.Bnum(3), fs2.DataStart())
}

func TestTooManyDescriptors(t *testing.T) {
	d := blkdev.NewMemDevice(4)
	_, err := MkFsSuper(d, 200)
	assert.ErrorIs(t, err, common.ErrOutOfSpace)
	_, err = MkFsSuper(d, 0)
	assert.ErrorIs(t, err, common.ErrInvalidRange)
}

func TestReadUnformatted(t *testing.T) {
	_, err := ReadFsSuper(blkdev.NewMemDevice(16))
	assert.ErrorIs(t, err, common.ErrCorrupt)
}
