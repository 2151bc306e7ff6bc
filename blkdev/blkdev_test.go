package blkdev

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-flatfs/common"
)

func mkblock(b byte) []byte {
	data := make([]byte, common.BlockSize)
	for i := range data {
		data[i] = b
	}
	return data
}

func TestMemDevice(t *testing.T) {
	assert := assert.New(t)
	dev := NewMemDevice(40)
	defer dev.Close()

	assert.Equal(uint64(40), dev.Size())
	assert.Equal(make([]byte, common.BlockSize), dev.Read(17))

	// neighbours share a disk block
	dev.Write(16, mkblock(1))
	dev.Write(17, mkblock(2))
	dev.Write(18, mkblock(3))
	assert.Equal(mkblock(1), dev.Read(16))
	assert.Equal(mkblock(2), dev.Read(17))
	assert.Equal(mkblock(3), dev.Read(18))
}

func TestReadReturnsCopy(t *testing.T) {
	dev := NewMemDevice(16)
	dev.Write(3, mkblock(9))
	b := dev.Read(3)
	b[0] = 0
	assert.Equal(t, mkblock(9), dev.Read(3))
}

func TestSizeCapped(t *testing.T) {
	dev := NewMemDevice(1000)
	assert.Equal(t, common.MAXBLOCKS, dev.Size())
}

func TestOutOfRange(t *testing.T) {
	dev := NewMemDevice(10)
	assert.Panics(t, func() { dev.Read(10) })
	assert.Panics(t, func() { dev.Write(0, make([]byte, 10)) })
}

func TestFileDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flatfs.img")

	dev, err := NewFileDevice(path, 64)
	require.NoError(t, err)
	dev.Write(33, mkblock(7))
	dev.Barrier()

	_, err = NewFileDevice(path, 64)
	assert.ErrorIs(t, err, ErrLocked)

	dev.Close()

	dev, err = NewFileDevice(path, 64)
	require.NoError(t, err)
	defer dev.Close()
	assert.Equal(t, mkblock(7), dev.Read(33))
	assert.Equal(t, make([]byte, common.BlockSize), dev.Read(32))
}
