package bcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"

	"github.com/mit-pdos/go-flatfs/blkdev"
	"github.com/mit-pdos/go-flatfs/common"
)

type countingDevice struct {
	blkdev.Device
	reads int
}

func (d *countingDevice) Read(bn uint64) []byte {
	d.reads++
	return d.Device.Read(bn)
}

func TestWriteThrough(t *testing.T) {
	assert := assert.New(t)
	mem := blkdev.NewMemDevice(32)
	d := &countingDevice{Device: mem}
	bc := MkBcache(d, 4)

	blk := make([]byte, common.BlockSize)
	blk[0] = 5
	bc.Write(3, blk)
	assert.Equal(blk, mem.Read(3), "write reaches the device")

	blk[0] = 6 // caller's buffer is not aliased
	assert.Equal(byte(5), bc.Read(3)[0])
	assert.Equal(0, d.reads)

	b := bc.Read(3)
	b[1] = 9
	assert.Equal(byte(0), bc.Read(3)[1], "reads return copies")
}

func TestReadMissThenHit(t *testing.T) {
	mem := blkdev.NewMemDevice(32)
	d := &countingDevice{Device: mem}
	bc := MkBcache(d, 2)
	bc.Read(1)
	bc.Read(1)
	assert.Equal(t, 1, d.reads)
	bc.Read(2)
	bc.Read(3) // evicts 1
	bc.Read(1)
	assert.Equal(t, 4, d.reads)
	assert.Equal(t, uint64(32), bc.Size())
}

func TestConcurrentSharedBlocks(t *testing.T) {
	mem := blkdev.NewMemDevice(32)
	bc := MkBcache(mem, 4)
	var g errgroup.Group
	for i := 0; i < 16; i++ {
		i := i
		g.Go(func() error {
			bn := uint64(i % 6)
			blk := make([]byte, common.BlockSize)
			for n := 0; n < 100; n++ {
				blk[0] = byte(i)
				blk[1] = byte(n)
				bc.Write(bn, blk)
				bc.Read(bn)
				bc.Read(uint64(n % 6))
			}
			return nil
		})
	}
	assert.NoError(t, g.Wait())
	for bn := uint64(0); bn < 6; bn++ {
		assert.Equal(t, mem.Read(bn), bc.Read(bn), "block %d", bn)
	}
}

func TestWriteAfterCachedRead(t *testing.T) {
	mem := blkdev.NewMemDevice(32)
	bc := MkBcache(mem, 4)
	assert.Equal(t, byte(0), bc.Read(5)[0])
	blk := make([]byte, common.BlockSize)
	blk[0] = 7
	bc.Write(5, blk)
	assert.Equal(t, byte(7), bc.Read(5)[0])
	assert.Equal(t, byte(7), mem.Read(5)[0])
}
