package bcache

import (
	"github.com/mit-pdos/go-flatfs/blkdev"
	"github.com/mit-pdos/go-flatfs/cache"
	"github.com/mit-pdos/go-flatfs/common"
)

//
// Write-through block cache
//

type Bcache struct {
	d      blkdev.Device
	bcache *cache.Cache
}

var _ blkdev.Device = &Bcache{}

func MkBcache(d blkdev.Device, sz uint64) *Bcache {
	return &Bcache{
		d:      d,
		bcache: cache.MkCache(sz),
	}
}

func (bc *Bcache) Read(bn uint64) []byte {
	cslot := bc.bcache.LookupSlot(bn)
	if cslot == nil {
		return bc.d.Read(bn)
	}
	defer bc.bcache.FreeSlot(bn)
	cslot.Lock()
	defer cslot.Unlock()
	if cslot.Obj == nil {
		cslot.Obj = bc.d.Read(bn)
	}
	blk := make([]byte, common.BlockSize)
	copy(blk, cslot.Obj.([]byte))
	return blk
}

func (bc *Bcache) Write(bn uint64, b []byte) {
	if b == nil {
		panic("Write")
	}
	cslot := bc.bcache.LookupSlot(bn)
	if cslot == nil {
		bc.d.Write(bn, b)
		return
	}
	// the device and the slot change together so a concurrent Read
	// cannot refill the slot from the old disk contents
	cslot.Lock()
	bc.d.Write(bn, b)
	blk := make([]byte, common.BlockSize)
	copy(blk, b)
	cslot.Obj = blk
	cslot.Unlock()
	bc.bcache.FreeSlot(bn)
}

func (bc *Bcache) Barrier() {
	bc.d.Barrier()
}

func (bc *Bcache) Size() uint64 {
	return bc.d.Size()
}

func (bc *Bcache) Close() {
	bc.bcache.Drop()
	bc.d.Close()
}
