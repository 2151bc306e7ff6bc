package alloc

import (
	"fmt"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-flatfs/blkdev"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/super"
)

// Alloc hands out blocks using the bitmap in the superblock.  Bit bn
// of the bitmap is set iff block bn is in use; the header blocks are
// always in use.
type Alloc struct {
	d       blkdev.Device
	start   uint64 // first data block
	nblocks uint64
}

func MkAlloc(fs *super.FsSuper) *Alloc {
	return &Alloc{
		d:       fs.Disk,
		start:   fs.HeaderBlocks(),
		nblocks: fs.NBlocks,
	}
}

func (a *Alloc) bitmap() []byte {
	return a.d.Read(super.SUPERBNUM)
}

// FindFree returns the lowest-numbered free block without allocating it.
func (a *Alloc) FindFree() (common.Bnum, error) {
	bitmap := a.bitmap()
	for bn := uint64(0); bn < a.nblocks; bn++ {
		if !super.TestBit(bitmap, bn) {
			util.DPrintf(15, "FindFree -> %d\n", bn)
			return common.Bnum(bn), nil
		}
	}
	return common.NULLBNUM, fmt.Errorf("%d blocks in use: %w", a.nblocks, common.ErrOutOfSpace)
}

func (a *Alloc) MarkUsed(bn common.Bnum) {
	blk := a.bitmap()
	super.SetBit(blk, uint64(bn))
	a.d.Write(super.SUPERBNUM, blk)
}

func (a *Alloc) MarkFree(bn common.Bnum) {
	blk := a.bitmap()
	super.ClearBit(blk, uint64(bn))
	a.d.Write(super.SUPERBNUM, blk)
}

func (a *Alloc) IsUsed(bn common.Bnum) bool {
	return super.TestBit(a.bitmap(), uint64(bn))
}

// Zero overwrites block bn with zeros.
func (a *Alloc) Zero(bn common.Bnum) {
	a.d.Write(uint64(bn), make([]byte, common.BlockSize))
}

// AllocBlock allocates a zeroed block.
func (a *Alloc) AllocBlock() (common.Bnum, error) {
	bn, err := a.FindFree()
	if err != nil {
		return common.NULLBNUM, err
	}
	a.Zero(bn)
	a.MarkUsed(bn)
	util.DPrintf(5, "AllocBlock -> %d\n", bn)
	return bn, nil
}

// FreeBlock returns bn to the free pool.  Unallocated and
// placeholder addresses are ignored.
func (a *Alloc) FreeBlock(bn common.Bnum) {
	if !bn.IsBacked() {
		return
	}
	if uint64(bn) < a.start || uint64(bn) >= a.nblocks {
		panic("FreeBlock")
	}
	if !a.IsUsed(bn) {
		panic("FreeBlock: block not in use")
	}
	util.DPrintf(5, "FreeBlock %d\n", bn)
	a.MarkFree(bn)
}

// NFree returns the number of free blocks.
func (a *Alloc) NFree() uint64 {
	bitmap := a.bitmap()
	var n uint64
	for bn := uint64(0); bn < a.nblocks; bn++ {
		if !super.TestBit(bitmap, bn) {
			n++
		}
	}
	return n
}

func (a *Alloc) NBlocks() uint64 {
	return a.nblocks
}
