package super

import (
	"encoding/binary"
	"fmt"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-flatfs/blkdev"
	"github.com/mit-pdos/go-flatfs/common"
)

//
// Block 0 holds the block bitmap followed by the number of
// descriptors.  The descriptor table starts right after it, at byte
// common.DESCSTART, and runs through the header blocks.
//

const SUPERBNUM uint64 = 0

type FsSuper struct {
	Disk    blkdev.Device
	NBlocks uint64
	NDesc   uint32
}

// Number of blocks covered by the superblock and a table of ndesc
// descriptors.
func HeaderBlocks(ndesc uint32) uint64 {
	return util.RoundUp(common.DESCSTART+uint64(ndesc)*common.DESCSZ, common.BlockSize)
}

func MkFsSuper(d blkdev.Device, ndesc uint32) (*FsSuper, error) {
	fs := &FsSuper{Disk: d, NBlocks: d.Size(), NDesc: ndesc}
	if ndesc == 0 {
		return nil, fmt.Errorf("mkfs: no descriptors: %w", common.ErrInvalidRange)
	}
	if fs.HeaderBlocks() >= fs.NBlocks {
		return nil, fmt.Errorf("mkfs: %d descriptors need %d blocks of %d: %w",
			ndesc, fs.HeaderBlocks(), fs.NBlocks, common.ErrOutOfSpace)
	}
	return fs, nil
}

func ReadFsSuper(d blkdev.Device) (*FsSuper, error) {
	if d.Size() == 0 {
		return nil, fmt.Errorf("empty device: %w", common.ErrCorrupt)
	}
	blk := d.Read(SUPERBNUM)
	ndesc := binary.BigEndian.Uint32(blk[common.NDESCOFF : common.NDESCOFF+4])
	fs := &FsSuper{Disk: d, NBlocks: d.Size(), NDesc: ndesc}
	if ndesc == 0 || fs.HeaderBlocks() >= fs.NBlocks {
		return nil, fmt.Errorf("superblock: %d descriptors on %d blocks: %w",
			ndesc, fs.NBlocks, common.ErrCorrupt)
	}
	util.DPrintf(1, "ReadFsSuper: %d blocks %d descriptors\n", fs.NBlocks, fs.NDesc)
	return fs, nil
}

func (fs *FsSuper) HeaderBlocks() uint64 {
	return HeaderBlocks(fs.NDesc)
}

func (fs *FsSuper) DataStart() common.Bnum {
	return common.Bnum(fs.HeaderBlocks())
}

// Desc2Addr returns the block holding descriptor inum and the byte
// offset of the descriptor in that block.
func (fs *FsSuper) Desc2Addr(inum common.Inum) (uint64, uint64) {
	off := common.DESCSTART + uint64(inum)*common.DESCSZ
	return off / common.BlockSize, off % common.BlockSize
}

// InitHeader returns the zeroed header region with the header blocks
// marked used in the bitmap and the descriptor count filled in.
func (fs *FsSuper) InitHeader() []byte {
	hdr := make([]byte, fs.HeaderBlocks()*common.BlockSize)
	for bn := uint64(0); bn < fs.HeaderBlocks(); bn++ {
		SetBit(hdr, bn)
	}
	binary.BigEndian.PutUint32(hdr[common.NDESCOFF:common.NDESCOFF+4], fs.NDesc)
	return hdr
}

// Bitmap bits are most-significant-bit first within each byte.

func mask(bn uint64) byte {
	return 1 << (7 - bn%8)
}

func SetBit(bitmap []byte, bn uint64) {
	bitmap[bn/8] = bitmap[bn/8] | mask(bn)
}

func ClearBit(bitmap []byte, bn uint64) {
	bitmap[bn/8] = bitmap[bn/8] & ^mask(bn)
}

func TestBit(bitmap []byte, bn uint64) bool {
	return bitmap[bn/8]&mask(bn) != 0
}
