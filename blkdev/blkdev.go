package blkdev

import (
	"os"
	"sync"

	"github.com/mit-pdos/go-journal/util"
	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-flatfs/common"
)

// Device stores fixed-size blocks of common.BlockSize bytes by index.
// It knows nothing about the file system stored on it.
type Device interface {
	Read(bn uint64) []byte
	Write(bn uint64, b []byte)
	Size() uint64
	Barrier()
	Close()
}

// # file system blocks per goose disk block
const NBLKDISK uint64 = disk.BlockSize / common.BlockSize

// Disk packs file system blocks into the larger blocks of a goose
// disk.  Reads and writes of a file system block read-modify-write the
// disk block that contains it, under mu.
type Disk struct {
	mu      *sync.Mutex
	d       disk.Disk
	nblocks uint64
	lock    *os.File
}

var _ Device = &Disk{}

func diskBlocks(nblocks uint64) uint64 {
	return util.RoundUp(nblocks, NBLKDISK)
}

func capBlocks(nblocks uint64) uint64 {
	if nblocks > common.MAXBLOCKS {
		return common.MAXBLOCKS
	}
	return nblocks
}

// NewDisk wraps d; the device exposes at most nblocks blocks.
func NewDisk(d disk.Disk, nblocks uint64) *Disk {
	n := capBlocks(util.Min(nblocks, d.Size()*NBLKDISK))
	return &Disk{mu: new(sync.Mutex), d: d, nblocks: n}
}

func NewMemDevice(nblocks uint64) *Disk {
	nblocks = capBlocks(nblocks)
	util.DPrintf(1, "NewMemDevice: %d blocks\n", nblocks)
	return NewDisk(disk.NewMemDisk(diskBlocks(nblocks)), nblocks)
}

// NewFileDevice opens (creating if necessary) the image at path and
// takes an exclusive lock on it.  A new image reads as zeros.
func NewFileDevice(path string, nblocks uint64) (*Disk, error) {
	nblocks = capBlocks(nblocks)
	lock, err := lockImage(path)
	if err != nil {
		return nil, err
	}
	util.DPrintf(1, "NewFileDevice: %s %d blocks\n", path, nblocks)
	d, err := disk.NewFileDisk(path, diskBlocks(nblocks))
	if err != nil {
		unlockImage(lock)
		return nil, err
	}
	dev := NewDisk(d, nblocks)
	dev.lock = lock
	return dev, nil
}

func (dev *Disk) locate(bn uint64) (uint64, uint64) {
	if bn >= dev.nblocks {
		panic("blkdev: block out of range")
	}
	return bn / NBLKDISK, (bn % NBLKDISK) * common.BlockSize
}

func (dev *Disk) Read(bn uint64) []byte {
	dbn, off := dev.locate(bn)
	blk := dev.d.Read(dbn)
	b := make([]byte, common.BlockSize)
	copy(b, blk[off:off+common.BlockSize])
	return b
}

func (dev *Disk) Write(bn uint64, b []byte) {
	if uint64(len(b)) != common.BlockSize {
		panic("blkdev: bad block size")
	}
	dbn, off := dev.locate(bn)
	dev.mu.Lock()
	blk := dev.d.Read(dbn)
	copy(blk[off:off+common.BlockSize], b)
	dev.d.Write(dbn, blk)
	dev.mu.Unlock()
}

func (dev *Disk) Size() uint64 {
	return dev.nblocks
}

func (dev *Disk) Barrier() {
	dev.d.Barrier()
}

func (dev *Disk) Close() {
	dev.d.Close()
	if dev.lock != nil {
		unlockImage(dev.lock)
		dev.lock = nil
	}
}
