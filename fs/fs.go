package fs

import (
	"fmt"
	"sync"
	"time"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-flatfs/alloc"
	"github.com/mit-pdos/go-flatfs/blkdev"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/dcache"
	"github.com/mit-pdos/go-flatfs/desc"
	"github.com/mit-pdos/go-flatfs/fsck"
	"github.com/mit-pdos/go-flatfs/super"
	"github.com/mit-pdos/go-flatfs/util/stats"
)

// Fs is a flat file system on a block device: a single root
// directory of names, each linked to a descriptor.  All methods
// are serialized by one lock.
type Fs struct {
	mu    *sync.Mutex
	dev   blkdev.Device
	super *super.FsSuper
	alloc *alloc.Alloc
	descs *desc.Table
	fds   *fdTable
	dc    *dcache.Dcache // root directory names, nil until loaded
	stats [NUM_OPS]stats.Op
}

func mkFs(dev blkdev.Device) *Fs {
	return &Fs{
		mu:  new(sync.Mutex),
		dev: dev,
		fds: mkFdTable(),
	}
}

// Mkfs formats dev with ndesc descriptors and returns a file system
// with an empty root directory.
func Mkfs(dev blkdev.Device, ndesc uint32) (*Fs, error) {
	fs := mkFs(dev)
	if err := fs.Mkfs(ndesc); err != nil {
		return nil, err
	}
	return fs, nil
}

// Mount attaches to a device formatted by Mkfs.
func Mount(dev blkdev.Device) (*Fs, error) {
	s, err := super.ReadFsSuper(dev)
	if err != nil {
		return nil, err
	}
	fs := mkFs(dev)
	fs.attach(s)
	root, err := fs.descs.Read(common.ROOTINUM)
	if err != nil {
		return nil, err
	}
	if root.Kind != common.KindDir {
		return nil, fmt.Errorf("root %v: %w", root, common.ErrCorrupt)
	}
	util.DPrintf(1, "Mount: %d blocks %d descriptors\n", s.NBlocks, s.NDesc)
	return fs, nil
}

func (fs *Fs) attach(s *super.FsSuper) {
	fs.super = s
	fs.alloc = alloc.MkAlloc(s)
	fs.descs = desc.MkTable(s)
	fs.dc = nil
}

// Mkfs wipes the device and installs an empty root directory.  Open
// handles are dropped.
func (fs *Fs) Mkfs(ndesc uint32) error {
	defer fs.recordOp(OP_MKFS, time.Now())
	fs.mu.Lock()
	defer fs.mu.Unlock()

	util.DPrintf(1, "Mkfs: %d descriptors on %d blocks\n", ndesc, fs.dev.Size())
	s, err := super.MkFsSuper(fs.dev, ndesc)
	if err != nil {
		return err
	}
	hdr := s.InitHeader()
	for inum := common.Inum(0); uint32(inum) < ndesc; inum++ {
		d := desc.MkFreeDesc()
		if inum == common.ROOTINUM {
			d = desc.MkRootDesc()
		}
		off := common.DESCSTART + uint64(inum)*common.DESCSZ
		copy(hdr[off:off+common.DESCSZ], d.Encode())
	}
	for bn := uint64(0); bn < s.HeaderBlocks(); bn++ {
		fs.dev.Write(bn, hdr[bn*common.BlockSize:(bn+1)*common.BlockSize])
	}
	fs.dev.Barrier()
	fs.attach(s)
	fs.fds = mkFdTable()
	return nil
}

func (fs *Fs) mounted() error {
	if fs.super == nil {
		return fmt.Errorf("no file system: %w", common.ErrCorrupt)
	}
	return nil
}

// Stat returns descriptor inum, which may be unused.
func (fs *Fs) Stat(inum common.Inum) (desc.Desc, error) {
	defer fs.recordOp(OP_STAT, time.Now())
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.mounted(); err != nil {
		return desc.Desc{}, err
	}
	return fs.descs.Read(inum)
}

type Statfs struct {
	NBlocks    uint64
	FreeBlocks uint64
	NDesc      uint32
	FreeDesc   uint32
}

func (fs *Fs) Statfs() (Statfs, error) {
	defer fs.recordOp(OP_STATFS, time.Now())
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.mounted(); err != nil {
		return Statfs{}, err
	}
	nfree, err := fs.descs.NFree()
	if err != nil {
		return Statfs{}, err
	}
	return Statfs{
		NBlocks:    fs.alloc.NBlocks(),
		FreeBlocks: fs.alloc.NFree(),
		NDesc:      fs.descs.NDesc(),
		FreeDesc:   nfree,
	}, nil
}

// Sync waits for earlier writes to reach the device.
func (fs *Fs) Sync() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.dev.Barrier()
}

func (fs *Fs) Shutdown() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	util.DPrintf(1, "Shutdown\n")
	fs.dev.Barrier()
	fs.dev.Close()
}

// Check runs fsck on the device.
func (fs *Fs) Check() (*fsck.Report, error) {
	defer fs.recordOp(OP_CHECK, time.Now())
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.mounted(); err != nil {
		return nil, err
	}
	return fsck.Check(fs.dev)
}
