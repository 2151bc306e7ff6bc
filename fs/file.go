package fs

import (
	"fmt"
	"time"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-flatfs/bmap"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/desc"
)

// resize sets the size of ip, reserving or freeing blocks.  Growing
// reserves placeholder blocks that read as zeros; shrinking frees
// the blocks past the new end and zeroes the tail of the new last
// block.  The caller writes ip back.
func (fs *Fs) resize(ip *desc.Desc, sz uint64) error {
	if sz > common.MAXSIZE {
		return fmt.Errorf("size %d: %w", sz, common.ErrOutOfSpace)
	}
	have := ip.NBlocks()
	need := util.RoundUp(sz, common.BlockSize)
	util.DPrintf(5, "resize %v to %d: %d -> %d blocks\n", *ip, sz, have, need)

	if need > have {
		nmaps := bmap.NMaps(need) - bmap.NMaps(have)
		if fs.alloc.NFree() < nmaps {
			return fmt.Errorf("%d block maps: %w", nmaps, common.ErrOutOfSpace)
		}
		for k := have; k < need; k++ {
			if err := bmap.Set(fs.dev, fs.alloc, ip, k, common.ZEROBNUM); err != nil {
				bmap.Shrink(fs.dev, fs.alloc, ip, k, have)
				return err
			}
		}
	} else if need < have {
		bmap.Shrink(fs.dev, fs.alloc, ip, have, need)
	}

	if sz < ip.Size && sz%common.BlockSize != 0 {
		bn := bmap.Lookup(fs.dev, *ip, sz/common.BlockSize)
		if bn.IsBacked() {
			blk := fs.dev.Read(uint64(bn))
			for i := sz % common.BlockSize; i < common.BlockSize; i++ {
				blk[i] = 0
			}
			fs.dev.Write(uint64(bn), blk)
		}
	}
	ip.Size = sz
	return nil
}

// Truncate sets the size of the file called name.
func (fs *Fs) Truncate(name string, sz uint64) error {
	defer fs.recordOp(OP_TRUNCATE, time.Now())
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.mounted(); err != nil {
		return err
	}
	util.DPrintf(1, "Truncate %q %d\n", name, sz)
	inum, err := fs.lookup(name)
	if err != nil {
		return err
	}
	ip, err := fs.descs.Read(inum)
	if err != nil {
		return err
	}
	if ip.Kind == common.KindDir {
		return fmt.Errorf("%q: %w", name, common.ErrIsDir)
	}
	if err := fs.resize(&ip, sz); err != nil {
		return err
	}
	return fs.descs.Write(inum, ip)
}

func (fs *Fs) Open(name string) (Fd, error) {
	defer fs.recordOp(OP_OPEN, time.Now())
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.mounted(); err != nil {
		return 0, err
	}
	inum, err := fs.lookup(name)
	if err != nil {
		return 0, err
	}
	fd := fs.fds.add(inum)
	util.DPrintf(1, "Open %q -> fd %d # %d\n", name, fd, inum)
	return fd, nil
}

func (fs *Fs) Close(fd Fd) error {
	defer fs.recordOp(OP_CLOSE, time.Now())
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.fds.remove(fd) {
		return fmt.Errorf("fd %d: %w", fd, common.ErrBadHandle)
	}
	return nil
}

// openDesc returns the descriptor fd refers to.
func (fs *Fs) openDesc(fd Fd) (common.Inum, desc.Desc, error) {
	f, ok := fs.fds.lookup(fd)
	if !ok {
		return 0, desc.Desc{}, fmt.Errorf("fd %d: %w", fd, common.ErrBadHandle)
	}
	if f.stale {
		return 0, desc.Desc{}, fmt.Errorf("fd %d # %d: %w", fd, f.inum, common.ErrNotFound)
	}
	ip, err := fs.descs.Read(f.inum)
	if err != nil {
		return 0, ip, err
	}
	if ip.IsFree() {
		return 0, ip, fmt.Errorf("fd %d # %d: %w", fd, f.inum, common.ErrNotFound)
	}
	return f.inum, ip, nil
}

func checkRange(ip desc.Desc, off uint64, n uint64) error {
	if util.SumOverflows(off, n) || off+n > ip.Size {
		return fmt.Errorf("[%d, %d) of size %d: %w", off, off+n, ip.Size, common.ErrInvalidRange)
	}
	return nil
}

// Read returns n bytes at off.  Blocks that were never written read
// as zeros.
func (fs *Fs) Read(fd Fd, off uint64, n uint64) ([]byte, error) {
	defer fs.recordOp(OP_READ, time.Now())
	fs.mu.Lock()
	defer fs.mu.Unlock()
	util.DPrintf(5, "Read: fd %d off %d cnt %d\n", fd, off, n)

	_, ip, err := fs.openDesc(fd)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}
	if err := checkRange(ip, off, n); err != nil {
		return nil, err
	}

	first := off / common.BlockSize
	end := util.RoundUp(off+n, common.BlockSize)
	data := make([]byte, 0, (end-first)*common.BlockSize)
	it, err := bmap.Blocks(fs.dev, ip, first, end)
	if err != nil {
		return nil, err
	}
	for bn, ok := it.Next(); ok; bn, ok = it.Next() {
		if bn.IsBacked() {
			data = append(data, fs.dev.Read(uint64(bn))...)
		} else {
			data = append(data, make([]byte, common.BlockSize)...)
		}
	}
	for uint64(len(data)) < (end-first)*common.BlockSize {
		data = append(data, make([]byte, common.BlockSize)...)
	}
	s := off % common.BlockSize
	util.DPrintf(10, "Read: %v\n", data[s:s+n])
	return data[s : s+n], nil
}

// Write stores data at off, which must lie within the file.  Blocks
// are allocated for placeholders before anything is written.
func (fs *Fs) Write(fd Fd, off uint64, data []byte) error {
	defer fs.recordOp(OP_WRITE, time.Now())
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n := uint64(len(data))
	util.DPrintf(5, "Write: fd %d off %d cnt %d\n", fd, off, n)

	inum, ip, err := fs.openDesc(fd)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if err := checkRange(ip, off, n); err != nil {
		return err
	}

	first := off / common.BlockSize
	end := util.RoundUp(off+n, common.BlockSize)
	bns := make([]common.Bnum, end-first)
	it, err := bmap.Blocks(fs.dev, ip, first, end)
	if err != nil {
		return err
	}
	for bn, ok := it.Next(); ok; bn, ok = it.Next() {
		bns[it.Index()-first] = bn
	}

	var missing []uint64
	for i, bn := range bns {
		if !bn.IsBacked() {
			missing = append(missing, uint64(i))
		}
	}
	if len(missing) > 0 {
		if uint64(len(missing)) > fs.alloc.NFree() {
			return fmt.Errorf("%d blocks: %w", len(missing), common.ErrOutOfSpace)
		}
		for j, i := range missing {
			bn, err := fs.alloc.AllocBlock()
			if err != nil {
				for _, m := range missing[:j] {
					fs.alloc.FreeBlock(bns[m])
				}
				return err
			}
			bns[i] = bn
		}
		for _, i := range missing {
			if err := bmap.Set(fs.dev, fs.alloc, &ip, first+i, bns[i]); err != nil {
				return err
			}
		}
		if err := fs.descs.Write(inum, ip); err != nil {
			return err
		}
	}

	for i, bn := range bns {
		start := (first + uint64(i)) * common.BlockSize
		lo := start
		if off > lo {
			lo = off
		}
		hi := util.Min(off+n, start+common.BlockSize)
		var blk []byte
		if hi-lo == common.BlockSize {
			blk = make([]byte, common.BlockSize)
		} else {
			blk = fs.dev.Read(uint64(bn))
		}
		copy(blk[lo-start:hi-start], data[lo-off:hi-off])
		fs.dev.Write(uint64(bn), blk)
	}
	return nil
}
