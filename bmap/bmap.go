package bmap

import (
	"fmt"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-flatfs/blkdev"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/desc"
)

//
// Logical block k of a file is ip.Blks[k] for k < NDIRECT, and
// otherwise slot (k-NDIRECT) % NBMAPBLK of block map
// (k-NDIRECT) / NBMAPBLK in the chain starting at ip.Bmap.  The last
// byte of a block map links to the next one.  Blocks are allocated as
// a prefix: the first zero slot ends the file's extent.
//

// End of the file, as an end index for Blocks.
const All uint64 = ^uint64(0)

// Allocator provides zeroed blocks to grow a block map chain.
type Allocator interface {
	AllocBlock() (common.Bnum, error)
	FreeBlock(bn common.Bnum)
}

func mapOf(k uint64) (uint64, uint64) {
	off := k - common.NDIRECT
	return off / common.NBMAPBLK, off % common.NBMAPBLK
}

// NMaps returns the number of block maps needed to address n blocks.
func NMaps(n uint64) uint64 {
	if n <= common.NDIRECT {
		return 0
	}
	return util.RoundUp(n-common.NDIRECT, common.NBMAPBLK)
}

// Iter yields the block addresses of a file in logical order.  It
// works on a snapshot of the descriptor; after the file's block
// structure changes, construct a new Iter.
type Iter struct {
	d     blkdev.Device
	ip    desc.Desc
	idx   uint64 // logical index of the next block
	start uint64
	end   uint64
	bmap  []byte // current block map
	nmaps uint64
	done  bool
}

// Blocks returns an iterator over logical blocks [start, end) of ip.
func Blocks(d blkdev.Device, ip desc.Desc, start uint64, end uint64) (*Iter, error) {
	if end <= start {
		return nil, fmt.Errorf("blocks [%d, %d): %w", start, end, common.ErrInvalidRange)
	}
	return &Iter{d: d, ip: ip, start: start, end: end}, nil
}

func (it *Iter) lookup(k uint64) common.Bnum {
	if k < common.NDIRECT {
		return it.ip.Blks[k]
	}
	m, slot := mapOf(k)
	if slot == 0 {
		var next = it.ip.Bmap
		if m > 0 {
			next = common.Bnum(it.bmap[common.BMAPNEXT])
		}
		if !next.IsBacked() || it.nmaps >= common.MAXBLOCKS {
			return common.NULLBNUM
		}
		it.bmap = it.d.Read(uint64(next))
		it.nmaps++
	}
	return common.Bnum(it.bmap[slot])
}

// Next returns the next block address, or false at the end of the
// range or of the file's extent.
func (it *Iter) Next() (common.Bnum, bool) {
	for !it.done && it.idx < it.end {
		bn := it.lookup(it.idx)
		if bn == common.NULLBNUM {
			it.done = true
			break
		}
		k := it.idx
		it.idx++
		if k >= it.start {
			return bn, true
		}
	}
	return common.NULLBNUM, false
}

// Index returns the logical index of the block last returned by Next.
func (it *Iter) Index() uint64 {
	return it.idx - 1
}

func (it *Iter) Collect() []common.Bnum {
	var bns []common.Bnum
	for bn, ok := it.Next(); ok; bn, ok = it.Next() {
		bns = append(bns, bn)
	}
	return bns
}

// MapIter yields the addresses of a file's block maps in chain order.
type MapIter struct {
	d     blkdev.Device
	next  common.Bnum
	idx   uint64
	start uint64
}

func Maps(d blkdev.Device, ip desc.Desc, start uint64) *MapIter {
	return &MapIter{d: d, next: ip.Bmap, start: start}
}

func (it *MapIter) Next() (common.Bnum, bool) {
	for it.next.IsBacked() && it.idx < common.MAXBLOCKS {
		cur := it.next
		blk := it.d.Read(uint64(cur))
		it.next = common.Bnum(blk[common.BMAPNEXT])
		m := it.idx
		it.idx++
		if m >= it.start {
			return cur, true
		}
	}
	return common.NULLBNUM, false
}

func (it *MapIter) Collect() []common.Bnum {
	var bns []common.Bnum
	for bn, ok := it.Next(); ok; bn, ok = it.Next() {
		bns = append(bns, bn)
	}
	return bns
}

// walk returns the address of block map m of ip, or NULLBNUM if the
// chain is shorter.
func walk(d blkdev.Device, ip desc.Desc, m uint64) common.Bnum {
	it := Maps(d, ip, m)
	bn, ok := it.Next()
	if !ok {
		return common.NULLBNUM
	}
	return bn
}

// Lookup returns the address stored for logical block k, which is
// NULLBNUM if k is past the end of the block map chain.
func Lookup(d blkdev.Device, ip desc.Desc, k uint64) common.Bnum {
	if k < common.NDIRECT {
		return ip.Blks[k]
	}
	m, slot := mapOf(k)
	mbn := walk(d, ip, m)
	if mbn == common.NULLBNUM {
		return common.NULLBNUM
	}
	return common.Bnum(d.Read(uint64(mbn))[slot])
}

// Set stores bn as logical block k of ip, extending the block map
// chain as needed.  The caller writes ip back and must ensure enough
// free blocks for NMaps(k+1) maps.
func Set(d blkdev.Device, a Allocator, ip *desc.Desc, k uint64, bn common.Bnum) error {
	if k < common.NDIRECT {
		ip.Blks[k] = bn
		return nil
	}
	m, slot := mapOf(k)
	if ip.Bmap == common.NULLBNUM {
		nb, err := a.AllocBlock()
		if err != nil {
			return err
		}
		util.DPrintf(5, "Set: new first block map %d\n", nb)
		ip.Bmap = nb
	}
	mbn := ip.Bmap
	for i := uint64(0); i < m; i++ {
		blk := d.Read(uint64(mbn))
		next := common.Bnum(blk[common.BMAPNEXT])
		if next == common.NULLBNUM {
			nb, err := a.AllocBlock()
			if err != nil {
				return err
			}
			util.DPrintf(5, "Set: new block map %d after %d\n", nb, mbn)
			blk[common.BMAPNEXT] = byte(nb)
			d.Write(uint64(mbn), blk)
			next = nb
		}
		mbn = next
	}
	blk := d.Read(uint64(mbn))
	blk[slot] = byte(bn)
	d.Write(uint64(mbn), blk)
	return nil
}

// Shrink frees logical blocks [keep, have) of ip, and the block maps
// that no longer address any of the first keep blocks.  The caller
// writes ip back.
func Shrink(d blkdev.Device, a Allocator, ip *desc.Desc, have uint64, keep uint64) {
	if keep >= have {
		return
	}
	util.DPrintf(5, "Shrink: %v from %d to %d blocks\n", *ip, have, keep)
	maps := Maps(d, *ip, 0).Collect()
	bufs := make(map[uint64][]byte)
	load := func(m uint64) []byte {
		if bufs[m] == nil {
			bufs[m] = d.Read(uint64(maps[m]))
		}
		return bufs[m]
	}
	for k := keep; k < have; k++ {
		if k < common.NDIRECT {
			a.FreeBlock(ip.Blks[k])
			ip.Blks[k] = common.NULLBNUM
			continue
		}
		m, slot := mapOf(k)
		if m >= uint64(len(maps)) {
			break
		}
		blk := load(m)
		a.FreeBlock(common.Bnum(blk[slot]))
		blk[slot] = 0
	}

	nkeep := NMaps(keep)
	if nkeep < uint64(len(maps)) {
		for m := nkeep; m < uint64(len(maps)); m++ {
			a.FreeBlock(maps[m])
		}
		if nkeep == 0 {
			ip.Bmap = common.NULLBNUM
		} else {
			load(nkeep - 1)[common.BMAPNEXT] = 0
		}
	}
	for m, blk := range bufs {
		if m < nkeep {
			d.Write(uint64(maps[m]), blk)
		}
	}
}
