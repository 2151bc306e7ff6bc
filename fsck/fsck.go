// Package fsck checks that the block bitmap, descriptors and root
// directory of a file system agree with each other.
package fsck

import (
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-flatfs/blkdev"
	"github.com/mit-pdos/go-flatfs/bmap"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/desc"
	"github.com/mit-pdos/go-flatfs/dir"
	"github.com/mit-pdos/go-flatfs/super"
)

type LinkCount struct {
	Inum  common.Inum
	Nlink uint32 // recorded in the descriptor
	Names uint32 // entries in the root directory
}

type Report struct {
	Leaked   []common.Bnum // used in the bitmap but not referenced
	Missing  []common.Bnum // referenced but free in the bitmap
	Dup      []common.Bnum // referenced more than once
	Links    []LinkCount
	Dangling []string // names of unused descriptors
}

func (r *Report) Ok() bool {
	return len(r.Leaked) == 0 && len(r.Missing) == 0 && len(r.Dup) == 0 &&
		len(r.Links) == 0 && len(r.Dangling) == 0
}

func (r *Report) String() string {
	if r.Ok() {
		return "clean"
	}
	var b strings.Builder
	if len(r.Leaked) > 0 {
		fmt.Fprintf(&b, "leaked blocks %v\n", r.Leaked)
	}
	if len(r.Missing) > 0 {
		fmt.Fprintf(&b, "referenced free blocks %v\n", r.Missing)
	}
	if len(r.Dup) > 0 {
		fmt.Fprintf(&b, "doubly referenced blocks %v\n", r.Dup)
	}
	for _, l := range r.Links {
		fmt.Fprintf(&b, "descriptor %d: nlink %d, %d names\n", l.Inum, l.Nlink, l.Names)
	}
	for _, name := range r.Dangling {
		fmt.Fprintf(&b, "name %q: unused descriptor\n", name)
	}
	return b.String()
}

type checker struct {
	dev  blkdev.Device
	refs *roaring.Bitmap
	dups *roaring.Bitmap
}

func (c *checker) ref(bn common.Bnum) {
	if !c.refs.CheckedAdd(uint32(bn)) {
		c.dups.Add(uint32(bn))
	}
}

func (c *checker) walk(d desc.Desc) error {
	it, err := bmap.Blocks(c.dev, d, 0, bmap.All)
	if err != nil {
		return err
	}
	for bn, ok := it.Next(); ok; bn, ok = it.Next() {
		if bn.IsBacked() {
			c.ref(bn)
		}
	}
	maps := bmap.Maps(c.dev, d, 0)
	for bn, ok := maps.Next(); ok; bn, ok = maps.Next() {
		c.ref(bn)
	}
	return nil
}

func toBnums(bm *roaring.Bitmap) []common.Bnum {
	var bns []common.Bnum
	it := bm.Iterator()
	for it.HasNext() {
		bns = append(bns, common.Bnum(it.Next()))
	}
	return bns
}

// Check reads the whole file system on dev and reports every
// inconsistency it finds.
func Check(dev blkdev.Device) (*Report, error) {
	s, err := super.ReadFsSuper(dev)
	if err != nil {
		return nil, err
	}
	c := &checker{
		dev:  dev,
		refs: roaring.New(),
		dups: roaring.New(),
	}
	for bn := uint64(0); bn < s.HeaderBlocks(); bn++ {
		c.ref(common.Bnum(bn))
	}

	t := desc.MkTable(s)
	descs := make(map[common.Inum]desc.Desc)
	var werr error
	err = t.Apply(func(inum common.Inum, d desc.Desc) {
		descs[inum] = d
		if err := c.walk(d); err != nil && werr == nil {
			werr = fmt.Errorf("descriptor %d: %w", inum, err)
		}
	})
	if err != nil {
		return nil, err
	}
	if werr != nil {
		return nil, werr
	}

	r := &Report{Dup: toBnums(c.dups)}
	bitmap := dev.Read(super.SUPERBNUM)
	for bn := uint64(0); bn < s.NBlocks; bn++ {
		if super.TestBit(bitmap, bn) && !c.refs.Contains(uint32(bn)) {
			r.Leaked = append(r.Leaked, common.Bnum(bn))
		}
	}
	for _, bn := range toBnums(c.refs) {
		if uint64(bn) >= s.NBlocks || !super.TestBit(bitmap, uint64(bn)) {
			r.Missing = append(r.Missing, bn)
		}
	}

	names := make(map[common.Inum]uint32)
	if root, ok := descs[common.ROOTINUM]; ok && root.Kind == common.KindDir {
		ents, err := rootEntries(dev, root)
		if err != nil {
			return nil, err
		}
		for _, de := range ents {
			names[de.Inum]++
			if _, ok := descs[de.Inum]; !ok {
				r.Dangling = append(r.Dangling, de.Name)
			}
		}
	}
	for inum := common.Inum(0); uint32(inum) < s.NDesc; inum++ {
		d, inuse := descs[inum]
		if inum == common.ROOTINUM || !inuse {
			continue
		}
		if d.Nlink != names[inum] {
			r.Links = append(r.Links, LinkCount{Inum: inum, Nlink: d.Nlink, Names: names[inum]})
		}
	}
	util.DPrintf(1, "fsck: %d blocks referenced: %v\n", c.refs.GetCardinality(), r)
	return r, nil
}

func rootEntries(dev blkdev.Device, root desc.Desc) ([]dir.DirEnt, error) {
	var ents []dir.DirEnt
	if root.Size == 0 {
		return ents, nil
	}
	it, err := bmap.Blocks(dev, root, 0, root.NBlocks())
	if err != nil {
		return nil, err
	}
	for bn, ok := it.Next(); ok; bn, ok = it.Next() {
		if !bn.IsBacked() {
			break
		}
		es, end := dir.DecodeBlock(dev.Read(uint64(bn)))
		ents = append(ents, es...)
		if end {
			break
		}
	}
	if n := root.Size / common.DIRENTSZ; uint64(len(ents)) > n {
		ents = ents[:n]
	}
	return ents, nil
}
