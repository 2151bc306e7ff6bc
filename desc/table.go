package desc

import (
	"fmt"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-flatfs/blkdev"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/super"
)

// Table reads and writes descriptors in place in the header blocks.
type Table struct {
	super *super.FsSuper
	d     blkdev.Device
}

func MkTable(fs *super.FsSuper) *Table {
	return &Table{super: fs, d: fs.Disk}
}

func (t *Table) NDesc() uint32 {
	return t.super.NDesc
}

func (t *Table) check(inum common.Inum) error {
	if uint32(inum) >= t.super.NDesc {
		return fmt.Errorf("descriptor %d of %d: %w", inum, t.super.NDesc, common.ErrInvalidRange)
	}
	return nil
}

func (t *Table) Read(inum common.Inum) (Desc, error) {
	if err := t.check(inum); err != nil {
		return Desc{}, err
	}
	bn, off := t.super.Desc2Addr(inum)
	blk := t.d.Read(bn)
	d, err := Decode(blk[off : off+common.DESCSZ])
	if err != nil {
		return Desc{}, fmt.Errorf("descriptor %d: %w", inum, err)
	}
	return d, nil
}

func (t *Table) Write(inum common.Inum, d Desc) error {
	if err := t.check(inum); err != nil {
		return err
	}
	bn, off := t.super.Desc2Addr(inum)
	blk := t.d.Read(bn)
	copy(blk[off:off+common.DESCSZ], d.Encode())
	t.d.Write(bn, blk)
	util.DPrintf(5, "WriteDesc # %d: %v\n", inum, d)
	return nil
}

// each calls f on every descriptor in order until f returns false.
func (t *Table) each(f func(common.Inum, Desc) bool) error {
	var blk []byte
	var cur uint64
	for inum := common.Inum(0); uint32(inum) < t.super.NDesc; inum++ {
		bn, off := t.super.Desc2Addr(inum)
		if blk == nil || bn != cur {
			blk = t.d.Read(bn)
			cur = bn
		}
		d, err := Decode(blk[off : off+common.DESCSZ])
		if err != nil {
			return fmt.Errorf("descriptor %d: %w", inum, err)
		}
		if !f(inum, d) {
			break
		}
	}
	return nil
}

// Alloc returns the first unused descriptor.  The caller initializes
// it with Write.
func (t *Table) Alloc() (common.Inum, error) {
	var found = false
	var res common.Inum
	err := t.each(func(inum common.Inum, d Desc) bool {
		if d.IsFree() {
			found = true
			res = inum
			return false
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%d descriptors in use: %w", t.super.NDesc, common.ErrNoFreeDesc)
	}
	util.DPrintf(5, "AllocDesc -> # %d\n", res)
	return res, nil
}

// Apply calls f on every descriptor that is in use.
func (t *Table) Apply(f func(common.Inum, Desc)) error {
	return t.each(func(inum common.Inum, d Desc) bool {
		if !d.IsFree() {
			f(inum, d)
		}
		return true
	})
}

func (t *Table) NFree() (uint32, error) {
	var n uint32
	err := t.each(func(inum common.Inum, d Desc) bool {
		if d.IsFree() {
			n++
		}
		return true
	})
	return n, err
}
