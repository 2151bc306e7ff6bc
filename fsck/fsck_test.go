package fsck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-flatfs/alloc"
	"github.com/mit-pdos/go-flatfs/blkdev"
	"github.com/mit-pdos/go-flatfs/bmap"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/desc"
	"github.com/mit-pdos/go-flatfs/dir"
	"github.com/mit-pdos/go-flatfs/super"
)

type fixture struct {
	t     *testing.T
	dev   blkdev.Device
	alloc *alloc.Alloc
	descs *desc.Table
}

func mkFixture(t *testing.T) *fixture {
	dev := blkdev.NewMemDevice(64)
	s, err := super.MkFsSuper(dev, 8)
	require.NoError(t, err)
	hdr := s.InitHeader()
	for bn := uint64(0); bn < s.HeaderBlocks(); bn++ {
		dev.Write(bn, hdr[bn*common.BlockSize:(bn+1)*common.BlockSize])
	}
	f := &fixture{t: t, dev: dev, alloc: alloc.MkAlloc(s), descs: desc.MkTable(s)}
	for inum := common.Inum(0); inum < 8; inum++ {
		require.NoError(t, f.descs.Write(inum, desc.MkFreeDesc()))
	}
	require.NoError(t, f.descs.Write(common.ROOTINUM, desc.MkRootDesc()))
	return f
}

// file makes descriptor inum a regular file of nblocks real blocks.
func (f *fixture) file(inum common.Inum, nblocks uint64, nlink uint32) desc.Desc {
	d := desc.Desc{Kind: common.KindReg, Nlink: nlink, Size: nblocks * common.BlockSize}
	for k := uint64(0); k < nblocks; k++ {
		bn, err := f.alloc.AllocBlock()
		require.NoError(f.t, err)
		require.NoError(f.t, bmap.Set(f.dev, f.alloc, &d, k, bn))
	}
	require.NoError(f.t, f.descs.Write(inum, d))
	return d
}

func (f *fixture) root(ents ...dir.DirEnt) {
	bn, err := f.alloc.AllocBlock()
	require.NoError(f.t, err)
	f.dev.Write(uint64(bn), dir.EncodeBlock(ents))
	d := desc.MkRootDesc()
	d.Blks[0] = bn
	d.Size = uint64(len(ents)) * common.DIRENTSZ
	require.NoError(f.t, f.descs.Write(common.ROOTINUM, d))
}

func (f *fixture) check() *Report {
	r, err := Check(f.dev)
	require.NoError(f.t, err)
	return r
}

func TestCheckEmpty(t *testing.T) {
	f := mkFixture(t)
	r := f.check()
	assert.True(t, r.Ok(), "%v", r)
	assert.Equal(t, "clean", r.String())
}

func TestCheckFiles(t *testing.T) {
	f := mkFixture(t)
	f.file(1, 5, 2)
	f.file(2, 1, 1)
	f.root(dir.DirEnt{Name: "a", Inum: 1}, dir.DirEnt{Name: "b", Inum: 1},
		dir.DirEnt{Name: "c", Inum: 2})
	r := f.check()
	assert.True(t, r.Ok(), "%v", r)
}

func TestCheckLeak(t *testing.T) {
	f := mkFixture(t)
	bn, err := f.alloc.AllocBlock()
	require.NoError(t, err)
	r := f.check()
	assert.Equal(t, []common.Bnum{bn}, r.Leaked)
	assert.False(t, r.Ok())
	assert.Contains(t, r.String(), "leaked")
}

func TestCheckMissing(t *testing.T) {
	f := mkFixture(t)
	d := f.file(1, 1, 1)
	f.root(dir.DirEnt{Name: "a", Inum: 1})
	f.alloc.MarkFree(d.Blks[0])
	r := f.check()
	assert.Equal(t, []common.Bnum{d.Blks[0]}, r.Missing)
	assert.Empty(t, r.Leaked)
}

func TestCheckDup(t *testing.T) {
	f := mkFixture(t)
	d := f.file(1, 1, 1)
	require.NoError(t, f.descs.Write(2, d))
	f.root(dir.DirEnt{Name: "a", Inum: 1}, dir.DirEnt{Name: "b", Inum: 2})
	r := f.check()
	assert.Equal(t, []common.Bnum{d.Blks[0]}, r.Dup)
}

func TestCheckLinks(t *testing.T) {
	f := mkFixture(t)
	f.file(1, 0, 2)
	f.root(dir.DirEnt{Name: "a", Inum: 1}, dir.DirEnt{Name: "gone", Inum: 3})
	r := f.check()
	assert.Equal(t, []LinkCount{{Inum: 1, Nlink: 2, Names: 1}}, r.Links)
	assert.Equal(t, []string{"gone"}, r.Dangling)
}

func TestCheckPlaceholders(t *testing.T) {
	f := mkFixture(t)
	d := desc.Desc{Kind: common.KindReg, Nlink: 1}
	for k := uint64(0); k < 4; k++ {
		require.NoError(t, bmap.Set(f.dev, f.alloc, &d, k, common.ZEROBNUM))
	}
	d.Size = 4 * common.BlockSize
	require.NoError(t, f.descs.Write(1, d))
	f.root(dir.DirEnt{Name: "a", Inum: 1})
	r := f.check()
	assert.True(t, r.Ok(), "%v", r)
}
