package fs

import (
	"fmt"
	"time"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-flatfs/bmap"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/dcache"
	"github.com/mit-pdos/go-flatfs/desc"
	"github.com/mit-pdos/go-flatfs/dir"
)

// readDir returns the entries of directory inum in order.
func (fs *Fs) readDir(inum common.Inum) ([]dir.DirEnt, desc.Desc, error) {
	d, err := fs.descs.Read(inum)
	if err != nil {
		return nil, d, err
	}
	if d.IsFree() {
		return nil, d, fmt.Errorf("descriptor %d: %w", inum, common.ErrNotFound)
	}
	if d.Kind != common.KindDir {
		return nil, d, fmt.Errorf("descriptor %d: %w", inum, common.ErrNotDir)
	}
	ents := make([]dir.DirEnt, 0)
	if d.Size == 0 {
		return ents, d, nil
	}
	it, err := bmap.Blocks(fs.dev, d, 0, d.NBlocks())
	if err != nil {
		return nil, d, err
	}
	for bn, ok := it.Next(); ok; bn, ok = it.Next() {
		if !bn.IsBacked() {
			return nil, d, fmt.Errorf("directory %d block %d: %w", inum, it.Index(), common.ErrCorrupt)
		}
		es, end := dir.DecodeBlock(fs.dev.Read(uint64(bn)))
		ents = append(ents, es...)
		if end {
			break
		}
	}
	if n := d.Size / common.DIRENTSZ; uint64(len(ents)) > n {
		ents = ents[:n]
	}
	return ents, d, nil
}

func mkDcache(ents []dir.DirEnt) *dcache.Dcache {
	dc := dcache.MkDcache()
	for i, de := range ents {
		dc.Add(de.Name, de.Inum, uint64(i))
	}
	return dc
}

// rootCache returns the name cache of the root directory, loading it
// on first use.
func (fs *Fs) rootCache() (*dcache.Dcache, error) {
	if fs.dc != nil {
		return fs.dc, nil
	}
	ents, _, err := fs.readDir(common.ROOTINUM)
	if err != nil {
		return nil, err
	}
	fs.dc = mkDcache(ents)
	util.DPrintf(5, "rootCache: %d names\n", fs.dc.Len())
	return fs.dc, nil
}

// lookup resolves name in the root directory.  A name that could never
// be stored is reported as absent.
func (fs *Fs) lookup(name string) (common.Inum, error) {
	if dir.ValidName(name) != nil {
		return 0, fmt.Errorf("%q: %w", name, common.ErrNotFound)
	}
	dc, err := fs.rootCache()
	if err != nil {
		return 0, err
	}
	de, ok := dc.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, common.ErrNotFound)
	}
	return de.Inum, nil
}

// addLink appends an entry for name to the root directory and bumps
// the link count of inum.
func (fs *Fs) addLink(inum common.Inum, name string) error {
	if err := dir.ValidName(name); err != nil {
		return err
	}
	dc, err := fs.rootCache()
	if err != nil {
		return err
	}
	if _, ok := dc.Lookup(name); ok {
		return fmt.Errorf("%q: %w", name, common.ErrExists)
	}
	ip, err := fs.descs.Read(inum)
	if err != nil {
		return err
	}
	if ip.Nlink >= common.MAXNLINK {
		return fmt.Errorf("descriptor %d: %w", inum, common.ErrTooManyLinks)
	}
	dd, err := fs.descs.Read(common.ROOTINUM)
	if err != nil {
		return err
	}
	if dd.Size+common.DIRENTSZ > common.MAXSIZE {
		return fmt.Errorf("root directory full: %w", common.ErrOutOfSpace)
	}

	idx := dd.Size / common.DIRENTSZ
	k := idx / common.NDIRENTBLK
	var bn common.Bnum
	if idx%common.NDIRENTBLK == 0 {
		need := 1 + bmap.NMaps(k+1) - bmap.NMaps(k)
		if fs.alloc.NFree() < need {
			return fmt.Errorf("directory block %d: %w", k, common.ErrOutOfSpace)
		}
		bn, err = fs.alloc.AllocBlock()
		if err != nil {
			return err
		}
		if err := bmap.Set(fs.dev, fs.alloc, &dd, k, bn); err != nil {
			fs.alloc.FreeBlock(bn)
			return err
		}
	} else {
		bn = bmap.Lookup(fs.dev, dd, k)
		if !bn.IsBacked() {
			return fmt.Errorf("directory block %d: %w", k, common.ErrCorrupt)
		}
	}

	de := dir.DirEnt{Name: name, Inum: inum}
	off := (idx % common.NDIRENTBLK) * common.DIRENTSZ
	blk := fs.dev.Read(uint64(bn))
	copy(blk[off:off+common.DIRENTSZ], de.Encode())
	fs.dev.Write(uint64(bn), blk)

	dd.Size += common.DIRENTSZ
	if err := fs.descs.Write(common.ROOTINUM, dd); err != nil {
		return err
	}
	ip.Nlink++
	if err := fs.descs.Write(inum, ip); err != nil {
		return err
	}
	dc.Add(name, inum, idx)
	util.DPrintf(1, "addLink %q -> # %d at %d\n", name, inum, idx)
	return nil
}

// removeLink deletes the entry for name from the root directory,
// moving later entries down, and returns the descriptor it named.
func (fs *Fs) removeLink(name string) (common.Inum, error) {
	if dir.ValidName(name) != nil {
		return 0, fmt.Errorf("%q: %w", name, common.ErrNotFound)
	}
	dc, err := fs.rootCache()
	if err != nil {
		return 0, err
	}
	dentry, ok := dc.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, common.ErrNotFound)
	}
	ents, dd, err := fs.readDir(common.ROOTINUM)
	if err != nil {
		return 0, err
	}
	i := dentry.Index
	if i >= uint64(len(ents)) || !dir.NameEqual(ents[i].Name, name) {
		return 0, fmt.Errorf("directory entry %q at %d: %w", name, i, common.ErrCorrupt)
	}
	ents = append(ents[:i], ents[i+1:]...)

	have := dd.NBlocks()
	keep := util.RoundUp(uint64(len(ents))*common.DIRENTSZ, common.BlockSize)
	if first := i / common.NDIRENTBLK; first < keep {
		it, err := bmap.Blocks(fs.dev, dd, first, keep)
		if err != nil {
			return 0, err
		}
		for bn, ok := it.Next(); ok; bn, ok = it.Next() {
			k := it.Index()
			lo := k * common.NDIRENTBLK
			hi := util.Min((k+1)*common.NDIRENTBLK, uint64(len(ents)))
			fs.dev.Write(uint64(bn), dir.EncodeBlock(ents[lo:hi]))
		}
	}
	bmap.Shrink(fs.dev, fs.alloc, &dd, have, keep)
	dd.Size -= common.DIRENTSZ
	if err := fs.descs.Write(common.ROOTINUM, dd); err != nil {
		return 0, err
	}
	fs.dc = mkDcache(ents)
	util.DPrintf(1, "removeLink %q -> # %d at %d\n", name, dentry.Inum, i)
	return dentry.Inum, nil
}

// List returns the entries of directory inum.
func (fs *Fs) List(inum common.Inum) ([]dir.DirEnt, error) {
	defer fs.recordOp(OP_LIST, time.Now())
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.mounted(); err != nil {
		return nil, err
	}
	ents, _, err := fs.readDir(inum)
	return ents, err
}

// Lookup returns the descriptor name links to.
func (fs *Fs) Lookup(name string) (common.Inum, error) {
	defer fs.recordOp(OP_LOOKUP, time.Now())
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.mounted(); err != nil {
		return 0, err
	}
	return fs.lookup(name)
}

// Create makes an empty regular file called name.
func (fs *Fs) Create(name string) (common.Inum, error) {
	defer fs.recordOp(OP_CREATE, time.Now())
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.mounted(); err != nil {
		return 0, err
	}
	util.DPrintf(1, "Create %q\n", name)

	if err := dir.ValidName(name); err != nil {
		return 0, err
	}
	dc, err := fs.rootCache()
	if err != nil {
		return 0, err
	}
	if _, ok := dc.Lookup(name); ok {
		return 0, fmt.Errorf("%q: %w", name, common.ErrExists)
	}
	inum, err := fs.descs.Alloc()
	if err != nil {
		return 0, err
	}
	if err := fs.descs.Write(inum, desc.Desc{Kind: common.KindReg}); err != nil {
		return 0, err
	}
	if err := fs.addLink(inum, name); err != nil {
		fs.descs.Write(inum, desc.MkFreeDesc())
		return 0, err
	}
	return inum, nil
}

// Link gives the file called from the additional name to.
func (fs *Fs) Link(from string, to string) error {
	defer fs.recordOp(OP_LINK, time.Now())
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.mounted(); err != nil {
		return err
	}
	util.DPrintf(1, "Link %q %q\n", from, to)
	inum, err := fs.lookup(from)
	if err != nil {
		return err
	}
	return fs.addLink(inum, to)
}

// Unlink removes name.  Removing the last name of a file frees its
// blocks and its descriptor.
func (fs *Fs) Unlink(name string) error {
	defer fs.recordOp(OP_UNLINK, time.Now())
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.mounted(); err != nil {
		return err
	}
	util.DPrintf(1, "Unlink %q\n", name)
	inum, err := fs.removeLink(name)
	if err != nil {
		return err
	}
	ip, err := fs.descs.Read(inum)
	if err != nil {
		return err
	}
	if ip.Nlink > 0 {
		ip.Nlink--
	}
	if ip.Nlink > 0 {
		return fs.descs.Write(inum, ip)
	}
	return fs.freeFile(inum, ip)
}

func (fs *Fs) freeFile(inum common.Inum, ip desc.Desc) error {
	util.DPrintf(1, "freeFile # %d: %v\n", inum, ip)
	if err := fs.resize(&ip, 0); err != nil {
		return err
	}
	fs.fds.invalidate(inum)
	return fs.descs.Write(inum, desc.MkFreeDesc())
}
