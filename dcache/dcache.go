package dcache

import (
	"github.com/mit-pdos/go-flatfs/common"
)

// Dentry records where a name lives: its descriptor and the index of
// its entry in the directory.
type Dentry struct {
	Inum  common.Inum
	Index uint64
}

type Dcache struct {
	cache map[string]Dentry
}

func MkDcache() *Dcache {
	return &Dcache{
		cache: make(map[string]Dentry),
	}
}

func (dc *Dcache) Add(name string, inum common.Inum, index uint64) {
	dc.cache[name] = Dentry{Inum: inum, Index: index}
}

func (dc *Dcache) Lookup(name string) (Dentry, bool) {
	d, ok := dc.cache[name]
	return d, ok
}

func (dc *Dcache) Del(name string) bool {
	_, ok := dc.cache[name]
	if ok {
		delete(dc.cache, name)
	}
	return ok
}

func (dc *Dcache) Len() int {
	return len(dc.cache)
}
