package fs

import (
	"github.com/mit-pdos/go-flatfs/common"
)

// Fd is a numeric handle for an open file.
type Fd uint64

type openFile struct {
	inum  common.Inum
	stale bool // descriptor freed while open
}

// fdTable maps handles to descriptors.  Handles are never reused.
type fdTable struct {
	next Fd
	open map[Fd]*openFile
}

func mkFdTable() *fdTable {
	return &fdTable{open: make(map[Fd]*openFile)}
}

func (t *fdTable) add(inum common.Inum) Fd {
	fd := t.next
	t.next++
	t.open[fd] = &openFile{inum: inum}
	return fd
}

func (t *fdTable) lookup(fd Fd) (*openFile, bool) {
	f, ok := t.open[fd]
	return f, ok
}

func (t *fdTable) remove(fd Fd) bool {
	_, ok := t.open[fd]
	delete(t.open, fd)
	return ok
}

// invalidate marks the handles open on inum as stale.
func (t *fdTable) invalidate(inum common.Inum) {
	for _, f := range t.open {
		if f.inum == inum {
			f.stale = true
		}
	}
}

func (t *fdTable) len() int {
	return len(t.open)
}
