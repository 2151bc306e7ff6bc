package fs

import (
	"io"
	"time"

	"github.com/mit-pdos/go-flatfs/util/stats"
)

const (
	OP_MKFS = iota
	OP_LOOKUP
	OP_LIST
	OP_CREATE
	OP_LINK
	OP_UNLINK
	OP_OPEN
	OP_CLOSE
	OP_READ
	OP_WRITE
	OP_TRUNCATE
	OP_STAT
	OP_STATFS
	OP_CHECK
	NUM_OPS
)

var opNames = []string{
	"MKFS",
	"LOOKUP",
	"LIST",
	"CREATE",
	"LINK",
	"UNLINK",
	"OPEN",
	"CLOSE",
	"READ",
	"WRITE",
	"TRUNCATE",
	"STAT",
	"STATFS",
	"CHECK",
}

func (fs *Fs) recordOp(op int, start time.Time) {
	fs.stats[op].Record(start)
}

func (fs *Fs) WriteOpStats(w io.Writer) {
	stats.WriteTable(opNames, fs.stats[:], w)
}

func (fs *Fs) ResetOpStats() {
	for i := range fs.stats {
		fs.stats[i].Reset()
	}
}
