package dir

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goose-lang/std"

	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/marshal"
)

// DirEnt is a 32-byte directory entry: a NUL-padded name followed by
// the descriptor id.  An all-zero entry ends a directory listing.
type DirEnt struct {
	Name string // <= common.MAXNAMELEN bytes
	Inum common.Inum
}

func ValidName(name string) error {
	if name == "" || uint64(len(name)) > common.MAXNAMELEN || strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("%q: %w", name, common.ErrInvalidName)
	}
	return nil
}

// NameEqual compares names byte for byte.
func NameEqual(a string, b string) bool {
	return std.BytesEqual([]byte(a), []byte(b))
}

// Names longer than common.MAXNAMELEN are truncated.
func (de *DirEnt) Encode() []byte {
	enc := marshal.NewEnc(common.DIRENTSZ)
	enc.PutFixed([]byte(de.Name), common.MAXNAMELEN)
	enc.PutInt32(uint32(de.Inum))
	return enc.Finish()
}

func Decode(b []byte) DirEnt {
	dec := marshal.NewDec(b)
	name := dec.GetBytes(common.MAXNAMELEN)
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return DirEnt{Name: string(name), Inum: common.Inum(dec.GetInt32())}
}

func isNull(b []byte) bool {
	for _, x := range b {
		if x != 0 {
			return false
		}
	}
	return true
}

// DecodeBlock returns the entries in blk up to the first all-zero
// entry, and whether such an entry was found.
func DecodeBlock(blk []byte) ([]DirEnt, bool) {
	var ents []DirEnt
	for i := uint64(0); i < common.NDIRENTBLK; i++ {
		b := blk[i*common.DIRENTSZ : (i+1)*common.DIRENTSZ]
		if isNull(b) {
			return ents, true
		}
		ents = append(ents, Decode(b))
	}
	return ents, false
}

// EncodeBlock packs up to common.NDIRENTBLK entries into a block; the
// rest of the block is zero.
func EncodeBlock(ents []DirEnt) []byte {
	if uint64(len(ents)) > common.NDIRENTBLK {
		panic("EncodeBlock")
	}
	blk := make([]byte, common.BlockSize)
	for i := range ents {
		off := uint64(i) * common.DIRENTSZ
		copy(blk[off:off+common.DIRENTSZ], ents[i].Encode())
	}
	return blk
}
