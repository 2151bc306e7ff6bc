package desc

import (
	"fmt"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/marshal"
)

// Desc is the on-disk descriptor of a file or directory:
//
//	kind(1) size(3) nlink(1) blks[0](1) blks[1](1) bmap(1)
type Desc struct {
	Kind  common.Kind
	Size  uint64
	Nlink uint32
	Blks  [common.NDIRECT]common.Bnum
	Bmap  common.Bnum // first block map, 0 if none
}

func MkFreeDesc() Desc {
	return Desc{Kind: common.KindFree}
}

func MkRootDesc() Desc {
	return Desc{Kind: common.KindDir, Nlink: 1}
}

func (d Desc) String() string {
	return fmt.Sprintf("k %v sz %d n %d blks %v bmap %d", d.Kind, d.Size, d.Nlink, d.Blks, d.Bmap)
}

func (d Desc) IsFree() bool {
	return d.Kind == common.KindFree
}

// NBlocks returns the number of logical blocks covering the file.
func (d Desc) NBlocks() uint64 {
	return util.RoundUp(d.Size, common.BlockSize)
}

func (d *Desc) Encode() []byte {
	if d.Size > common.MAXSIZE || d.Nlink > common.MAXNLINK {
		panic("Encode")
	}
	enc := marshal.NewEnc(common.DESCSZ)
	enc.PutByte(byte(d.Kind))
	enc.PutInt24(uint32(d.Size))
	enc.PutByte(byte(d.Nlink))
	enc.PutByte(byte(d.Blks[0]))
	enc.PutByte(byte(d.Blks[1]))
	enc.PutByte(byte(d.Bmap))
	return enc.Finish()
}

func Decode(b []byte) (Desc, error) {
	var d Desc
	dec := marshal.NewDec(b)
	d.Kind = common.Kind(dec.GetByte())
	switch d.Kind {
	case common.KindReg, common.KindDir, common.KindFree:
	default:
		return Desc{}, fmt.Errorf("descriptor kind %d: %w", d.Kind, common.ErrCorrupt)
	}
	d.Size = uint64(dec.GetInt24())
	d.Nlink = uint32(dec.GetByte())
	d.Blks[0] = common.Bnum(dec.GetByte())
	d.Blks[1] = common.Bnum(dec.GetByte())
	d.Bmap = common.Bnum(dec.GetByte())
	return d, nil
}
