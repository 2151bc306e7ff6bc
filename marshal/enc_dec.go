package marshal

import (
	"encoding/binary"
)

// Big-endian encoder for fixed-size on-disk records.
type Enc struct {
	b   []byte
	off uint64
}

func NewEnc(sz uint64) *Enc {
	return &Enc{b: make([]byte, sz), off: 0}
}

func (enc *Enc) PutByte(x byte) {
	enc.b[enc.off] = x
	enc.off = enc.off + 1
}

// PutInt24 stores the low 24 bits of x.
func (enc *Enc) PutInt24(x uint32) {
	off := enc.off
	enc.b[off] = byte(x >> 16)
	enc.b[off+1] = byte(x >> 8)
	enc.b[off+2] = byte(x)
	enc.off = enc.off + 3
}

func (enc *Enc) PutInt32(x uint32) {
	off := enc.off
	binary.BigEndian.PutUint32(enc.b[off:off+4], x)
	enc.off = enc.off + 4
}

// PutFixed stores b in exactly n bytes, truncating or zero padding.
func (enc *Enc) PutFixed(b []byte, n uint64) {
	off := enc.off
	PutBytes(enc.b[off:off+n], b)
	enc.off = enc.off + n
}

func (enc *Enc) Finish() []byte {
	return enc.b
}

type Dec struct {
	b   []byte
	off uint64
}

func NewDec(b []byte) *Dec {
	return &Dec{b: b, off: 0}
}

func (dec *Dec) GetByte() byte {
	x := dec.b[dec.off]
	dec.off = dec.off + 1
	return x
}

func (dec *Dec) GetInt24() uint32 {
	off := dec.off
	x := uint32(dec.b[off])<<16 | uint32(dec.b[off+1])<<8 | uint32(dec.b[off+2])
	dec.off = dec.off + 3
	return x
}

func (dec *Dec) GetInt32() uint32 {
	off := dec.off
	x := binary.BigEndian.Uint32(dec.b[off : off+4])
	dec.off = dec.off + 4
	return x
}

func (dec *Dec) GetBytes(n uint64) []byte {
	off := dec.off
	x := dec.b[off : off+n]
	dec.off = dec.off + n
	return x
}

// PutBytes copies as much of b as fits into d.
func PutBytes(d []byte, b []byte) {
	for i := uint64(0); i < uint64(len(b)) && i < uint64(len(d)); i++ {
		d[i] = b[i]
	}
}
