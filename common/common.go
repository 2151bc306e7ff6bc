package common

const (
	BlockSize uint64 = 256

	BITMAPSZ  uint64 = 252 // bytes of block bitmap in the superblock
	NDESCOFF  uint64 = 252 // offset of the descriptor count in the superblock
	DESCSTART uint64 = BlockSize
	DESCSZ    uint64 = 8 // on-disk descriptor size

	DIRENTSZ   uint64 = 32
	MAXNAMELEN uint64 = 28
	NDIRENTBLK uint64 = BlockSize / DIRENTSZ

	NDIRECT  uint64 = 2
	NBMAPBLK uint64 = BlockSize - 1 // # slots per block map
	BMAPNEXT uint64 = BlockSize - 1 // offset of the next-map link

	MAXSIZE  uint64 = 1<<24 - 1
	MAXNLINK uint32 = 255

	// Block addresses are a single byte and ZEROBNUM is reserved, so
	// a device holds at most MAXBLOCKS blocks.
	MAXBLOCKS uint64 = 255
)

// Bnum is a block address on the device.
type Bnum uint8

// NULLBNUM marks an unallocated slot; ZEROBNUM marks a slot that is
// reserved by truncate but not yet backed by a block, and reads as
// zeros.
const (
	NULLBNUM Bnum = 0
	ZEROBNUM Bnum = 0xFF
)

// Inum is a descriptor id.
type Inum uint32

const ROOTINUM Inum = 0

type Kind uint8

const (
	KindReg  Kind = 0
	KindDir  Kind = 1
	KindFree Kind = 0xFF
)

func (k Kind) String() string {
	switch k {
	case KindReg:
		return "file"
	case KindDir:
		return "dir"
	case KindFree:
		return "free"
	}
	return "unknown"
}

// IsBacked reports whether bn refers to a real data block.
func (bn Bnum) IsBacked() bool {
	return bn != NULLBNUM && bn != ZEROBNUM
}
