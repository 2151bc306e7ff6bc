package dir

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mit-pdos/go-flatfs/common"
)

func TestEncode(t *testing.T) {
	de := DirEnt{Name: "test name", Inum: 2}
	expected := make([]byte, common.DIRENTSZ)
	copy(expected, "test name")
	binary.BigEndian.PutUint32(expected[28:], 2)
	assert.Equal(t, expected, de.Encode())
}

func TestDecode(t *testing.T) {
	b := make([]byte, common.DIRENTSZ)
	copy(b, "test name")
	binary.BigEndian.PutUint32(b[28:], 2)
	assert.Equal(t, DirEnt{Name: "test name", Inum: 2}, Decode(b))
}

func TestRoundTrip(t *testing.T) {
	for _, de := range []DirEnt{
		{Name: "a", Inum: 0},
		{Name: "exactly-twenty-eight-bytes!!", Inum: 1<<32 - 1},
		{Name: "ünïcødé", Inum: 300},
	} {
		assert.Equal(t, de, Decode(de.Encode()))
	}
}

func TestLongNameTruncated(t *testing.T) {
	de := DirEnt{Name: "this-name-is-longer-than-twenty-eight", Inum: 3}
	assert.Equal(t, "this-name-is-longer-than-twe", Decode(de.Encode()).Name)
}

func TestValidName(t *testing.T) {
	assert.NoError(t, ValidName("x"))
	assert.NoError(t, ValidName("exactly-twenty-eight-bytes!!"))
	assert.ErrorIs(t, ValidName(""), common.ErrInvalidName)
	assert.ErrorIs(t, ValidName("exactly-twenty-nine-bytes!!!!"), common.ErrInvalidName)
	assert.ErrorIs(t, ValidName("a\x00b"), common.ErrInvalidName)
}

func TestNameEqual(t *testing.T) {
	assert.True(t, NameEqual("abc", "abc"))
	assert.False(t, NameEqual("abc", "ABC"))
	assert.False(t, NameEqual("abc", "abcd"))
}

func TestBlock(t *testing.T) {
	assert := assert.New(t)
	ents := []DirEnt{{Name: "a", Inum: 1}, {Name: "b", Inum: 2}}
	blk := EncodeBlock(ents)
	got, end := DecodeBlock(blk)
	assert.True(end)
	assert.Equal(ents, got)

	full := make([]DirEnt, common.NDIRENTBLK)
	for i := range full {
		full[i] = DirEnt{Name: string(rune('a' + i)), Inum: common.Inum(i)}
	}
	got, end = DecodeBlock(EncodeBlock(full))
	assert.False(end)
	assert.Equal(full, got)

	got, end = DecodeBlock(make([]byte, common.BlockSize))
	assert.True(end)
	assert.Empty(got)

	assert.Panics(func() { EncodeBlock(make([]DirEnt, common.NDIRENTBLK+1)) })
}
