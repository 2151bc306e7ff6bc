package stats

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecord(t *testing.T) {
	assert := assert.New(t)
	var op Op
	op.Record(time.Now().Add(-2 * time.Millisecond))
	op.Record(time.Now().Add(-2 * time.Millisecond))
	assert.Equal(uint32(2), op.Count())
	assert.True(op.MicrosPerOp() >= 2000)

	op.Reset()
	assert.Equal(uint32(0), op.Count())
	assert.Equal(0.0, op.MicrosPerOp())
}

func TestFormatTable(t *testing.T) {
	ops := make([]Op, 3)
	ops[0].Record(time.Now())
	ops[2].Record(time.Now())
	s := FormatTable([]string{"read", "write", "truncate"}, ops)
	assert.Contains(t, s, "read")
	assert.Contains(t, s, "truncate")
	assert.NotContains(t, s, "write", "unused ops are skipped")
	assert.True(t, strings.Contains(s, "total"))
}

func TestMismatched(t *testing.T) {
	assert.Panics(t, func() { FormatTable([]string{"a"}, nil) })
}
