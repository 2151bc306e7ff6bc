package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-flatfs/blkdev"
	"github.com/mit-pdos/go-flatfs/fs"
)

func TestCommands(t *testing.T) {
	fsys, err := fs.Mkfs(blkdev.NewMemDevice(64), 10)
	require.NoError(t, err)
	_, err = fsys.Create("hello")
	require.NoError(t, err)
	require.NoError(t, fsys.Truncate("hello", 11))
	require.NoError(t, write(fsys, "hello", 0, []byte("hello world")))
	require.NoError(t, fsys.Link("hello", "hi"))

	var out bytes.Buffer
	require.NoError(t, cat(fsys, "hi", 6, nil, &out))
	assert.Equal(t, "world", out.String())

	out.Reset()
	n := uint64(5)
	require.NoError(t, cat(fsys, "hello", 0, &n, &out))
	assert.Equal(t, "hello", out.String())

	out.Reset()
	require.NoError(t, list(fsys, &out))
	assert.Contains(t, out.String(), "hello")
	assert.Contains(t, out.String(), "hi")

	out.Reset()
	require.NoError(t, stat(fsys, "hi", &out))
	assert.Contains(t, out.String(), "11")
	out.Reset()
	require.NoError(t, stat(fsys, "0", &out))
	assert.Contains(t, out.String(), "dir")

	out.Reset()
	require.NoError(t, df(fsys, &out))
	assert.Contains(t, out.String(), "descriptors")

	assert.ErrorIs(t, write(fsys, "hello", 10, []byte("xx")), fs.ErrInvalidRange)
	assert.ErrorIs(t, cat(fsys, "nope", 0, nil, &out), fs.ErrNotFound)
}
