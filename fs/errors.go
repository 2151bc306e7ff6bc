package fs

import "github.com/mit-pdos/go-flatfs/common"

var (
	ErrExists       = common.ErrExists
	ErrNotFound     = common.ErrNotFound
	ErrNoFreeDesc   = common.ErrNoFreeDesc
	ErrOutOfSpace   = common.ErrOutOfSpace
	ErrInvalidRange = common.ErrInvalidRange
	ErrInvalidName  = common.ErrInvalidName
	ErrTooManyLinks = common.ErrTooManyLinks
	ErrNotDir       = common.ErrNotDir
	ErrIsDir        = common.ErrIsDir
	ErrBadHandle    = common.ErrBadHandle
	ErrCorrupt      = common.ErrCorrupt
)
