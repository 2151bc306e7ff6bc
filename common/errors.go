package common

import "errors"

var (
	ErrExists       = errors.New("file exists")
	ErrNotFound     = errors.New("no such file")
	ErrNoFreeDesc   = errors.New("no free descriptor")
	ErrOutOfSpace   = errors.New("no space left on device")
	ErrInvalidRange = errors.New("invalid range")

	ErrInvalidName  = errors.New("invalid file name")
	ErrTooManyLinks = errors.New("too many links")
	ErrNotDir       = errors.New("not a directory")
	ErrIsDir        = errors.New("is a directory")
	ErrBadHandle    = errors.New("bad file handle")
	ErrCorrupt      = errors.New("corrupt file system")
)
