package common

import "errors"

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrDiskFull    = errors.New("disk full")

	ErrClosed    = errors.New("store closed")
	ErrKeyEmpty  = errors.New("key cannot be empty")
	ErrNotFound  = errors.New("not found")
	ErrCorrupt   = errors.New("corrupt page")
	ErrPageFull  = errors.New("page is full")
	ErrBadMagic  = errors.New("bad database magic")
	ErrBadVer    = errors.New("unsupported database format version")
)
