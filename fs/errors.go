package fs

import (
	"errors"

	"github.com/mit-pdos/go-sfs/dir"
	"github.com/mit-pdos/go-sfs/inode"
)

var (
	ErrNotFound      = dir.ErrNotFound
	ErrNotDir        = dir.ErrNotDir
	ErrNameTooLong   = dir.ErrNameTooLong
	ErrInvalidName   = dir.ErrInvalidName
	ErrNoSpace       = inode.ErrNoSpace
	ErrNoInodes      = inode.ErrNoInodes
	ErrFileTooBig    = inode.ErrFileTooBig
	ErrExists        = errors.New("file exists")
	ErrIsDir         = errors.New("is a directory")
	ErrNotEmpty      = errors.New("directory not empty")
	ErrRootDir       = errors.New("cannot remove the root directory")
	ErrBadFd         = errors.New("bad file descriptor")
	ErrInvalidOffset = errors.New("invalid offset")
	ErrInvalidWhence = errors.New("invalid whence")
)
