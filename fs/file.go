package fs

import (
	"errors"
	"fmt"
	"io"

	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/util"
)

type Fd uint64

// FirstFd is the first descriptor handed out; 0-2 are never used.
const FirstFd Fd = 3

// OpenFile is an open handle: the file and the current offset.
type OpenFile struct {
	Inum common.Inum
	Off  uint64
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func (fs *FS) getFile(fd Fd) (*OpenFile, error) {
	of, ok := fs.files[fd]
	if !ok {
		return nil, fmt.Errorf("fd %d: %w", fd, ErrBadFd)
	}
	return of, nil
}

// Open returns a new handle at offset 0 on the regular file at path,
// creating it if it does not exist.
func (fs *FS) Open(path string) (fd Fd, err error) {
	defer fs.reportLoss(&err)
	inum, err := fs.resolve(path)
	if isNotFound(err) {
		inum, err = fs.create(path, common.ModeFile)
	}
	if err != nil {
		return 0, err
	}
	ip, err := fs.inodes.Read(inum)
	if err != nil {
		return 0, err
	}
	if ip.IsDir() {
		return 0, fmt.Errorf("%s: %w", path, ErrIsDir)
	}
	fd = fs.nextFd
	fs.nextFd++
	fs.files[fd] = &OpenFile{Inum: inum}
	util.DPrintf(3, "fs.Open %s -> fd %d (inum %d)\n", path, fd, inum)
	return fd, nil
}

func (fs *FS) Close(fd Fd) error {
	if _, err := fs.getFile(fd); err != nil {
		return err
	}
	delete(fs.files, fd)
	return nil
}

// Read returns up to n bytes from the handle's offset, stopping at the end
// of the file. Unallocated blocks read as zeros.
func (fs *FS) Read(fd Fd, n uint64) (data []byte, err error) {
	defer fs.reportLoss(&err)
	of, err := fs.getFile(fd)
	if err != nil {
		return nil, err
	}
	ip, err := fs.inodes.Read(of.Inum)
	if err != nil {
		return nil, err
	}
	if of.Off >= ip.Size {
		return []byte{}, nil
	}
	end := ip.Size
	if n < end-of.Off {
		end = of.Off + n
	}
	data = make([]byte, 0, end-of.Off)
	for off := of.Off; off < end; {
		lbn := off / common.BlockSize
		boff := off % common.BlockSize
		chunk := util.Min(common.BlockSize-boff, end-off)
		bn, err := ip.Bmap(fs.store, fs.balloc, lbn, false)
		if err != nil {
			return nil, err
		}
		if bn == common.NULLBNUM {
			data = append(data, make([]byte, chunk)...)
		} else {
			blk, err := fs.store.Read(bn)
			if err != nil {
				return nil, err
			}
			data = append(data, blk[boff:boff+chunk]...)
		}
		off += chunk
	}
	of.Off = end
	util.DPrintf(10, "fs.Read fd %d: %d bytes\n", fd, len(data))
	return data, nil
}

// Write stores data at the handle's offset, allocating blocks as needed,
// and advances the offset. A write that would grow the file past
// MaxFileSize fails before changing anything. If the disk fills up
// partway, the bytes already written are kept and counted. A failed
// write-back of some other block evicted from the cache does not stop the
// write; every byte is stored and counted, and bcache.ErrWriteback is
// returned.
func (fs *FS) Write(fd Fd, data []byte) (n uint64, err error) {
	defer fs.reportLoss(&err)
	of, err := fs.getFile(fd)
	if err != nil {
		return 0, err
	}
	cnt := uint64(len(data))
	if util.SumOverflows(of.Off, cnt) || of.Off+cnt > common.MaxFileSize {
		return 0, fmt.Errorf("fd %d: %d bytes at %d: %w", fd, cnt, of.Off, ErrFileTooBig)
	}
	ip, err := fs.inodes.Read(of.Inum)
	if err != nil {
		return 0, err
	}
	var werr error
	for n < cnt {
		off := of.Off + n
		lbn := off / common.BlockSize
		boff := off % common.BlockSize
		chunk := util.Min(common.BlockSize-boff, cnt-n)
		bn, err := ip.Bmap(fs.store, fs.balloc, lbn, true)
		if err != nil {
			werr = err
			break
		}
		blk, err := fs.store.Read(bn)
		if err != nil {
			werr = err
			break
		}
		copy(blk[boff:boff+chunk], data[n:n+chunk])
		if err := fs.store.Write(bn, blk); err != nil {
			werr = err
			break
		}
		n += chunk
	}
	of.Off += n
	ip.Size = util.Max(ip.Size, of.Off)
	if err := fs.inodes.Write(of.Inum, ip); err != nil {
		return n, err
	}
	util.DPrintf(10, "fs.Write fd %d: %d bytes, size %d\n", fd, n, ip.Size)
	return n, werr
}

// Seek moves the handle's offset relative to the start (io.SeekStart), the
// current offset (io.SeekCurrent) or the end of the file (io.SeekEnd). The
// result must lie in [0, MaxFileSize).
func (fs *FS) Seek(fd Fd, off int64, whence int) (pos uint64, err error) {
	defer fs.reportLoss(&err)
	of, err := fs.getFile(fd)
	if err != nil {
		return 0, err
	}
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = int64(of.Off)
	case io.SeekEnd:
		ip, err := fs.inodes.Read(of.Inum)
		if err != nil {
			return 0, err
		}
		base = int64(ip.Size)
	default:
		return 0, fmt.Errorf("whence %d: %w", whence, ErrInvalidWhence)
	}
	abs := base + off
	if abs < 0 || uint64(abs) >= common.MaxFileSize {
		return 0, fmt.Errorf("offset %d: %w", abs, ErrInvalidOffset)
	}
	of.Off = uint64(abs)
	return of.Off, nil
}
