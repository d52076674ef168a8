package disk

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/util"
)

var _ Disk = (*fileDisk)(nil)

type fileDisk struct {
	fd        int
	numBlocks uint64
}

// NewFileDisk opens the image at path, creating it if it does not exist. An
// image shorter than numBlocks blocks is extended with zeros. A numBlocks of
// 0 keeps the size of an existing image and gives a new one DefaultBlocks.
func NewFileDisk(path string, numBlocks uint64) (*fileDisk, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0666)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if numBlocks == 0 {
		numBlocks = uint64(stat.Size) / BlockSize
		if numBlocks == 0 {
			numBlocks = common.DefaultBlocks
		}
	}
	want := int64(numBlocks * BlockSize)
	if (stat.Mode&unix.S_IFMT) == unix.S_IFREG && stat.Size < want {
		util.DPrintf(1, "NewFileDisk: extend %s from %d to %d bytes\n", path, stat.Size, want)
		if err := unix.Ftruncate(fd, want); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("truncate %s: %w", path, err)
		}
	}
	return &fileDisk{fd: fd, numBlocks: numBlocks}, nil
}

// ImageBlocks returns the number of whole blocks in the image at path, or 0
// if it does not exist.
func ImageBlocks(path string) (uint64, error) {
	var stat unix.Stat_t
	if err := unix.Stat(path, &stat); err != nil {
		if err == unix.ENOENT {
			return 0, nil
		}
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return uint64(stat.Size) / BlockSize, nil
}

func (d *fileDisk) ReadTo(a uint64, buf Block) error {
	if err := checkAccess(a, d.numBlocks, buf); err != nil {
		return fmt.Errorf("read %d: %w", a, err)
	}
	n, err := unix.Pread(d.fd, buf, int64(a*BlockSize))
	if err != nil {
		return fmt.Errorf("read %d: %w", a, err)
	}
	if uint64(n) != BlockSize {
		return fmt.Errorf("read %d: short read (%d bytes)", a, n)
	}
	util.DPrintf(10, "read: %d\n", a)
	return nil
}

func (d *fileDisk) Read(a uint64) (Block, error) {
	buf := make(Block, BlockSize)
	if err := d.ReadTo(a, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *fileDisk) Write(a uint64, v Block) error {
	if err := checkAccess(a, d.numBlocks, v); err != nil {
		return fmt.Errorf("write %d: %w", a, err)
	}
	n, err := unix.Pwrite(d.fd, v, int64(a*BlockSize))
	if err != nil {
		return fmt.Errorf("write %d: %w", a, err)
	}
	if uint64(n) != BlockSize {
		return fmt.Errorf("write %d: short write (%d bytes)", a, n)
	}
	util.DPrintf(10, "write: %d\n", a)
	return nil
}

func (d *fileDisk) Size() uint64 {
	return d.numBlocks
}

func (d *fileDisk) Barrier() error {
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier; see https://golang.org/src/internal/poll/fd_fsync_darwin.go
	// for more details. The correct replacement is to issue a fcntl syscall with
	// cmd F_FULLFSYNC.
	if err := unix.Fsync(d.fd); err != nil {
		return fmt.Errorf("file sync failed: %w", err)
	}
	return nil
}

func (d *fileDisk) Close() error {
	return unix.Close(d.fd)
}
