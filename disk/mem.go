package disk

import (
	"fmt"

	gdisk "github.com/tchajed/goose/machine/disk"
)

var _ Disk = memDisk{}

// memDisk adds bounds checking on top of the goose in-memory disk, which
// panics on bad addresses.
type memDisk struct {
	d gdisk.Disk
}

func NewMemDisk(numBlocks uint64) Disk {
	return memDisk{d: gdisk.NewMemDisk(numBlocks)}
}

func (d memDisk) ReadTo(a uint64, buf Block) error {
	if err := checkAccess(a, d.d.Size(), buf); err != nil {
		return fmt.Errorf("read %d: %w", a, err)
	}
	copy(buf, d.d.Read(a))
	return nil
}

func (d memDisk) Read(a uint64) (Block, error) {
	buf := make(Block, BlockSize)
	if err := d.ReadTo(a, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d memDisk) Write(a uint64, v Block) error {
	if err := checkAccess(a, d.d.Size(), v); err != nil {
		return fmt.Errorf("write %d: %w", a, err)
	}
	d.d.Write(a, v)
	return nil
}

func (d memDisk) Size() uint64 {
	// this never changes so we assume it's safe to run lock-free
	return d.d.Size()
}

func (d memDisk) Barrier() error { return nil }

func (d memDisk) Close() error { return nil }
