// Package mount is the boundary a file service would sit behind: a table of
// mounted images addressed by id. Operations on one mount are serialized;
// operations on different mounts run concurrently.
package mount

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/fs"
	"github.com/mit-pdos/go-sfs/lockmap"
	"github.com/mit-pdos/go-sfs/util"
)

var ErrNoMount = errors.New("no such mount")

type MountID uint64

type Table struct {
	mu     *sync.Mutex
	mounts map[MountID]*fs.FS
	next   MountID
	locks  *lockmap.LockMap
}

func MkTable() *Table {
	return &Table{
		mu:     new(sync.Mutex),
		mounts: make(map[MountID]*fs.FS),
		next:   1,
		locks:  lockmap.MkLockMap(),
	}
}

// Mount opens the image at path and returns the id of the new mount.
func (t *Table) Mount(path string, enableCache bool, capacity int, opts ...fs.Option) (MountID, error) {
	opts = append([]fs.Option{fs.WithCache(enableCache, capacity)}, opts...)
	fsys, err := fs.MountImage(path, opts...)
	if err != nil {
		return 0, err
	}
	id := t.Attach(fsys)
	util.DPrintf(1, "mount.Mount %s -> %d\n", path, id)
	return id, nil
}

// Attach adds an already mounted FS to the table.
func (t *Table) Attach(fsys *fs.FS) MountID {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	t.mounts[id] = fsys
	return id
}

func (t *Table) get(id MountID) (*fs.FS, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fsys, ok := t.mounts[id]
	if !ok {
		return nil, fmt.Errorf("mount %d: %w", id, ErrNoMount)
	}
	return fsys, nil
}

func (t *Table) with(id MountID, f func(fsys *fs.FS) error) error {
	t.locks.Acquire(uint64(id))
	defer t.locks.Release(uint64(id))
	fsys, err := t.get(id)
	if err != nil {
		return err
	}
	return f(fsys)
}

// Mounts returns the ids of every live mount.
func (t *Table) Mounts() []MountID {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]MountID, 0, len(t.mounts))
	for id := range t.mounts {
		ids = append(ids, id)
	}
	return ids
}

// Unmount flushes and closes mount id and forgets it, even if the flush
// fails.
func (t *Table) Unmount(id MountID) error {
	return t.with(id, func(fsys *fs.FS) error {
		t.mu.Lock()
		delete(t.mounts, id)
		t.mu.Unlock()
		util.DPrintf(1, "mount.Unmount %d\n", id)
		return fsys.Unmount()
	})
}

// FlushAll checkpoints every mount and returns the first error.
func (t *Table) FlushAll() error {
	var first error
	for _, id := range t.Mounts() {
		err := t.with(id, func(fsys *fs.FS) error {
			return fsys.Flush()
		})
		if err != nil && !errors.Is(err, ErrNoMount) && first == nil {
			first = err
		}
	}
	return first
}

func (t *Table) Resolve(id MountID, path string) (inum common.Inum, err error) {
	err = t.with(id, func(fsys *fs.FS) error {
		inum, err = fsys.Resolve(path)
		return err
	})
	return
}

func (t *Table) Create(id MountID, path string) (inum common.Inum, err error) {
	err = t.with(id, func(fsys *fs.FS) error {
		inum, err = fsys.Create(path)
		return err
	})
	return
}

func (t *Table) Mkdir(id MountID, path string) (inum common.Inum, err error) {
	err = t.with(id, func(fsys *fs.FS) error {
		inum, err = fsys.Mkdir(path)
		return err
	})
	return
}

func (t *Table) Open(id MountID, path string) (fd fs.Fd, err error) {
	err = t.with(id, func(fsys *fs.FS) error {
		fd, err = fsys.Open(path)
		return err
	})
	return
}

func (t *Table) Close(id MountID, fd fs.Fd) error {
	return t.with(id, func(fsys *fs.FS) error {
		return fsys.Close(fd)
	})
}

func (t *Table) Read(id MountID, fd fs.Fd, n uint64) (data []byte, err error) {
	err = t.with(id, func(fsys *fs.FS) error {
		data, err = fsys.Read(fd, n)
		return err
	})
	return
}

func (t *Table) Write(id MountID, fd fs.Fd, data []byte) (n uint64, err error) {
	err = t.with(id, func(fsys *fs.FS) error {
		n, err = fsys.Write(fd, data)
		return err
	})
	return
}

func (t *Table) Seek(id MountID, fd fs.Fd, off int64, whence int) (pos uint64, err error) {
	err = t.with(id, func(fsys *fs.FS) error {
		pos, err = fsys.Seek(fd, off, whence)
		return err
	})
	return
}

func (t *Table) Remove(id MountID, path string) error {
	return t.with(id, func(fsys *fs.FS) error {
		return fsys.Remove(path)
	})
}

func (t *Table) Listdir(id MountID, path string) (names []string, err error) {
	err = t.with(id, func(fsys *fs.FS) error {
		names, err = fsys.Listdir(path)
		return err
	})
	return
}

func (t *Table) Stat(id MountID, path string) (st fs.Stat, err error) {
	err = t.with(id, func(fsys *fs.FS) error {
		st, err = fsys.Stat(path)
		return err
	})
	return
}
