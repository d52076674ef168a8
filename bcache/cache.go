package bcache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mit-pdos/go-sfs/buf"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
	"github.com/mit-pdos/go-sfs/util"
)

// ErrWriteback reports that a dirty block could not be written to disk when
// it was evicted. The block is dropped from the cache anyway, so its
// contents are lost.
var ErrWriteback = errors.New("write-back of evicted block failed")

const nilSlot = -1

// A slot is one arena entry. prev/next link resident slots in recency order,
// free slots are chained through next.
type slot struct {
	buf  *buf.Buf
	prev int
	next int
}

type Stats struct {
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// Cache is a write-back LRU cache of disk blocks.
//
// Entries live in an arena of slots addressed by index; index maps a block
// number to its slot. head is the most recently used slot and tail the
// least. Occupancy never exceeds capacity once an operation returns.
type Cache struct {
	mu       *sync.Mutex
	d        disk.Disk
	capacity int
	slots    []slot
	free     int
	index    map[common.Bnum]int
	head     int
	tail     int
	stats    Stats
}

// MkCache creates a cache of capacity blocks in front of d. A capacity of
// zero or less selects common.DefaultCacheBlocks.
func MkCache(d disk.Disk, capacity int) *Cache {
	if capacity <= 0 {
		capacity = common.DefaultCacheBlocks
	}
	return &Cache{
		mu:       new(sync.Mutex),
		d:        d,
		capacity: capacity,
		slots:    make([]slot, 0, capacity+1),
		free:     nilSlot,
		index:    make(map[common.Bnum]int, capacity+1),
		head:     nilSlot,
		tail:     nilSlot,
	}
}

func (c *Cache) unlink(i int) {
	s := &c.slots[i]
	if s.prev != nilSlot {
		c.slots[s.prev].next = s.next
	} else {
		c.head = s.next
	}
	if s.next != nilSlot {
		c.slots[s.next].prev = s.prev
	} else {
		c.tail = s.prev
	}
	s.prev = nilSlot
	s.next = nilSlot
}

func (c *Cache) pushFront(i int) {
	s := &c.slots[i]
	s.prev = nilSlot
	s.next = c.head
	if c.head != nilSlot {
		c.slots[c.head].prev = i
	}
	c.head = i
	if c.tail == nilSlot {
		c.tail = i
	}
}

func (c *Cache) touch(i int) {
	if c.head == i {
		return
	}
	c.unlink(i)
	c.pushFront(i)
}

func (c *Cache) allocSlot() int {
	if c.free != nilSlot {
		i := c.free
		c.free = c.slots[i].next
		return i
	}
	c.slots = append(c.slots, slot{prev: nilSlot, next: nilSlot})
	return len(c.slots) - 1
}

func (c *Cache) insert(b *buf.Buf) int {
	i := c.allocSlot()
	c.slots[i].buf = b
	c.index[b.Blkno] = i
	c.pushFront(i)
	return i
}

// evictIfNeeded drops least recently used entries until occupancy is within
// capacity. A dirty victim is written back first; if that write fails the
// entry is dropped regardless and the error is returned.
func (c *Cache) evictIfNeeded() error {
	var err error
	for len(c.index) > c.capacity {
		i := c.tail
		victim := c.slots[i].buf
		c.unlink(i)
		delete(c.index, victim.Blkno)
		c.slots[i].buf = nil
		c.slots[i].next = c.free
		c.free = i
		c.stats.Evictions += 1
		if victim.IsDirty() {
			util.DPrintf(5, "evict: write back %d\n", victim.Blkno)
			c.stats.Writebacks += 1
			if werr := victim.WriteDirect(c.d); werr != nil && err == nil {
				err = fmt.Errorf("%w: block %d: %v", ErrWriteback, victim.Blkno, werr)
			}
		} else {
			util.DPrintf(5, "evict: drop %d\n", victim.Blkno)
		}
	}
	return err
}

// lookup returns the slot for bn, loading it from disk on a miss.
func (c *Cache) lookup(bn common.Bnum) (int, error) {
	if i, ok := c.index[bn]; ok {
		c.stats.Hits += 1
		c.touch(i)
		return i, nil
	}
	c.stats.Misses += 1
	blk, err := c.d.Read(bn)
	if err != nil {
		return nilSlot, err
	}
	return c.insert(buf.MkBuf(bn, blk)), nil
}

// GetBlock returns the cached buffer for bn, reading it from disk on a miss.
//
// The buffer is the cache's own copy: it stays valid for the life of the
// mount, but changes to it only reach the disk if they are followed by
// WriteBlock for bn.
func (c *Cache) GetBlock(bn common.Bnum) (disk.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, err := c.lookup(bn)
	if err != nil {
		return nil, err
	}
	data := c.slots[i].buf.Data
	return data, c.evictIfNeeded()
}

// WriteBlock replaces the cached contents of bn with b and marks the block
// dirty. The block is read in first if it is not resident.
func (c *Cache) WriteBlock(bn common.Bnum, b disk.Block) error {
	if uint64(len(b)) != common.BlockSize {
		return fmt.Errorf("write %d: %w", bn, disk.ErrBlockSize)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i, err := c.lookup(bn)
	if err != nil {
		return err
	}
	e := c.slots[i].buf
	copy(e.Data, b)
	e.SetDirty()
	return c.evictIfNeeded()
}

// FlushAll writes every dirty block back to disk and marks it clean. Blocks
// that fail to write stay dirty; the first error is returned.
func (c *Cache) FlushAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	n := 0
	for i := c.head; i != nilSlot; i = c.slots[i].next {
		b := c.slots[i].buf
		if !b.IsDirty() {
			continue
		}
		if werr := b.WriteDirect(c.d); werr != nil {
			if err == nil {
				err = werr
			}
			continue
		}
		n += 1
	}
	util.DPrintf(5, "FlushAll: wrote %d blocks\n", n)
	return err
}

func (c *Cache) Read(bn common.Bnum) (disk.Block, error) {
	data, err := c.GetBlock(bn)
	if data == nil {
		return nil, err
	}
	return util.CloneByteSlice(data), err
}

func (c *Cache) Write(bn common.Bnum, b disk.Block) error {
	return c.WriteBlock(bn, b)
}

func (c *Cache) Flush() error {
	return c.FlushAll()
}

// Len reports the number of resident blocks
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

func (c *Cache) NDirty() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, i := range c.index {
		if c.slots[i].buf.IsDirty() {
			n += 1
		}
	}
	return n
}

func (c *Cache) Contains(bn common.Bnum) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.index[bn]
	return ok
}

func (c *Cache) Capacity() int {
	return c.capacity
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
