package alloc

import (
	"sync"
)

// Alloc uses a bit map to allocate and free numbers. Bit 0 corresponds to
// number 0, bit 1 to 1, and so on. Numbers below reserved are permanently
// in use.
//
// Allocation always returns the lowest free number, so the sequence of
// numbers handed out is reproducible.
type Alloc struct {
	mu       *sync.Mutex
	bitmap   []byte
	max      uint64
	reserved uint64
}

// MkReservedAlloc creates an allocator for [0, max) with [0, reserved)
// marked used.
func MkReservedAlloc(max uint64, reserved uint64) *Alloc {
	if reserved > max {
		panic("MkReservedAlloc: reserved > max")
	}
	a := &Alloc{
		mu:       new(sync.Mutex),
		bitmap:   make([]byte, (max+7)/8),
		max:      max,
		reserved: reserved,
	}
	for n := uint64(0); n < reserved; n++ {
		a.setBit(n)
	}
	return a
}

// MkMaxAlloc creates an allocator for [0, max) where only 0 is reserved.
func MkMaxAlloc(max uint64) *Alloc {
	return MkReservedAlloc(max, 1)
}

func (a *Alloc) setBit(n uint64) {
	a.bitmap[n/8] = a.bitmap[n/8] | (1 << (n % 8))
}

func (a *Alloc) clearBit(n uint64) {
	a.bitmap[n/8] = a.bitmap[n/8] & ^(1 << (n % 8))
}

func (a *Alloc) isSet(n uint64) bool {
	return a.bitmap[n/8]&(1<<(n%8)) != 0
}

// AllocNum returns the lowest free number and marks it used, or false if
// every number is in use.
func (a *Alloc) AllocNum() (uint64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := a.reserved / 8; i < uint64(len(a.bitmap)); i++ {
		if a.bitmap[i] == 0xff {
			continue
		}
		for bit := uint64(0); bit < 8; bit++ {
			n := i*8 + bit
			if n >= a.max {
				return 0, false
			}
			if !a.isSet(n) {
				a.setBit(n)
				return n, true
			}
		}
	}
	return 0, false
}

// FreeNum marks num free. Freeing a reserved, out-of-range or already free
// number does nothing.
func (a *Alloc) FreeNum(num uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if num < a.reserved || num >= a.max {
		return
	}
	a.clearBit(num)
}

// MarkUsed marks num used without allocating it, for rebuilding the map from
// on-disk state.
func (a *Alloc) MarkUsed(num uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if num >= a.max {
		return
	}
	a.setBit(num)
}

func (a *Alloc) IsUsed(num uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if num >= a.max {
		return false
	}
	return a.isSet(num)
}

func popCnt(b byte) uint64 {
	var count uint64
	var x = b
	for i := uint64(0); i < 8; i++ {
		count += uint64(x & 1)
		x = x >> 1
	}
	return count
}

// NumFree returns the number of free numbers
func (a *Alloc) NumFree() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var used uint64
	for _, b := range a.bitmap {
		used += popCnt(b)
	}
	return a.max - used
}
