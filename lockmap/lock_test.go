package lockmap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcquireRelease(t *testing.T) {
	lmap := MkLockMap()
	lmap.Acquire(1)
	lmap.Acquire(1 + NSHARD)
	assert.Equal(t, 2, lmap.Len())
	lmap.Release(1)
	lmap.Release(1 + NSHARD)
	assert.Equal(t, 0, lmap.Len(), "released keys leave no state behind")
}

func TestReleaseUnheldPanics(t *testing.T) {
	lmap := MkLockMap()
	assert.Panics(t, func() { lmap.Release(7) })
}

func TestMutualExclusion(t *testing.T) {
	lmap := MkLockMap()
	counters := make([]int, 4)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				key := uint64(i % len(counters))
				lmap.Do(key, func() {
					counters[key]++
				})
			}
		}()
	}
	wg.Wait()
	for _, c := range counters {
		assert.Equal(t, 8*1000/len(counters), c)
	}
	assert.Equal(t, 0, lmap.Len())
}
