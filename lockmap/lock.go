// Package lockmap provides one lock per uint64 key without allocating a lock
// for every key: keys hash onto a fixed set of shards, and a shard only
// keeps state for keys that are held or waited on.
package lockmap

import (
	"sync"
)

type lockState struct {
	held    bool
	cond    *sync.Cond
	waiters uint64
}

type lockShard struct {
	mu    *sync.Mutex
	state map[uint64]*lockState
}

func mkLockShard() *lockShard {
	return &lockShard{
		mu:    new(sync.Mutex),
		state: make(map[uint64]*lockState),
	}
}

func (shard *lockShard) acquire(key uint64) {
	shard.mu.Lock()
	state, ok := shard.state[key]
	if !ok {
		state = &lockState{cond: sync.NewCond(shard.mu)}
		shard.state[key] = state
	}
	for state.held {
		state.waiters++
		state.cond.Wait()
		state.waiters--
	}
	state.held = true
	shard.mu.Unlock()
}

func (shard *lockShard) release(key uint64) {
	shard.mu.Lock()
	state, ok := shard.state[key]
	if !ok || !state.held {
		panic("lockmap: release of unheld key")
	}
	state.held = false
	if state.waiters > 0 {
		state.cond.Signal()
	} else {
		delete(shard.state, key)
	}
	shard.mu.Unlock()
}

func (shard *lockShard) len() int {
	shard.mu.Lock()
	defer shard.mu.Unlock()
	return len(shard.state)
}

const NSHARD uint64 = 43

type LockMap struct {
	shards []*lockShard
}

func MkLockMap() *LockMap {
	shards := make([]*lockShard, NSHARD)
	for i := range shards {
		shards[i] = mkLockShard()
	}
	return &LockMap{shards: shards}
}

func (lmap *LockMap) shard(key uint64) *lockShard {
	return lmap.shards[key%NSHARD]
}

func (lmap *LockMap) Acquire(key uint64) {
	lmap.shard(key).acquire(key)
}

func (lmap *LockMap) Release(key uint64) {
	lmap.shard(key).release(key)
}

// Do runs f while holding the lock for key.
func (lmap *LockMap) Do(key uint64, f func()) {
	lmap.Acquire(key)
	defer lmap.Release(key)
	f()
}

// Len is the number of keys currently held or waited on.
func (lmap *LockMap) Len() int {
	n := 0
	for _, s := range lmap.shards {
		n += s.len()
	}
	return n
}
