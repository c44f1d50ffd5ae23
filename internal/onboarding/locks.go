package onboarding

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const lockShards = 64

// sessionLocks hands out one mutex per session ID. Entries live only while
// someone holds or waits for them, so a slow call on one session never
// blocks another.
type sessionLocks struct {
	shards [lockShards]lockShard
}

type lockShard struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	sync.Mutex
	refs int
}

// acquire blocks until id is free and returns the matching release.
func (l *sessionLocks) acquire(id string) (release func()) {
	shard := &l.shards[xxhash.Sum64String(id)%lockShards]

	shard.mu.Lock()
	if shard.locks == nil {
		shard.locks = make(map[string]*sessionLock)
	}
	sl, ok := shard.locks[id]
	if !ok {
		sl = &sessionLock{}
		shard.locks[id] = sl
	}
	sl.refs++
	shard.mu.Unlock()

	sl.Lock()
	return func() {
		sl.Unlock()

		shard.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(shard.locks, id)
		}
		shard.mu.Unlock()
	}
}
