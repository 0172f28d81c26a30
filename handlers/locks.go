// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import "sync"

// pollLocks serializes vote and close operations per poll. Row-level
// SELECT ... FOR UPDATE is not portable to the sqlite driver, so the
// "read status, maybe close, read/replace vote" sequence is guarded by an
// in-process mutex keyed on poll ID instead. Operations on different polls
// proceed concurrently.
type pollLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

var pollMu = &pollLocks{locks: make(map[int64]*sync.Mutex)}

// Lock acquires the mutex for pollID and returns it for the caller to
// defer-unlock. Lock values are never removed from the map; the number of
// polls in a single room stays small.
func (p *pollLocks) Lock(pollID int64) *sync.Mutex {
	p.mu.Lock()
	l, ok := p.locks[pollID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[pollID] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l
}
