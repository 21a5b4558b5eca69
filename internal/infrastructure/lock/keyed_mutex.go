// Package lock provides in-process keyed locking. Commits touching one
// campaign serialize on its key so concurrent sync jobs and bulk ingests
// never interleave writes to the same aggregate.
package lock

import (
	"context"
	"sync"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex serializes critical sections per key. Locks for distinct
// keys never contend; lock state for idle keys is released.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewKeyedMutex creates a keyed mutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		entries: make(map[string]*entry),
	}
}

// Lock acquires the lock for key and returns the release function.
// The caller must invoke the release exactly once.
func (k *KeyedMutex) Lock(key string) func() {
	e := k.acquireEntry(key)
	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.releaseEntry(key, e)
	}
}

// TryLock acquires the lock for key without blocking. It returns the
// release function and true, or nil and false when the key is held.
func (k *KeyedMutex) TryLock(key string) (func(), bool) {
	e := k.acquireEntry(key)
	if !e.mu.TryLock() {
		k.releaseEntry(key, e)
		return nil, false
	}
	return func() {
		e.mu.Unlock()
		k.releaseEntry(key, e)
	}, true
}

// LockContext acquires the lock for key unless ctx is done first
func (k *KeyedMutex) LockContext(ctx context.Context, key string) (func(), error) {
	acquired := make(chan func(), 1)
	go func() {
		acquired <- k.Lock(key)
	}()

	select {
	case release := <-acquired:
		return release, nil
	case <-ctx.Done():
		// the goroutine will still acquire; release immediately
		go func() {
			release := <-acquired
			release()
		}()
		return nil, ctx.Err()
	}
}

func (k *KeyedMutex) acquireEntry(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *KeyedMutex) releaseEntry(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}
