// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keyedmutex provides per-key mutual exclusion.
//
// The store guarantees per-key atomicity only, so Hearth's two
// read-modify-write sequences — the append path's frontier update and
// the slot engine's remove-then-insert — need their own
// serialization. A KeyedMutex serializes callers that share a key
// while leaving callers on different keys fully parallel: appends to
// different rooms never wait on each other.
//
// Locks are created on first use and never discarded. Key cardinality
// here is rooms and (room, user) pairs, which is bounded by real
// usage; an LRU would add complexity for no observed benefit.
package keyedmutex

import "sync"

// KeyedMutex is a set of named mutexes. The zero value is not usable;
// call New.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns an empty KeyedMutex.
func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use. The
// returned function releases it, typically via defer:
//
//	unlock := locks.Lock(roomID.String())
//	defer unlock()
func (k *KeyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = new(sync.Mutex)
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
