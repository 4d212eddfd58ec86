// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// Memory is an in-process ordered store: a sorted slice of entries
// under a read/write mutex. Intended for tests and single-process
// ephemeral deployments; use SQLite for anything that must survive a
// restart.
//
// The sorted-slice layout keeps ordered probes at O(log n) and makes
// the iteration order trivially correct, at the cost of O(n) inserts.
// Hearth's test workloads never approach sizes where that matters.
type Memory struct {
	mu       sync.RWMutex
	entries  []Entry
	counters map[string]uint64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{counters: make(map[string]uint64)}
}

// search returns the position of the first entry with key >= target.
func (m *Memory) search(target []byte) int {
	return sort.Search(len(m.entries), func(i int) bool {
		return bytes.Compare(m.entries[i].Key, target) >= 0
	})
}

// Get returns the value stored under key.
func (m *Memory) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.search(key)
	if i < len(m.entries) && bytes.Equal(m.entries[i].Key, key) {
		return bytes.Clone(m.entries[i].Value), true, nil
	}
	return nil, false, nil
}

// Insert stores value under key, replacing any existing value.
func (m *Memory) Insert(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := Entry{Key: bytes.Clone(key), Value: bytes.Clone(value)}
	i := m.search(key)
	if i < len(m.entries) && bytes.Equal(m.entries[i].Key, key) {
		m.entries[i] = entry
		return nil
	}
	m.entries = append(m.entries, Entry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = entry
	return nil
}

// Remove deletes the entry under key, if present.
func (m *Memory) Remove(ctx context.Context, key []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.search(key)
	if i < len(m.entries) && bytes.Equal(m.entries[i].Key, key) {
		m.entries = append(m.entries[:i], m.entries[i+1:]...)
	}
	return nil
}

// NextGreater returns the first entry with key strictly greater than key.
func (m *Memory) NextGreater(ctx context.Context, key []byte) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.search(key)
	if i < len(m.entries) && bytes.Equal(m.entries[i].Key, key) {
		i++
	}
	if i >= len(m.entries) {
		return Entry{}, false, nil
	}
	return cloneEntry(m.entries[i]), true, nil
}

// NextLess returns the last entry with key strictly less than key.
func (m *Memory) NextLess(ctx context.Context, key []byte) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.search(key)
	if i == 0 {
		return Entry{}, false, nil
	}
	return cloneEntry(m.entries[i-1]), true, nil
}

// ScanPrefix returns all entries whose keys start with prefix, in
// ascending key order.
func (m *Memory) ScanPrefix(ctx context.Context, prefix []byte) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Entry
	for i := m.search(prefix); i < len(m.entries); i++ {
		if !bytes.HasPrefix(m.entries[i].Key, prefix) {
			break
		}
		result = append(result, cloneEntry(m.entries[i]))
	}
	return result, nil
}

// LastInPrefix returns the entry with the largest key starting with
// prefix.
func (m *Memory) LastInPrefix(ctx context.Context, prefix []byte) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	end := len(m.entries)
	if upper, ok := prefixUpperBound(prefix); ok {
		end = m.search(upper)
	}
	if end == 0 {
		return Entry{}, false, nil
	}
	last := m.entries[end-1]
	if !bytes.HasPrefix(last.Key, prefix) {
		return Entry{}, false, nil
	}
	return cloneEntry(last), true, nil
}

// IncrementAndFetch atomically increments the named counter and
// returns the new value.
func (m *Memory) IncrementAndFetch(ctx context.Context, key []byte) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters[string(key)]++
	return m.counters[string(key)], nil
}

// Counter returns the current value of the named counter.
func (m *Memory) Counter(ctx context.Context, key []byte) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[string(key)], nil
}

// Close releases the store. A closed Memory store remains usable;
// Close exists to satisfy the Store interface uniformly.
func (m *Memory) Close() error { return nil }

func cloneEntry(e Entry) Entry {
	return Entry{Key: bytes.Clone(e.Key), Value: bytes.Clone(e.Value)}
}
