// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"encoding/binary"
)

// Delimiter separates identifier parts inside a key. The byte 0xFF
// never occurs in valid UTF-8, so no validated identifier can contain
// it (lib/ref enforces UTF-8 at the boundary). This is what makes
// "all keys for room X" a contiguous byte range: no other room ID can
// produce a key that sorts inside it.
const Delimiter byte = 0xFF

// Entry is a key/value pair returned by ordered probes and scans.
// Both slices are owned by the caller.
type Entry struct {
	Key   []byte
	Value []byte
}

// Store is the ordered byte-key capability Hearth persists through.
//
// All operations are atomic per key. Ordered probes and scans observe
// a consistent snapshot per call, not across calls. Implementations
// must be safe for concurrent use.
type Store interface {
	// Get returns the value stored under key, or ok=false if absent.
	Get(ctx context.Context, key []byte) (value []byte, ok bool, err error)

	// Insert stores value under key, replacing any existing value.
	Insert(ctx context.Context, key, value []byte) error

	// Remove deletes the entry under key. Removing an absent key is
	// not an error.
	Remove(ctx context.Context, key []byte) error

	// NextGreater returns the entry with the smallest key strictly
	// greater than key, or ok=false if no such entry exists.
	NextGreater(ctx context.Context, key []byte) (entry Entry, ok bool, err error)

	// NextLess returns the entry with the largest key strictly less
	// than key, or ok=false if no such entry exists.
	NextLess(ctx context.Context, key []byte) (entry Entry, ok bool, err error)

	// ScanPrefix returns all entries whose keys start with prefix, in
	// ascending key order.
	ScanPrefix(ctx context.Context, prefix []byte) ([]Entry, error)

	// LastInPrefix returns the entry with the largest key starting
	// with prefix, or ok=false if the prefix range is empty. This is
	// the entry point for the slot engine's backward walks.
	LastInPrefix(ctx context.Context, prefix []byte) (entry Entry, ok bool, err error)

	// IncrementAndFetch atomically increments the counter named by
	// key and returns the new value. The first increment of a counter
	// returns 1. Counters live in a namespace separate from regular
	// entries; a counter key never collides with a Get/Insert key.
	IncrementAndFetch(ctx context.Context, key []byte) (uint64, error)

	// Counter returns the current value of the counter named by key
	// without incrementing it. Returns 0 for a counter that has never
	// been incremented.
	Counter(ctx context.Context, key []byte) (uint64, error)

	// Close releases the store's resources.
	Close() error
}

// Key joins parts with the delimiter: "a", "b" → a 0xFF b.
func Key(parts ...[]byte) []byte {
	size := 0
	for _, part := range parts {
		size += len(part) + 1
	}
	key := make([]byte, 0, size)
	for i, part := range parts {
		if i > 0 {
			key = append(key, Delimiter)
		}
		key = append(key, part...)
	}
	return key
}

// Prefix joins parts with the delimiter and appends a trailing
// delimiter, producing the range prefix that covers every key built
// from these parts plus a suffix. The trailing delimiter is what
// stops "!room1" from matching keys of "!room10".
func Prefix(parts ...[]byte) []byte {
	return append(Key(parts...), Delimiter)
}

// Uint64 returns the fixed-width big-endian encoding of v. Big-endian
// makes numeric order equal byte order, so ordinals embedded in keys
// sort chronologically.
func Uint64(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

// ParseUint64 decodes a fixed-width big-endian integer from the last
// 8 bytes of b. Returns 0 if b is shorter than 8 bytes.
func ParseUint64(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b[len(b)-8:])
}

// prefixUpperBound returns the smallest key that is greater than every
// key starting with prefix, for use as an exclusive range end. Returns
// ok=false when no such key exists (prefix is empty or all 0xFF).
func prefixUpperBound(prefix []byte) (upper []byte, ok bool) {
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] != 0xFF {
			upper = make([]byte, i+1)
			copy(upper, prefix[:i+1])
			upper[i]++
			return upper, true
		}
	}
	return nil, false
}
