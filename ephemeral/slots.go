// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ephemeral

import (
	"bytes"
	"context"

	"github.com/bureau-foundation/hearth/lib/keyedmutex"
	"github.com/bureau-foundation/hearth/storage"
	"github.com/bureau-foundation/hearth/storage/sequence"
)

// slots is the engine shared by every instantiation: remove the
// previous slot for a subject, insert the replacement at a fresh
// ordinal, scan forward for changes.
type slots struct {
	store    storage.Store
	sequence *sequence.Sequence
	locks    *keyedmutex.KeyedMutex
}

func newSlots(store storage.Store, seq *sequence.Sequence) slots {
	return slots{store: store, sequence: seq, locks: keyedmutex.New()}
}

// update replaces the subject's slot within the scope: a backward
// walk from the end of the scope's key range removes the first entry
// matches accepts, then buildKey is called with a fresh ordinal and
// the payload inserted under it. lockKey names the (scope, subject)
// pair; concurrent updates sharing it are serialized, which is what
// guarantees at most one live slot per subject.
func (s *slots) update(ctx context.Context, lockKey string, scope []byte, matches func(storage.Entry) bool, buildKey func(ordinal uint64) []byte, payload []byte) error {
	unlock := s.locks.Lock(lockKey)
	defer unlock()

	if err := s.removeMatching(ctx, scope, matches); err != nil {
		return err
	}

	ordinal, err := s.sequence.Next(ctx)
	if err != nil {
		return err
	}
	return s.store.Insert(ctx, buildKey(ordinal), payload)
}

// removeMatching walks backward through the scope and removes the
// first entry matches accepts. Absence of a match is not an error.
func (s *slots) removeMatching(ctx context.Context, scope []byte, matches func(storage.Entry) bool) error {
	entry, ok, err := s.store.LastInPrefix(ctx, scope)
	if err != nil {
		return err
	}
	for ok && bytes.HasPrefix(entry.Key, scope) {
		if matches(entry) {
			return s.store.Remove(ctx, entry.Key)
		}
		entry, ok, err = s.store.NextLess(ctx, entry.Key)
		if err != nil {
			return err
		}
	}
	return nil
}

// since returns the scope's entries with ordinals strictly greater
// than after, in ascending order. The ordinal is read at a fixed
// offset right after the scope prefix, so entries whose keys carry
// trailing subject bytes are handled the same as entries that do not.
func (s *slots) since(ctx context.Context, scope []byte, after uint64) ([]storage.Entry, error) {
	cursor := append(append([]byte(nil), scope...), storage.Uint64(after)...)

	var entries []storage.Entry
	for {
		entry, ok, err := s.store.NextGreater(ctx, cursor)
		if err != nil {
			return nil, err
		}
		if !ok || !bytes.HasPrefix(entry.Key, scope) {
			return entries, nil
		}
		if ordinalAt(entry.Key, len(scope)) > after {
			entries = append(entries, entry)
		}
		cursor = entry.Key
	}
}

// ordinalAt decodes the big-endian ordinal starting at offset, or 0
// if the key is too short.
func ordinalAt(key []byte, offset int) uint64 {
	if len(key) < offset+8 {
		return 0
	}
	return storage.ParseUint64(key[offset : offset+8])
}
