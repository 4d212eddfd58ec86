// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sequence provides the global stream ordinal: a strictly
// increasing 64-bit value shared by every Hearth subsystem.
//
// Ordinals serve three roles at once: the positional suffix in a
// room's event keys, the "since" token handed to incremental queries,
// and the positional suffix of every ephemeral slot key. Because keys
// from different subsystems interleave in overlapping ranges, ordinals
// must form one process-wide total order — two concurrent Next calls
// never return the same value, and values reflect real completion
// order. The ordering guarantee comes from the store's atomic
// increment-and-fetch, so it survives restarts and holds across every
// subsystem that shares the store.
package sequence

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/hearth/storage"
)

// counterName is the well-known counter key for the global sequence.
var counterName = []byte("global-stream")

// Sequence produces global stream ordinals.
type Sequence struct {
	store storage.Store
}

// New returns a Sequence backed by the given store.
func New(store storage.Store) *Sequence {
	return &Sequence{store: store}
}

// Next atomically allocates and returns the next ordinal. The first
// ordinal is 1; zero is reserved as the "from the beginning" since
// token. Fails only on a store fault, which is fatal for the calling
// operation.
func (s *Sequence) Next(ctx context.Context) (uint64, error) {
	value, err := s.store.IncrementAndFetch(ctx, counterName)
	if err != nil {
		return 0, fmt.Errorf("sequence: %w", err)
	}
	return value, nil
}

// Current returns the most recently allocated ordinal without
// allocating a new one: the "up to here" token handed to a fresh
// sync. Returns 0 when nothing has ever been allocated.
//
// Current is advisory — by the time it returns, a concurrent Next may
// already have moved past it.
func (s *Sequence) Current(ctx context.Context) (uint64, error) {
	value, err := s.store.Counter(ctx, counterName)
	if err != nil {
		return 0, fmt.Errorf("sequence: %w", err)
	}
	return value, nil
}
