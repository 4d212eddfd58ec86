// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sequence

import (
	"context"
	"sync"
	"testing"

	"github.com/bureau-foundation/hearth/storage"
)

func TestNextIsStrictlyIncreasing(t *testing.T) {
	ctx := context.Background()
	seq := New(storage.NewMemory())

	previous := uint64(0)
	for i := 0; i < 100; i++ {
		value, err := seq.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if value <= previous {
			t.Fatalf("ordinal %d not greater than previous %d", value, previous)
		}
		previous = value
	}
}

func TestCurrentTracksAllocation(t *testing.T) {
	ctx := context.Background()
	seq := New(storage.NewMemory())

	current, err := seq.Current(ctx)
	if err != nil || current != 0 {
		t.Fatalf("Current before allocation = %d err=%v, want 0", current, err)
	}

	for i := 0; i < 3; i++ {
		if _, err := seq.Next(ctx); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}

	current, err = seq.Current(ctx)
	if err != nil || current != 3 {
		t.Fatalf("Current after 3 allocations = %d err=%v, want 3", current, err)
	}
}

func TestConcurrentNextNeverCollides(t *testing.T) {
	ctx := context.Background()
	seq := New(storage.NewMemory())

	const workers = 16
	const perWorker = 50

	var mu sync.Mutex
	seen := make(map[uint64]bool)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				value, err := seq.Next(ctx)
				if err != nil {
					t.Errorf("Next: %v", err)
					return
				}
				mu.Lock()
				if seen[value] {
					t.Errorf("ordinal %d allocated twice", value)
				}
				seen[value] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Fatalf("allocated %d distinct ordinals, want %d", len(seen), workers*perWorker)
	}
}
