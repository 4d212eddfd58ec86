// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keyedmutex

import (
	"sync"
	"testing"
)

func TestSameKeySerializes(t *testing.T) {
	locks := New()

	const workers = 8
	const iterations = 200

	counter := 0
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				unlock := locks.Lock("shared")
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	if counter != workers*iterations {
		t.Fatalf("counter = %d, want %d (lost updates: key not serialized)",
			counter, workers*iterations)
	}
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	locks := New()

	unlockA := locks.Lock("a")
	defer unlockA()

	// Acquiring a different key while "a" is held must not deadlock.
	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("b")
		unlockB()
		close(done)
	}()
	<-done
}
