// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts wall-clock reads for testability.
//
// Hearth uses the clock in one place with real behavioral weight: the
// typing/presence slot store encodes an expiry deadline into each key
// and filters expired slots at read time. Tests inject Fake and move
// time explicitly; production code injects Real.
//
// Every production function that would call time.Now should accept a
// Clock parameter (or be a method on a struct with a Clock field)
// instead of calling the time package directly.
package clock

import (
	"sync"
	"time"
)

// Clock provides the current time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Fake returns a FakeClock initialized to the given time. Time stands
// still until Advance or Set is called.
//
// FakeClock is safe for concurrent use by multiple goroutines.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a deterministic Clock for testing.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the fake time forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set moves the fake time to an absolute instant.
func (c *FakeClock) Set(instant time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = instant
}
