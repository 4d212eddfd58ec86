// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// EventType is a Matrix event type string (e.g., "m.room.message",
// "m.room.power_levels"). Event types are free-form namespaced
// strings; Hearth treats them as opaque keys in the state index, so
// the type carries no structural validation beyond what the storage
// layer requires of all identifiers (valid UTF-8, enforced at the
// API boundary where raw strings enter).
//
// Well-known m.room.* constants live in package roomgraph next to the
// code that gives them meaning.
type EventType string

// String returns the event type string.
func (t EventType) String() string { return string(t) }
