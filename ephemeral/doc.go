// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ephemeral stores overwrite-latest items: read receipts,
// typing markers, and account data. Unlike the event log these carry
// no history — each (scope, subject) pair has at most one live slot,
// and updating a subject replaces its previous slot.
//
// All three instantiations share one engine. A slot key is the
// scope's prefix, a fresh global stream ordinal, and per-kind
// trailing bytes:
//
//	receipt     0xFF <room> 0xFF <ordinal> 0xFF <user>           → payload
//	accountdata 0xFF <room?> 0xFF <user> 0xFF <ordinal> 0xFF <t> → payload
//	typing      0xFF <room> 0xFF <timeout> 0xFF <ordinal>        → user
//
// The ordinal right after the scope prefix makes "changes since X" a
// forward scan and "the latest slots" a backward walk. An update
// walks backward from the end of the scope removing the first slot
// whose subject matches, then inserts at a fresh ordinal; the engine
// serializes updates per (scope, subject), so at most one live slot
// per subject survives any interleaving.
//
// Typing markers deviate twice: the timeout deadline is encoded in
// the key ahead of the ordinal, and eviction is explicit — ActiveIn
// removes any marker whose deadline has passed before reporting, and
// Stop removes a marker by exact subject match. Account data for a
// user's global scope (not tied to a room) uses an empty room part.
package ephemeral
