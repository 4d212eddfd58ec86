// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package roomgraph stores the per-room event graph and everything
// derived from it: the append-only PDU log, the room's frontier, the
// current-state projection, the local authorization gate, and per-user
// read markers.
//
// # Key layout
//
// Every key lives in a namespace joined with the storage delimiter:
//
//	event      0xFF <room> 0xFF <ordinal>            → PDU
//	eventid    0xFF <event ID>                       → primary key
//	state      0xFF <room> 0xFF <type> 0xFF <key>    → PDU
//	frontier   0xFF <room> 0xFF <event ID>           → (empty)
//	readmarker 0xFF <room> 0xFF <user>               → ordinal
//
// The big-endian ordinal suffix makes "all events in room X, in
// insertion order" a single bounded range scan, and "does room X have
// any event" a single greater-than probe. The state index is keyed by
// (type, state key), so inserting a superseding state event overwrites
// in place and the projection is a plain prefix scan.
//
// # Simplifications carried from the design
//
// The frontier holds exactly one leaf: each append replaces the whole
// frontier with the new event, so prev_events always has one element
// after the first event. Frontier returns a slice to leave room for
// multi-tip graphs, but nothing here creates one.
//
// The state projection is last-writer-wins in local append order. It
// does not reconcile divergent views from federation peers — there is
// no state resolution algorithm in this core.
//
// The authorization gate admits m.room.member events unconditionally
// whenever power levels exist; see authorize.go.
//
// # Atomicity
//
// Append serializes per room (concurrent appends to one room would
// race on the frontier read-modify-write; different rooms proceed in
// parallel). The PDU is written only after attestation succeeds, so a
// cancelled append never leaves a half-signed event visible. The
// index and read-marker writes that follow the primary write are not
// atomic with it: a crash between them can leave an event reachable
// by range scan but not by ID. This is a known gap, accepted from the
// original design rather than papered over.
package roomgraph
