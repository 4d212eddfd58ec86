// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package federation decides whether a remote homeserver may read a
// room. The gate answers one question — may this origin see this
// room (and optionally this event)? — from four independent reads of
// room state: the server ACL, the world-readable flag, the origin's
// membership in the room, and per-event visibility.
//
// The four checks have no ordering dependency and each one is
// store-bound, so the gate issues them concurrently and joins. The
// decision policy applied after the join is ordered, though: an
// ACL denial wins over everything, including a world-readable room.
package federation
