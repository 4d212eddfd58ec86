// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roomgraph

import (
	"context"

	"github.com/bureau-foundation/hearth/lib/ref"
	"github.com/bureau-foundation/hearth/storage"
)

// SetReadMarker records that user has read the room up to eventID.
// The marker stores the event's global stream ordinal, so comparisons
// against the log need no event lookups. Returns ok=false without
// writing if the event ID is unknown.
//
// Markers only move the way the caller says: setting a marker to an
// older event rewinds it. Clients that never want to rewind compare
// ordinals before calling.
func (g *Graph) SetReadMarker(ctx context.Context, roomID ref.RoomID, user ref.UserID, eventID ref.EventID) (bool, error) {
	ordinal, ok, err := g.EventOrdinal(ctx, eventID)
	if err != nil || !ok {
		return false, err
	}
	if err := g.writeReadMarker(ctx, roomID, user, ordinal); err != nil {
		return false, err
	}
	return true, nil
}

// ReadMarker returns the stream ordinal user has read up to in the
// room, or ok=false if no marker is set.
func (g *Graph) ReadMarker(ctx context.Context, roomID ref.RoomID, user ref.UserID) (uint64, bool, error) {
	key := storage.Key(namespaceReadMarker, []byte(roomID.String()), []byte(user.String()))
	value, ok, err := g.store.Get(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}
	return storage.ParseUint64(value), true, nil
}

func (g *Graph) writeReadMarker(ctx context.Context, roomID ref.RoomID, user ref.UserID, ordinal uint64) error {
	key := storage.Key(namespaceReadMarker, []byte(roomID.String()), []byte(user.String()))
	return g.store.Insert(ctx, key, storage.Uint64(ordinal))
}
