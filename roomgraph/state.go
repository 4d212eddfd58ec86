// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roomgraph

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/hearth/lib/codec"
	"github.com/bureau-foundation/hearth/lib/ref"
	"github.com/bureau-foundation/hearth/storage"
)

// State returns the room's current state: for every (type, state key)
// pair, the latest state event appended under it. The index is keyed
// by the pair, so this is one prefix scan with no folding beyond the
// overwrite that happened at append time.
func (g *Graph) State(ctx context.Context, roomID ref.RoomID) (map[StatePair]*PDU, error) {
	prefix := storage.Prefix(namespaceState, []byte(roomID.String()))
	entries, err := g.store.ScanPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	state := make(map[StatePair]*PDU, len(entries))
	for _, entry := range entries {
		pdu, _, err := decodePDU(entry.Value)
		if err != nil {
			return nil, err
		}
		if !pdu.IsState() {
			return nil, fmt.Errorf("roomgraph: non-state event %s in state index", pdu.EventID)
		}
		state[pdu.StatePair()] = pdu
	}
	return state, nil
}

// StateEvent returns the room's current state event for one (type,
// state key) cell, or ok=false if the room has none.
func (g *Graph) StateEvent(ctx context.Context, roomID ref.RoomID, kind ref.EventType, stateKey string) (*PDU, bool, error) {
	return g.stateEntry(ctx, roomID, kind, stateKey)
}

func (g *Graph) stateEntry(ctx context.Context, roomID ref.RoomID, kind ref.EventType, stateKey string) (*PDU, bool, error) {
	key := storage.Key(namespaceState, []byte(roomID.String()), []byte(kind), []byte(stateKey))
	encoded, ok, err := g.store.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	return decodePDU(encoded)
}

// Membership returns the current membership value for user in the
// room ("join", "leave", ...), or ok=false if the user has no member
// event there.
func (g *Graph) Membership(ctx context.Context, roomID ref.RoomID, user ref.UserID) (string, bool, error) {
	pdu, ok, err := g.stateEntry(ctx, roomID, EventTypeMember, user.String())
	if err != nil || !ok {
		return "", false, err
	}
	var content MemberContent
	if err := codec.Unmarshal(pdu.Content, &content); err != nil {
		return "", false, fmt.Errorf("roomgraph: decoding member event %s: %w", pdu.EventID, err)
	}
	return content.Membership, true, nil
}

// ServerInRoom reports whether any joined member of the room belongs
// to the given server.
func (g *Graph) ServerInRoom(ctx context.Context, roomID ref.RoomID, server ref.ServerName) (bool, error) {
	prefix := storage.Prefix(namespaceState,
		[]byte(roomID.String()), []byte(EventTypeMember))
	entries, err := g.store.ScanPrefix(ctx, prefix)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		pdu, _, err := decodePDU(entry.Value)
		if err != nil {
			return false, err
		}
		var content MemberContent
		if err := codec.Unmarshal(pdu.Content, &content); err != nil {
			return false, fmt.Errorf("roomgraph: decoding member event %s: %w", pdu.EventID, err)
		}
		if content.Membership != MembershipJoin {
			continue
		}
		member, err := ref.ParseUserID(*pdu.StateKey)
		if err != nil {
			continue
		}
		if member.Server() == server {
			return true, nil
		}
	}
	return false, nil
}

// WorldReadable reports whether the room's history visibility is
// world_readable. Rooms without a history visibility event are not.
func (g *Graph) WorldReadable(ctx context.Context, roomID ref.RoomID) (bool, error) {
	pdu, ok, err := g.stateEntry(ctx, roomID, EventTypeHistoryVisibility, "")
	if err != nil || !ok {
		return false, err
	}
	var content HistoryVisibilityContent
	if err := codec.Unmarshal(pdu.Content, &content); err != nil {
		return false, fmt.Errorf("roomgraph: decoding history visibility event %s: %w", pdu.EventID, err)
	}
	return content.HistoryVisibility == HistoryVisibilityWorldReadable, nil
}

// ServerACL returns the room's server ACL content, or ok=false if the
// room has no m.room.server_acl event.
func (g *Graph) ServerACL(ctx context.Context, roomID ref.RoomID) (*ServerACLContent, bool, error) {
	pdu, ok, err := g.stateEntry(ctx, roomID, EventTypeServerACL, "")
	if err != nil || !ok {
		return nil, false, err
	}
	var content ServerACLContent
	if err := codec.Unmarshal(pdu.Content, &content); err != nil {
		return nil, false, fmt.Errorf("roomgraph: decoding server ACL event %s: %w", pdu.EventID, err)
	}
	return &content, true, nil
}
