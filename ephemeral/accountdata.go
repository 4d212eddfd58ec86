// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ephemeral

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/hearth/lib/codec"
	"github.com/bureau-foundation/hearth/lib/ref"
	"github.com/bureau-foundation/hearth/storage"
	"github.com/bureau-foundation/hearth/storage/sequence"
)

var namespaceAccountData = []byte("accountdata")

// AccountData stores per-user configuration items, keyed by an event
// type within a (room, user) scope. A zero room ID addresses the
// user's global scope. The subject is the item type: setting
// "m.push_rules" again replaces the previous "m.push_rules" entry.
type AccountData struct {
	slots
}

// NewAccountData returns an account-data store over the given store
// and sequence.
func NewAccountData(store storage.Store, seq *sequence.Sequence) *AccountData {
	return &AccountData{slots: newSlots(store, seq)}
}

// Item is one account-data entry and the stream ordinal it was
// recorded at.
type Item struct {
	Kind    ref.EventType
	Ordinal uint64
	Content codec.RawMessage
}

func accountDataScope(roomID ref.RoomID, user ref.UserID) []byte {
	return storage.Prefix(namespaceAccountData, []byte(roomID.String()), []byte(user.String()))
}

// Update replaces the item of the given kind in the (room, user)
// scope.
func (a *AccountData) Update(ctx context.Context, roomID ref.RoomID, user ref.UserID, kind ref.EventType, content codec.RawMessage) error {
	scope := accountDataScope(roomID, user)
	return a.update(ctx,
		string(scope)+string(kind),
		scope,
		func(entry storage.Entry) bool {
			// Key layout: scope ++ ordinal ++ 0xFF ++ kind.
			return len(entry.Key) > len(scope)+9 &&
				string(entry.Key[len(scope)+9:]) == string(kind)
		},
		func(ordinal uint64) []byte {
			return storage.Key(namespaceAccountData, []byte(roomID.String()),
				[]byte(user.String()), storage.Uint64(ordinal), []byte(kind))
		},
		content,
	)
}

// Since returns the scope's items recorded strictly after the given
// ordinal, oldest first — one entry per kind that changed.
func (a *AccountData) Since(ctx context.Context, roomID ref.RoomID, user ref.UserID, after uint64) ([]Item, error) {
	scope := accountDataScope(roomID, user)
	entries, err := a.since(ctx, scope, after)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		if len(entry.Key) < len(scope)+10 {
			return nil, fmt.Errorf("ephemeral: malformed account data key %q", entry.Key)
		}
		items = append(items, Item{
			Kind:    ref.EventType(entry.Key[len(scope)+9:]),
			Ordinal: ordinalAt(entry.Key, len(scope)),
			Content: codec.RawMessage(entry.Value),
		})
	}
	return items, nil
}

// All returns every current item in the (room, user) scope.
func (a *AccountData) All(ctx context.Context, roomID ref.RoomID, user ref.UserID) ([]Item, error) {
	return a.Since(ctx, roomID, user, 0)
}

// Get returns the current item of the given kind, or ok=false if the
// scope has none.
func (a *AccountData) Get(ctx context.Context, roomID ref.RoomID, user ref.UserID, kind ref.EventType) (Item, bool, error) {
	items, err := a.All(ctx, roomID, user)
	if err != nil {
		return Item{}, false, err
	}
	for _, item := range items {
		if item.Kind == kind {
			return item, true, nil
		}
	}
	return Item{}, false, nil
}
