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

var namespaceReceipt = []byte("receipt")

// Receipts stores each user's latest read receipt per room. The
// subject is the user: a new receipt replaces the user's previous one
// in that room.
type Receipts struct {
	slots
}

// NewReceipts returns a receipt store over the given store and
// sequence.
func NewReceipts(store storage.Store, seq *sequence.Sequence) *Receipts {
	return &Receipts{slots: newSlots(store, seq)}
}

// Receipt is one user's latest receipt in a room, with the stream
// ordinal it was recorded at.
type Receipt struct {
	User    ref.UserID
	Ordinal uint64
	Content codec.RawMessage
}

// Update replaces user's receipt in the room.
func (r *Receipts) Update(ctx context.Context, roomID ref.RoomID, user ref.UserID, content codec.RawMessage) error {
	scope := storage.Prefix(namespaceReceipt, []byte(roomID.String()))
	userBytes := []byte(user.String())
	return r.update(ctx,
		string(scope)+user.String(),
		scope,
		func(entry storage.Entry) bool {
			// Key layout: scope ++ ordinal ++ 0xFF ++ user.
			return len(entry.Key) > len(scope)+9 &&
				string(entry.Key[len(scope)+9:]) == user.String()
		},
		func(ordinal uint64) []byte {
			return storage.Key(namespaceReceipt, []byte(roomID.String()),
				storage.Uint64(ordinal), userBytes)
		},
		content,
	)
}

// Since returns the receipts recorded in the room strictly after the
// given ordinal, oldest first — one entry per user whose receipt
// changed.
func (r *Receipts) Since(ctx context.Context, roomID ref.RoomID, after uint64) ([]Receipt, error) {
	scope := storage.Prefix(namespaceReceipt, []byte(roomID.String()))
	entries, err := r.since(ctx, scope, after)
	if err != nil {
		return nil, err
	}
	receipts := make([]Receipt, 0, len(entries))
	for _, entry := range entries {
		if len(entry.Key) < len(scope)+10 {
			return nil, fmt.Errorf("ephemeral: malformed receipt key %q", entry.Key)
		}
		user, err := ref.ParseUserID(string(entry.Key[len(scope)+9:]))
		if err != nil {
			return nil, fmt.Errorf("ephemeral: receipt key: %w", err)
		}
		receipts = append(receipts, Receipt{
			User:    user,
			Ordinal: ordinalAt(entry.Key, len(scope)),
			Content: codec.RawMessage(entry.Value),
		})
	}
	return receipts, nil
}

// All returns every user's current receipt in the room.
func (r *Receipts) All(ctx context.Context, roomID ref.RoomID) ([]Receipt, error) {
	return r.Since(ctx, roomID, 0)
}
