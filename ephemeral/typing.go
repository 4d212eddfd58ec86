// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ephemeral

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/bureau-foundation/hearth/lib/clock"
	"github.com/bureau-foundation/hearth/lib/ref"
	"github.com/bureau-foundation/hearth/storage"
	"github.com/bureau-foundation/hearth/storage/sequence"
)

var namespaceTyping = []byte("typing")

// Typing stores who is currently typing in each room. A marker
// carries its expiry deadline in the key; expired markers are evicted
// the next time the room is read.
type Typing struct {
	slots
	clock clock.Clock
}

// NewTyping returns a typing-marker store. A nil clk uses the wall
// clock.
func NewTyping(store storage.Store, seq *sequence.Sequence, clk clock.Clock) *Typing {
	if clk == nil {
		clk = clock.Real()
	}
	return &Typing{slots: newSlots(store, seq), clock: clk}
}

// Start records that user is typing in the room until the deadline,
// replacing any earlier marker for the same user.
func (t *Typing) Start(ctx context.Context, roomID ref.RoomID, user ref.UserID, until time.Time) error {
	scope := storage.Prefix(namespaceTyping, []byte(roomID.String()))
	userBytes := []byte(user.String())
	return t.update(ctx,
		string(scope)+user.String(),
		scope,
		func(entry storage.Entry) bool { return bytes.Equal(entry.Value, userBytes) },
		func(ordinal uint64) []byte {
			return storage.Key(namespaceTyping, []byte(roomID.String()),
				storage.Uint64(uint64(until.UnixMilli())), storage.Uint64(ordinal))
		},
		userBytes,
	)
}

// Stop removes user's typing marker in the room, if one exists.
func (t *Typing) Stop(ctx context.Context, roomID ref.RoomID, user ref.UserID) error {
	scope := storage.Prefix(namespaceTyping, []byte(roomID.String()))
	userBytes := []byte(user.String())

	unlock := t.locks.Lock(string(scope) + user.String())
	defer unlock()
	return t.removeMatching(ctx, scope, func(entry storage.Entry) bool {
		return bytes.Equal(entry.Value, userBytes)
	})
}

// TypingState is the answer to "who is typing": the users with live
// markers and the highest stream ordinal among them (zero when
// nobody is typing). The zero-user case is a well-formed state, not
// an absence — callers can serialize it directly.
type TypingState struct {
	Users   []ref.UserID
	Ordinal uint64
}

// ActiveIn evicts every expired marker in the room, then reports the
// remaining ones. Eviction is a real removal: an expired marker is
// gone for later readers too, not merely filtered from this result.
func (t *Typing) ActiveIn(ctx context.Context, roomID ref.RoomID) (TypingState, error) {
	scope := storage.Prefix(namespaceTyping, []byte(roomID.String()))
	entries, err := t.store.ScanPrefix(ctx, scope)
	if err != nil {
		return TypingState{}, err
	}

	now := uint64(t.clock.Now().UnixMilli())
	state := TypingState{Users: []ref.UserID{}}
	for _, entry := range entries {
		// Key layout: scope ++ deadline ++ 0xFF ++ ordinal.
		if len(entry.Key) < len(scope)+17 {
			return TypingState{}, fmt.Errorf("ephemeral: malformed typing key %q", entry.Key)
		}
		deadline := ordinalAt(entry.Key, len(scope))
		if deadline <= now {
			if err := t.store.Remove(ctx, entry.Key); err != nil {
				return TypingState{}, err
			}
			continue
		}
		user, err := ref.ParseUserID(string(entry.Value))
		if err != nil {
			return TypingState{}, fmt.Errorf("ephemeral: typing payload: %w", err)
		}
		state.Users = append(state.Users, user)
		if ordinal := ordinalAt(entry.Key, len(scope)+9); ordinal > state.Ordinal {
			state.Ordinal = ordinal
		}
	}
	return state, nil
}
