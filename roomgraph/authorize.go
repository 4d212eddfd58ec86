// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roomgraph

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/hearth/lib/codec"
	"github.com/bureau-foundation/hearth/lib/ref"
)

// authorize decides whether sender may append a state event of the
// given type, from the room's current power levels alone. Message
// events never reach this gate.
//
// A room with no power_levels state admits everything: the first
// events of a room (including power_levels itself) must be appendable
// before any levels exist. Once levels exist, m.room.member events
// are admitted unconditionally — join and leave must keep working for
// level-0 users. This is a known incomplete policy: it does not
// enforce invite/ban/kick power checks, so callers that care run
// their own membership checks first. Every other state type requires
// the sender's effective level to be above zero.
func (g *Graph) authorize(ctx context.Context, roomID ref.RoomID, sender ref.UserID, kind ref.EventType) (bool, error) {
	pdu, ok, err := g.stateEntry(ctx, roomID, EventTypePowerLevels, "")
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}

	if kind == EventTypeMember {
		return true, nil
	}

	var levels PowerLevelsContent
	if err := codec.Unmarshal(pdu.Content, &levels); err != nil {
		return false, fmt.Errorf("roomgraph: decoding power levels event %s: %w", pdu.EventID, err)
	}
	return levels.UserLevel(sender) > 0, nil
}
