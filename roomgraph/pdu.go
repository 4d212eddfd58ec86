// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roomgraph

import (
	"github.com/bureau-foundation/hearth/lib/codec"
	"github.com/bureau-foundation/hearth/lib/ref"
)

// Event types with dedicated handling in the graph or the gate.
const (
	// EventTypePowerLevels carries the room's power-level table; its
	// presence switches the authorization gate on.
	EventTypePowerLevels ref.EventType = "m.room.power_levels"

	// EventTypeMember records a user's membership in a room.
	EventTypeMember ref.EventType = "m.room.member"

	// EventTypeServerACL lists which servers may interact with the
	// room over federation.
	EventTypeServerACL ref.EventType = "m.room.server_acl"

	// EventTypeHistoryVisibility controls whether servers outside the
	// room may read its history.
	EventTypeHistoryVisibility ref.EventType = "m.room.history_visibility"
)

// Membership values carried in m.room.member content.
const (
	MembershipJoin   = "join"
	MembershipLeave  = "leave"
	MembershipInvite = "invite"
	MembershipBan    = "ban"
)

// HistoryVisibilityWorldReadable marks a room whose history any
// server may read, member or not.
const HistoryVisibilityWorldReadable = "world_readable"

// PDU is a persisted event: the unit the log, the frontier, and the
// state index all store. Field names follow the federation wire form;
// the struct tags apply to both the canonical CBOR encoding (the
// codec maps them onto CBOR field names) and JSON.
//
// EventID is empty while the reference hash is being computed and
// holds the derived ID everywhere else. Hashes and Signatures are
// excluded from the canonical encoding entirely; see attest.go.
type PDU struct {
	EventID        ref.EventID                  `json:"event_id"`
	RoomID         ref.RoomID                   `json:"room_id"`
	Sender         ref.UserID                   `json:"sender"`
	Origin         ref.ServerName               `json:"origin"`
	OriginServerTS int64                        `json:"origin_server_ts"`
	Kind           ref.EventType                `json:"type"`
	Content        codec.RawMessage             `json:"content"`
	StateKey       *string                      `json:"state_key,omitempty"`
	PrevEvents     []ref.EventID                `json:"prev_events"`
	Depth          uint64                       `json:"depth"`
	AuthEvents     []ref.EventID                `json:"auth_events"`
	Redacts        *ref.EventID                 `json:"redacts,omitempty"`
	Unsigned       map[string]codec.RawMessage  `json:"unsigned,omitempty"`
	Hashes         map[string]string            `json:"hashes,omitempty"`
	Signatures     map[string]map[string]string `json:"signatures,omitempty"`
}

// IsState reports whether the event carries room state. A state event
// has a state key, possibly empty; a message event has none.
func (p *PDU) IsState() bool { return p.StateKey != nil }

// StatePair identifies one cell of room state: an event type plus its
// state key. Member events use the target user ID as the state key;
// singleton state like power levels uses the empty string.
type StatePair struct {
	Kind     ref.EventType
	StateKey string
}

// StatePair returns the state cell this event occupies. Only valid
// for state events.
func (p *PDU) StatePair() StatePair {
	return StatePair{Kind: p.Kind, StateKey: *p.StateKey}
}

// PowerLevelsContent is the decoded content of an
// m.room.power_levels event. Only the user table matters to the local
// gate; per-event-type requirements are not enforced here.
type PowerLevelsContent struct {
	Users        map[string]int64 `json:"users,omitempty"`
	UsersDefault int64            `json:"users_default,omitempty"`
}

// UserLevel returns the effective power level for a user: the user's
// entry in the table if present, the room default otherwise.
func (c *PowerLevelsContent) UserLevel(user ref.UserID) int64 {
	if level, ok := c.Users[user.String()]; ok {
		return level
	}
	return c.UsersDefault
}

// MemberContent is the decoded content of an m.room.member event.
type MemberContent struct {
	Membership  string `json:"membership"`
	DisplayName string `json:"displayname,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// HistoryVisibilityContent is the decoded content of an
// m.room.history_visibility event.
type HistoryVisibilityContent struct {
	HistoryVisibility string `json:"history_visibility"`
}

// ServerACLContent is the decoded content of an m.room.server_acl
// event. Allow and Deny hold glob patterns matched against server
// names; Deny wins over Allow.
type ServerACLContent struct {
	Allow           []string `json:"allow,omitempty"`
	Deny            []string `json:"deny,omitempty"`
	AllowIPLiterals bool     `json:"allow_ip_literals,omitempty"`
}
