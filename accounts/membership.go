// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package accounts

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/hearth/lib/ref"
	"github.com/bureau-foundation/hearth/roomgraph"
)

// Join makes user a member of the room: updates both membership
// lists, clears any pending invite, and appends a join member event
// (carrying the user's display name if set). Returns false without
// joining if the room does not exist and the user was never in it —
// joining a nonexistent room is only valid as a re-join, which can
// recreate local list state after a Forget.
func (d *Directory) Join(ctx context.Context, roomID ref.RoomID, user ref.UserID) (bool, error) {
	exists, err := d.graph.RoomExists(ctx, roomID)
	if err != nil {
		return false, err
	}
	if !exists {
		alreadyJoined, err := d.hasFlag(ctx, namespaceJoined, user.String(), roomID.String())
		if err != nil {
			return false, err
		}
		if !alreadyJoined {
			return false, nil
		}
	}

	if err := d.setFlag(ctx, namespaceJoined, user.String(), roomID.String()); err != nil {
		return false, err
	}
	if err := d.setFlag(ctx, namespaceJoinedBy, roomID.String(), user.String()); err != nil {
		return false, err
	}
	if err := d.clearFlag(ctx, namespaceInvited, user.String(), roomID.String()); err != nil {
		return false, err
	}
	if err := d.clearFlag(ctx, namespaceInvitedBy, roomID.String(), user.String()); err != nil {
		return false, err
	}
	if err := d.clearFlag(ctx, namespaceLeft, user.String(), roomID.String()); err != nil {
		return false, err
	}

	content := roomgraph.MemberContent{Membership: roomgraph.MembershipJoin}
	if displayName, ok, err := d.DisplayName(ctx, user); err != nil {
		return false, err
	} else if ok {
		content.DisplayName = displayName
	}
	if err := d.appendMemberEvent(ctx, user, roomID, user, content); err != nil {
		return false, err
	}
	d.logger.Info("user joined room", "user", user, "room", roomID)
	return true, nil
}

// Leave records that user left the room (or was removed by sender):
// appends a leave member event from sender about user and moves the
// room from the joined and invited lists to the left list.
func (d *Directory) Leave(ctx context.Context, sender ref.UserID, roomID ref.RoomID, user ref.UserID) error {
	if err := d.appendMemberEvent(ctx, sender, roomID, user, roomgraph.MemberContent{
		Membership: roomgraph.MembershipLeave,
	}); err != nil {
		return err
	}

	if err := d.clearFlag(ctx, namespaceInvited, user.String(), roomID.String()); err != nil {
		return err
	}
	if err := d.clearFlag(ctx, namespaceInvitedBy, roomID.String(), user.String()); err != nil {
		return err
	}
	if err := d.clearFlag(ctx, namespaceJoined, user.String(), roomID.String()); err != nil {
		return err
	}
	if err := d.clearFlag(ctx, namespaceJoinedBy, roomID.String(), user.String()); err != nil {
		return err
	}
	return d.setFlag(ctx, namespaceLeft, user.String(), roomID.String())
}

// Invite records sender inviting user to the room: appends an invite
// member event and adds the room to the user's invited list.
func (d *Directory) Invite(ctx context.Context, sender ref.UserID, roomID ref.RoomID, user ref.UserID) error {
	if err := d.appendMemberEvent(ctx, sender, roomID, user, roomgraph.MemberContent{
		Membership: roomgraph.MembershipInvite,
	}); err != nil {
		return err
	}
	if err := d.setFlag(ctx, namespaceInvited, user.String(), roomID.String()); err != nil {
		return err
	}
	return d.setFlag(ctx, namespaceInvitedBy, roomID.String(), user.String())
}

// Forget removes the room from the user's left list. No event is
// appended; forgetting is purely local bookkeeping.
func (d *Directory) Forget(ctx context.Context, roomID ref.RoomID, user ref.UserID) error {
	return d.clearFlag(ctx, namespaceLeft, user.String(), roomID.String())
}

// JoinedRooms returns the rooms the user has joined, in key order.
func (d *Directory) JoinedRooms(ctx context.Context, user ref.UserID) ([]ref.RoomID, error) {
	return d.listRooms(ctx, namespaceJoined, user)
}

// InvitedRooms returns the rooms the user holds an invite to.
func (d *Directory) InvitedRooms(ctx context.Context, user ref.UserID) ([]ref.RoomID, error) {
	return d.listRooms(ctx, namespaceInvited, user)
}

// LeftRooms returns the rooms the user has left and not forgotten.
func (d *Directory) LeftRooms(ctx context.Context, user ref.UserID) ([]ref.RoomID, error) {
	return d.listRooms(ctx, namespaceLeft, user)
}

// JoinedUsers returns the local users joined to the room.
func (d *Directory) JoinedUsers(ctx context.Context, roomID ref.RoomID) ([]ref.UserID, error) {
	return d.listUsers(ctx, namespaceJoinedBy, roomID)
}

// InvitedUsers returns the local users invited to the room.
func (d *Directory) InvitedUsers(ctx context.Context, roomID ref.RoomID) ([]ref.UserID, error) {
	return d.listUsers(ctx, namespaceInvitedBy, roomID)
}

func (d *Directory) listRooms(ctx context.Context, namespace []byte, user ref.UserID) ([]ref.RoomID, error) {
	raw, err := d.listFlags(ctx, namespace, user.String())
	if err != nil {
		return nil, err
	}
	rooms := make([]ref.RoomID, 0, len(raw))
	for _, value := range raw {
		roomID, err := ref.ParseRoomID(value)
		if err != nil {
			return nil, fmt.Errorf("accounts: membership key: %w", err)
		}
		rooms = append(rooms, roomID)
	}
	return rooms, nil
}

func (d *Directory) listUsers(ctx context.Context, namespace []byte, roomID ref.RoomID) ([]ref.UserID, error) {
	raw, err := d.listFlags(ctx, namespace, roomID.String())
	if err != nil {
		return nil, err
	}
	users := make([]ref.UserID, 0, len(raw))
	for _, value := range raw {
		user, err := ref.ParseUserID(value)
		if err != nil {
			return nil, fmt.Errorf("accounts: membership key: %w", err)
		}
		users = append(users, user)
	}
	return users, nil
}

// appendMemberEvent writes an m.room.member state event about target
// to the room's graph.
func (d *Directory) appendMemberEvent(ctx context.Context, sender ref.UserID, roomID ref.RoomID, target ref.UserID, content roomgraph.MemberContent) error {
	stateKey := target.String()
	_, accepted, err := d.graph.Append(ctx, roomgraph.AppendRequest{
		RoomID:   roomID,
		Sender:   sender,
		Kind:     roomgraph.EventTypeMember,
		Content:  content,
		StateKey: &stateKey,
	})
	if err != nil {
		return err
	}
	if !accepted {
		return fmt.Errorf("accounts: member event for %s in %s rejected", target, roomID)
	}
	return nil
}
