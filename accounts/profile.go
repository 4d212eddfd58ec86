// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package accounts

import (
	"context"

	"github.com/bureau-foundation/hearth/lib/ref"
	"github.com/bureau-foundation/hearth/roomgraph"
	"github.com/bureau-foundation/hearth/storage"
)

// SetDisplayName stores the user's display name and fans it out: each
// room the user has joined receives a fresh member event carrying the
// new name, so other servers and clients learn of the change through
// the event stream.
func (d *Directory) SetDisplayName(ctx context.Context, user ref.UserID, displayName string) error {
	key := storage.Key(namespaceDisplayName, []byte(user.String()))
	if err := d.store.Insert(ctx, key, []byte(displayName)); err != nil {
		return err
	}

	rooms, err := d.JoinedRooms(ctx, user)
	if err != nil {
		return err
	}
	for _, room := range rooms {
		if err := d.appendMemberEvent(ctx, user, room, user, roomgraph.MemberContent{
			Membership:  roomgraph.MembershipJoin,
			DisplayName: displayName,
		}); err != nil {
			return err
		}
	}
	return nil
}

// DisplayName returns the user's display name, or ok=false if unset.
func (d *Directory) DisplayName(ctx context.Context, user ref.UserID) (string, bool, error) {
	value, ok, err := d.store.Get(ctx, storage.Key(namespaceDisplayName, []byte(user.String())))
	if err != nil || !ok {
		return "", false, err
	}
	return string(value), true, nil
}

// RemoveDisplayName deletes the user's display name, if any.
func (d *Directory) RemoveDisplayName(ctx context.Context, user ref.UserID) error {
	return d.store.Remove(ctx, storage.Key(namespaceDisplayName, []byte(user.String())))
}

// SetAvatarURL stores the user's avatar URL.
func (d *Directory) SetAvatarURL(ctx context.Context, user ref.UserID, avatarURL string) error {
	return d.store.Insert(ctx, storage.Key(namespaceAvatarURL, []byte(user.String())), []byte(avatarURL))
}

// AvatarURL returns the user's avatar URL, or ok=false if unset.
func (d *Directory) AvatarURL(ctx context.Context, user ref.UserID) (string, bool, error) {
	value, ok, err := d.store.Get(ctx, storage.Key(namespaceAvatarURL, []byte(user.String())))
	if err != nil || !ok {
		return "", false, err
	}
	return string(value), true, nil
}

// RemoveAvatarURL deletes the user's avatar URL, if any.
func (d *Directory) RemoveAvatarURL(ctx context.Context, user ref.UserID) error {
	return d.store.Remove(ctx, storage.Key(namespaceAvatarURL, []byte(user.String())))
}
